package testutils

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// DirContents returns the regular files under dir, keyed by their slash-separated relative path.
// Line endings are normalized so that contents compare equal across platforms.
func DirContents(t *testing.T, dir string) map[string]string {
	t.Helper()

	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")))
		return nil
	})
	require.NoError(t, err, "Setup: could not read directory contents")

	return files
}
