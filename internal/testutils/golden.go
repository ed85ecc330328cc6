package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv is the environment variable that, when set, rewrites golden files from the test output.
const UpdateGoldenEnv = "TESTS_UPDATE_GOLDEN"

type goldenOptions struct {
	path string
}

// GoldenOption is a supported option reference to change the golden files comparison.
type GoldenOption func(*goldenOptions)

// WithGoldenPath overrides the default path for golden files used.
func WithGoldenPath(path string) GoldenOption {
	return func(o *goldenOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// GoldenPath returns the golden path for the provided test: testdata/golden/<TestName>/<subtest>.
func GoldenPath(t *testing.T) string {
	t.Helper()

	return filepath.Join("testdata", "golden", filepath.FromSlash(t.Name()))
}

// LoadWithUpdateFromGolden loads the element from the golden file of the test.
// It rewrites the golden file first with data when UpdateGoldenEnv is set.
func LoadWithUpdateFromGolden(t *testing.T, data string, opts ...GoldenOption) string {
	t.Helper()

	o := goldenOptions{path: GoldenPath(t)}
	for _, opt := range opts {
		opt(&o)
	}

	if os.Getenv(UpdateGoldenEnv) != "" {
		t.Logf("updating golden file %s", o.path)
		require.NoError(t, os.MkdirAll(filepath.Dir(o.path), 0750), "Cannot create directory for updating golden files")
		require.NoError(t, os.WriteFile(o.path, []byte(data), 0600), "Cannot write golden file")
	}

	want, err := os.ReadFile(o.path)
	require.NoError(t, err, "Cannot load golden file %s", o.path)

	return strings.ReplaceAll(string(want), "\r\n", "\n")
}
