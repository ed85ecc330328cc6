package testutils

import (
	"os"
	"runtime"
	"testing"
)

// SkipUnlessUnixNonRoot skips tests relying on file permissions, which are not enforced on Windows or for root.
func SkipUnlessUnixNonRoot(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("File permissions are not enforced on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("File permissions are not enforced for root")
	}
}
