// Package testutils provides helper functions for testing
package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FlagCase describes the expected shape of a cobra flag.
type FlagCase struct {
	Cmd        *cobra.Command
	Name       string
	Short      string
	Persistent bool
	Dirname    bool
	// Extensions are the file extensions offered by shell completion, if any.
	Extensions []string
}

// AssertFlag checks that the flag described by want is installed on its command.
func AssertFlag(t *testing.T, want FlagCase) {
	t.Helper()

	var flag *pflag.Flag
	if want.Persistent {
		flag = want.Cmd.PersistentFlags().Lookup(want.Name)
	} else {
		flag = want.Cmd.Flags().Lookup(want.Name)
	}
	require.NotNil(t, flag, "Flag %q should be installed on %q", want.Name, want.Cmd.Name())
	assert.Equal(t, want.Short, flag.Shorthand, "Flag %q has an unexpected shorthand", want.Name)

	if want.Dirname {
		assert.Equal(t, []string{}, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %q should complete directories", want.Name)
	} else {
		assert.Nil(t, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %q should not complete directories", want.Name)
	}
	if want.Extensions != nil {
		assert.Equal(t, want.Extensions, flag.Annotations[cobra.BashCompFilenameExt], "Flag %q completes unexpected files", want.Name)
	}
}
