package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/reporteria/reportviewer/internal/cli"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hacky way to allow us to reset the default logger.
var defaultLogger = *slog.Default()

func assertLevel(t *testing.T, verbosity int) {
	t.Helper()

	ctx := context.Background()
	switch verbosity {
	case 0:
		assert.True(t, slog.Default().Enabled(ctx, constants.DefaultLogLevel))
		assert.False(t, slog.Default().Enabled(ctx, constants.DefaultLogLevel-1))
	case 1:
		assert.True(t, slog.Default().Enabled(ctx, slog.LevelInfo))
		assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo-1))
	default:
		assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))
		assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug-1))
	}
}

//nolint:tparallel // Changes the global default logger.
func TestSetVerbosity(t *testing.T) {
	tests := map[string]struct {
		pattern []int
	}{
		"Info":            {pattern: []int{1}},
		"None":            {pattern: []int{0}},
		"Info none":       {pattern: []int{1, 0}},
		"Info debug":      {pattern: []int{1, 2}},
		"Info debug none": {pattern: []int{1, 2, 0}},
		"Debug":           {pattern: []int{2}},
		"More than debug": {pattern: []int{5}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			slog.SetDefault(&defaultLogger)

			for _, p := range tc.pattern {
				cli.SetVerbosity(p)
				assertLevel(t, p)
			}
		})
	}
}

//nolint:tparallel // Changes the global default logger.
func TestSetSlog(t *testing.T) {
	tests := map[string]struct {
		level   int
		jsonLog bool
	}{
		"Info":       {level: 1},
		"Debug":      {level: 2},
		"None":       {level: 0},
		"Info JSON":  {level: 1, jsonLog: true},
		"Debug JSON": {level: 2, jsonLog: true},
		"None JSON":  {level: 0, jsonLog: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			slog.SetDefault(&defaultLogger)
			defer slog.SetDefault(&defaultLogger)

			var buf bytes.Buffer
			cli.SetSlogTo(&buf, tc.level, tc.jsonLog)
			assertLevel(t, tc.level)

			slog.Warn("sample", "key", "value")
			slog.Debug("debug sample")
			if tc.level < 2 {
				require.NotContains(t, buf.String(), "debug sample", "Debug records should be filtered out")
			}
			if !tc.jsonLog {
				require.Contains(t, buf.String(), "msg=sample key=value", "Logs should be text")
				return
			}

			buf.Truncate(bytes.IndexByte(buf.Bytes(), '\n') + 1)

			var rec map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), "Logs should be JSON")
			require.Equal(t, "sample", rec["msg"])
			require.Equal(t, "value", rec["key"])
		})
	}
}

//nolint:tparallel // Changes the global default logger.
func TestSetVerbosityAfterSetSlog(t *testing.T) {
	slog.SetDefault(&defaultLogger)
	defer slog.SetDefault(&defaultLogger)

	var buf bytes.Buffer
	cli.SetSlogTo(&buf, 0, false)
	slog.Debug("hidden")
	require.Empty(t, buf.String(), "Debug records should be filtered out by default")

	cli.SetVerbosity(2)
	slog.Debug("shown")
	require.Contains(t, buf.String(), "msg=shown", "Raising the verbosity should apply to the installed logger")
}
