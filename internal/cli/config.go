// Package cli provides utility functions for command line interface applications.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitViperConfig initializes the Viper configuration for a command.
//
// The configuration file is the one given with --config, or cmdName.{toml,yaml,json} found in the first of configDirs
// holding one. Environment variables prefixed with the upper-cased cmdName override it: REPORTVIEWER_CACHE_DIR sets
// cache-dir.
func InitViperConfig(cmdName string, cmd *cobra.Command, vip *viper.Viper) error {
	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName(cmdName)
		for _, dir := range configDirs(cmdName) {
			vip.AddConfigPath(dir)
		}
	}

	if err := vip.ReadInConfig(); err != nil {
		if !errors.As(err, new(viper.ConfigFileNotFoundError)) {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
		slog.Info("No configuration file, using defaults, environment and flags", "err", err)
	} else {
		slog.Info("Using configuration file", "file", vip.ConfigFileUsed())
	}

	return bindEnv(vip, cmdName, os.Environ())
}

// configDirs lists the directories searched for the configuration file, by decreasing priority.
func configDirs(cmdName string) []string {
	dirs := []string{"."}
	if constants.DefaultConfigPath != "" {
		dirs = append(dirs, constants.DefaultConfigPath)
	}

	if runtime.GOOS == "windows" {
		dirs = append(dirs, filepath.Join("C:\\ProgramData", cmdName))
	} else {
		dirs = append(dirs, filepath.Join("/etc", cmdName))
	}

	if binPath, err := os.Executable(); err != nil {
		slog.Warn("Failed to get current executable path, not adding it as a config dir", "err", err)
	} else {
		dirs = append(dirs, filepath.Dir(binPath))
	}
	return dirs
}

// bindEnv binds every variable of environ prefixed by the command name to its configuration key.
//
// AutomaticEnv alone is not seen by Unmarshal: each key has to be bound explicitly.
// More context on https://github.com/spf13/viper/pull/1429.
func bindEnv(vip *viper.Viper, cmdName string, environ []string) error {
	vip.SetEnvPrefix(cmdName)
	vip.AutomaticEnv()

	prefix := strings.ToUpper(strings.ReplaceAll(cmdName, "-", "_")) + "_"
	for _, e := range environ {
		name, _, _ := strings.Cut(e, "=")
		suffix, ok := strings.CutPrefix(name, prefix)
		if !ok || suffix == "" {
			continue
		}

		key := strings.ToLower(strings.ReplaceAll(suffix, "_", "-"))
		if err := vip.BindEnv(key, name); err != nil {
			return fmt.Errorf("could not bind environment variable %s: %w", name, err)
		}
	}
	return nil
}

// InstallConfigFlag adds a config flag to the command.
func InstallConfigFlag(cmd *cobra.Command) *string {
	return cmd.PersistentFlags().String("config", "", "use a specific configuration file")
}

// Unmarshal decodes the configuration in vip into target.
// Durations may be given as strings ("5s") and lists as comma-separated strings.
func Unmarshal(vip *viper.Viper, target any) error {
	return vip.Unmarshal(target, viper.DecodeHook(DecodeHook()))
}

// DecodeHook returns the hooks used to decode configuration values.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
