// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration and cache paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "reportviewer"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "reportviewer"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// Placeholder is the display value substituted for missing or malformed report data.
	Placeholder = "-"

	// FirewallPlaceholder is the display value used when the report carries no firewall state.
	// It intentionally differs from Placeholder.
	FirewallPlaceholder = "No disponible"

	// SectionFailedText is displayed in place of a section that could not be built or rendered.
	SectionFailedText = "No se pudo cargar esta sección"

	// HistoryKey is the key under which the report history is stored.
	HistoryKey = "reportHistory"

	// HistoryCapacity is the maximum number of reports kept in the history.
	HistoryCapacity = 5

	// DefaultRAMAlertPercent is the RAM usage above which a warning is raised.
	DefaultRAMAlertPercent = 80.0

	// DefaultUptimeAlertDays is the number of days of uptime above which a warning is raised.
	DefaultUptimeAlertDays = 7

	// EstimatedStoragePercent is the storage usage reported when disks exist but carry no usage data.
	EstimatedStoragePercent = 30.0

	// NotificationTimeout is how long a notification stays visible before it is dismissed automatically.
	NotificationTimeout = 5 * time.Second

	// ReportExtension is the default extension for the report files.
	ReportExtension = ".json"

	// HistoryFileBackend stores the history as JSON files in the cache directory.
	HistoryFileBackend = "file"

	// HistorySQLiteBackend stores the history in an embedded SQLite database.
	HistorySQLiteBackend = "sqlite"

	// HistoryDBName is the name of the SQLite database file in the cache directory.
	HistoryDBName = "history.db"

	// AlertsConfigName is the default name of the alert thresholds file.
	AlertsConfigName = "alerts.toml"
)

var (
	// Version is the version of the application.
	Version = "Dev"

	// DefaultConfigPath is the default app user configuration path. It's overridden when imported.
	DefaultConfigPath = filepath.Join(userConfigDir(os.UserConfigDir), DefaultAppFolder)

	// DefaultCachePath is the default app user cache path. It's overridden when imported.
	DefaultCachePath = filepath.Join(userCacheDir(os.UserCacheDir), DefaultAppFolder)
)

// userConfigDir returns the user configuration directory, or an empty string if it cannot be determined.
func userConfigDir(get func() (string, error)) string {
	dir, err := get()
	if err != nil {
		return ""
	}
	return dir
}

// userCacheDir returns the user cache directory, or an empty string if it cannot be determined.
func userCacheDir(get func() (string, error)) string {
	dir, err := get()
	if err != nil {
		return ""
	}
	return dir
}
