// Package commands implements the reportviewer command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/reporteria/reportviewer/internal/cli"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/history"
	"github.com/reporteria/reportviewer/internal/server"
	"github.com/reporteria/reportviewer/internal/server/config"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig
	opts   options

	daemon *server.Server
	mu     sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
}

// appConfig holds the configuration shared by every command.
type appConfig struct {
	Verbosity      int    `mapstructure:"verbose"`
	JSONLogs       bool   `mapstructure:"json-logs"`
	CacheDir       string `mapstructure:"cache-dir"`
	HistoryBackend string `mapstructure:"history-backend"`
	AlertsConfig   string `mapstructure:"alerts-config"`

	Serve serveConfig `mapstructure:",squash"`
}

type options struct {
	now func() time.Time
	out io.Writer
}

// Options represents an optional function to override App default values.
type Options func(*options)

// New creates a new App instance with default values.
func New(args ...Options) (*App, error) {
	a := App{ready: make(chan struct{})}
	for _, opt := range args {
		opt(&a.opts)
	}
	if a.opts.now == nil {
		a.opts.now = time.Now
	}

	a.cmd = &cobra.Command{
		Use:           constants.CmdName,
		Short:         "View system inventory reports",
		Long:          "View system inventory JSON reports in the terminal, as HTML or PDF documents, or through a local web viewer.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, cmd, a.viper); err != nil {
				return err
			}
			if err := cli.Unmarshal(a.viper, &a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}
			slog.Debug("got app config", "config", a.config)

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Update logging after loading config if necessary

			switch a.config.HistoryBackend {
			case constants.HistoryFileBackend, constants.HistorySQLiteBackend:
			default:
				a.cmd.SilenceUsage = false
				return fmt.Errorf("unknown history backend %q: must be %q or %q", a.config.HistoryBackend, constants.HistoryFileBackend, constants.HistorySQLiteBackend)
			}
			return nil
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	installShowCmd(&a)
	installRenderCmd(&a)
	installExportCmd(&a)
	installHistoryCmd(&a)
	if err := installServeCmd(&a); err != nil {
		return nil, err
	}
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "enable JSON formatted logs")
	cmd.PersistentFlags().StringVar(&app.config.CacheDir, "cache-dir", constants.DefaultCachePath, "directory holding the report history")
	cmd.PersistentFlags().StringVar(&app.config.HistoryBackend, "history-backend", constants.HistoryFileBackend,
		fmt.Sprintf("history storage: %q or %q", constants.HistoryFileBackend, constants.HistorySQLiteBackend))
	cmd.PersistentFlags().StringVar(&app.config.AlertsConfig, "alerts-config", filepath.Join(constants.DefaultConfigPath, constants.AlertsConfigName),
		"TOML file holding the alert thresholds")

	if err := cmd.MarkPersistentFlagDirname("cache-dir"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark cache-dir flag as directory: %v", err))
	}
	if err := cmd.MarkPersistentFlagFilename("alerts-config", "toml"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark alerts-config flag as filename: %v", err))
	}
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	defer a.markReady()
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a *App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Hup prints all goroutine stack traces and return false to signal you shouldn't quit.
func (a *App) Hup() (shouldQuit bool) {
	buf := make([]byte, 1<<16)
	runtime.Stack(buf, true)
	fmt.Printf("%s", buf)
	return false
}

// Quit gracefully shuts down the web viewer, if it is running.
func (a *App) Quit() {
	a.WaitReady()

	a.mu.Lock()
	d := a.daemon
	a.mu.Unlock()
	if d != nil {
		d.Quit(false)
	}
}

// WaitReady waits until the web viewer is created, or the command has returned.
func (a *App) WaitReady() {
	<-a.ready
}

func (a *App) markReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}

// RootCmd returns the root command.
func (a *App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) out(cmd *cobra.Command) io.Writer {
	if a.opts.out != nil {
		return a.opts.out
	}
	return cmd.OutOrStdout()
}

// openHistory opens the configured history store. The caller must close it.
func (a *App) openHistory() (*history.Store, error) {
	kv, err := history.Open(a.config.HistoryBackend, a.config.CacheDir)
	if err != nil {
		return nil, err
	}
	return history.New(kv, history.WithNow(a.opts.now)), nil
}

// recordHistory adds a report to the history. Failures are only logged: the report was still shown.
func (a *App) recordHistory(name string, data []byte) {
	store, err := a.openHistory()
	if err != nil {
		slog.Warn("Could not open report history", "err", err)
		return
	}
	defer store.Close()

	if err := store.Add(name, data); err != nil {
		slog.Warn("Could not add report to history", "file", name, "err", err)
	}
}

// thresholds returns the configured alert thresholds, or the defaults when they cannot be loaded.
func (a *App) thresholds() viewmodel.Thresholds {
	cm := config.New(a.config.AlertsConfig)
	if err := cm.Load(); err != nil {
		slog.Warn("Could not load alert thresholds, using defaults", "path", a.config.AlertsConfig, "err", err)
	}
	return cm.Thresholds()
}
