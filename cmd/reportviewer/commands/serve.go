package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/reporteria/reportviewer/internal/history"
	"github.com/reporteria/reportviewer/internal/server"
	"github.com/reporteria/reportviewer/internal/server/config"
	"github.com/spf13/cobra"
)

// serveConfig holds the web viewer settings.
type serveConfig struct {
	ListenHost string `mapstructure:"listen-host"`
	ListenPort int    `mapstructure:"listen-port"`

	MetricsHost string `mapstructure:"metrics-host"`
	MetricsPort int    `mapstructure:"metrics-port"`

	ReadTimeout    time.Duration `mapstructure:"read-timeout"`
	WriteTimeout   time.Duration `mapstructure:"write-timeout"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MaxHeaderBytes int           `mapstructure:"max-header-bytes"`
	MaxUploadBytes int           `mapstructure:"max-upload-bytes"`
}

// validate rejects settings with which no request could be served.
func (c serveConfig) validate() error {
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"read-timeout", c.ReadTimeout},
		{"write-timeout", c.WriteTimeout},
		{"request-timeout", c.RequestTimeout},
	} {
		if t.d <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", t.name, t.d)
		}
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max-upload-bytes %d: must be positive", c.MaxUploadBytes)
	}
	return nil
}

func installServeCmd(app *App) error {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web viewer",
		Long: `Start the web viewer, where reports can be uploaded, browsed, searched and exported.

Alert thresholds are reloaded whenever the alerts configuration file changes.
A negative metrics port disables the metrics endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.config.Serve.validate(); err != nil {
				app.cmd.SilenceUsage = false
				return err
			}
			return app.serve()
		},
	}

	defaultConf := serveConfig{
		ListenHost: "localhost",
		ListenPort: 8080,

		MetricsHost: "localhost",
		MetricsPort: 2112,

		ReadTimeout:    5 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 20 * time.Second,
		MaxHeaderBytes: 1 << 13, // 8 KB
		MaxUploadBytes: 1 << 24, // 16 MB
	}
	conf := &app.config.Serve

	cmd.Flags().StringVar(&conf.ListenHost, "listen-host", defaultConf.ListenHost, "host to listen on")
	cmd.Flags().IntVar(&conf.ListenPort, "listen-port", defaultConf.ListenPort, "port to listen on")

	cmd.Flags().StringVar(&conf.MetricsHost, "metrics-host", defaultConf.MetricsHost, "host for the metrics endpoint")
	cmd.Flags().IntVar(&conf.MetricsPort, "metrics-port", defaultConf.MetricsPort, "port for the metrics endpoint, negative to disable it")

	cmd.Flags().DurationVar(&conf.ReadTimeout, "read-timeout", defaultConf.ReadTimeout, "read timeout for HTTP server")
	cmd.Flags().DurationVar(&conf.WriteTimeout, "write-timeout", defaultConf.WriteTimeout, "write timeout for HTTP server")
	cmd.Flags().DurationVar(&conf.RequestTimeout, "request-timeout", defaultConf.RequestTimeout, "request timeout for HTTP server")
	cmd.Flags().IntVar(&conf.MaxHeaderBytes, "max-header-bytes", defaultConf.MaxHeaderBytes, "maximum header bytes for HTTP server")
	cmd.Flags().IntVar(&conf.MaxUploadBytes, "max-upload-bytes", defaultConf.MaxUploadBytes, "maximum size of an uploaded report")

	if err := app.viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	app.cmd.AddCommand(cmd)
	return nil
}

func (a *App) serve() (err error) {
	// Unblock Quit whatever happens.
	defer a.markReady()

	alertsPath := a.config.AlertsConfig
	if alertsPath != "" {
		if alertsPath, err = filepath.Abs(alertsPath); err != nil {
			return fmt.Errorf("failed to get absolute path for alerts configuration: %v", err)
		}
	}

	kv, err := history.Open(a.config.HistoryBackend, a.config.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to open history: %v", err)
	}
	store := history.New(kv, history.WithNow(a.opts.now))
	defer store.Close()

	sc := a.config.Serve
	d, err := server.New(context.Background(), config.New(alertsPath), store, server.StaticConfig{
		ConfigPath:     alertsPath,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		RequestTimeout: sc.RequestTimeout,
		MaxHeaderBytes: sc.MaxHeaderBytes,
		MaxUploadBytes: sc.MaxUploadBytes,
		ListenHost:     sc.ListenHost,
		ListenPort:     sc.ListenPort,
		MetricsHost:    sc.MetricsHost,
		MetricsPort:    sc.MetricsPort,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	a.mu.Lock()
	a.daemon = d
	a.mu.Unlock()
	a.markReady()

	return d.Run()
}
