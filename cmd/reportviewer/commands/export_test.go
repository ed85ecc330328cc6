package commands

import (
	"io"
	"time"
)

type (
	AppConfig = appConfig
)

// WithOutput redirects the command output to w.
func WithOutput(w io.Writer) Options {
	return func(o *options) {
		o.out = w
	}
}

// WithNow overrides the clock used to date exported documents.
func WithNow(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// SetArgs set some arguments on root command for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetSilenceUsage set the SilenceUsage flag on root command for tests.
func (a *App) SetSilenceUsage(silence bool) {
	a.cmd.SilenceUsage = silence
}

// ServerAddr returns the address the web viewer listens on, or an empty string when it is not running.
func (a *App) ServerAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.daemon == nil {
		return ""
	}
	return a.daemon.Addr()
}
