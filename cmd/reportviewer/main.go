// Package main is the entry point for the report viewer.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/reporteria/reportviewer/cmd/reportviewer/commands"
	"github.com/reporteria/reportviewer/internal/constants"
)

// Exit codes.
const (
	exitOK = iota
	exitRuntimeError
	exitUsageError
)

func main() {
	a, err := commands.New()
	if err != nil {
		slog.Error("Could not set up the command line", "err", err)
		os.Exit(exitRuntimeError)
	}

	os.Exit(run(a))
}

type app interface {
	Run() error
	UsageError() bool
	Hup() bool
	Quit()
}

// run executes a until it returns, forwarding termination signals to it, and returns the process exit code.
func run(a app) int {
	stop := handleSignals(a)
	err := a.Run()
	stop()

	switch {
	case err == nil:
		return exitOK
	case a.UsageError():
		slog.Error(err.Error())
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", constants.CmdName)
		return exitUsageError
	default:
		slog.Error(err.Error())
		return exitRuntimeError
	}
}

// handleSignals makes SIGINT and SIGTERM quit a, and SIGHUP call a.Hup, quitting only if it asks to.
// The returned function stops the handling and waits for it to end.
func handleSignals(a app) (stop func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for sig := range c {
			slog.Debug("Signal received", "signal", sig)
			if sig == syscall.SIGHUP && !a.Hup() {
				continue
			}
			a.Quit()
			return
		}
	}()

	return func() {
		signal.Stop(c)
		close(c)
		wg.Wait()
	}
}
