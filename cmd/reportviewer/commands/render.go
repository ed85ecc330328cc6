package commands

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/fileutils"
	"github.com/reporteria/reportviewer/internal/render"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/spf13/cobra"
)

type renderConfig struct {
	output string
	dark   bool
	tab    string
	search string
}

func installRenderCmd(app *App) {
	var conf renderConfig

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a report as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if conf.tab != "" {
				if _, err := parseSections([]string{conf.tab}); err != nil {
					app.cmd.SilenceUsage = false
					return err
				}
			}

			vm, _, err := loadReport(args[0])
			if err != nil {
				return err
			}

			data := render.PageData{
				FileName:  filepath.Base(args[0]),
				VM:        &vm,
				Dark:      conf.dark,
				ActiveTab: viewmodel.Section(conf.tab),
				Query:     conf.search,
				Version:   constants.Version,
			}
			if fi, err := os.Stat(args[0]); err == nil {
				data.FileDate = fi.ModTime().Format("2006-01-02 15:04")
			}

			var buf bytes.Buffer
			if err := render.Page(&buf, data); err != nil {
				return err
			}
			return writeOutput(app, cmd, conf.output, buf.Bytes())
		},
	}

	cmd.Flags().StringVarP(&conf.output, "output", "o", "", "write the page to this file instead of the standard output")
	cmd.Flags().BoolVar(&conf.dark, "dark", false, "use the dark theme")
	cmd.Flags().StringVar(&conf.tab, "tab", string(viewmodel.SectionHardware), "tab shown first (hardware, software, network, security)")
	cmd.Flags().StringVarP(&conf.search, "search", "s", "", "only list the installed programs matching this text")

	app.cmd.AddCommand(cmd)
}

// writeOutput writes data to path atomically, or to the command output when path is empty.
func writeOutput(app *App, cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := app.out(cmd).Write(data)
		return err
	}

	if err := fileutils.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %v", path, err)
	}
	slog.Info("Output written", "file", path)
	return nil
}
