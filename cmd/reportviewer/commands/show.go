package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/reporteria/reportviewer/internal/notify"
	"github.com/reporteria/reportviewer/internal/rawreport"
	"github.com/reporteria/reportviewer/internal/render"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type showConfig struct {
	format   string
	search   string
	sections []string
}

func installShowCmd(app *App) {
	var conf showConfig

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Show a report in the terminal",
		Long: `Show a report in the terminal, or print its view model as JSON or YAML.

The report is added to the history and the alerts it raises are logged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains([]string{formatText, formatJSON, formatYAML}, conf.format) {
				app.cmd.SilenceUsage = false
				return fmt.Errorf("invalid format %q: must be %q, %q or %q", conf.format, formatText, formatJSON, formatYAML)
			}
			sections, err := parseSections(conf.sections)
			if err != nil {
				app.cmd.SilenceUsage = false
				return err
			}

			vm, data, err := loadReport(args[0])
			if err != nil {
				return err
			}

			if err := writeViewModel(app.out(cmd), vm, conf.format, render.TerminalOptions{Query: conf.search, Sections: sections}); err != nil {
				return fmt.Errorf("could not write report: %v", err)
			}

			notify.Log(cmd.Context(), slog.Default(), notify.FromAlerts(viewmodel.EvaluateAlerts(vm, app.thresholds()))...)
			app.recordHistory(filepath.Base(args[0]), data)
			return nil
		},
	}

	cmd.Flags().StringVarP(&conf.format, "format", "f", formatText, fmt.Sprintf("output format: %q, %q or %q", formatText, formatJSON, formatYAML))
	cmd.Flags().StringVarP(&conf.search, "search", "s", "", "only list the installed programs matching this text")
	cmd.Flags().StringSliceVar(&conf.sections, "sections", nil, "comma-separated sections to show (hardware, software, network, security)")

	app.cmd.AddCommand(cmd)
}

// loadReport reads and parses the report in path, returning its view model and the raw JSON.
func loadReport(path string) (viewmodel.ViewModel, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return viewmodel.ViewModel{}, nil, fmt.Errorf("could not read report: %v", err)
	}

	report, err := rawreport.Parse(data)
	if err != nil {
		return viewmodel.ViewModel{}, nil, fmt.Errorf("could not load %s: %w", path, err)
	}
	slog.Debug("Report parsed", "file", path)

	return viewmodel.Build(report), data, nil
}

func writeViewModel(w io.Writer, vm viewmodel.ViewModel, format string, opts render.TerminalOptions) error {
	if format != formatText && opts.Query != "" {
		vm.Software.Programs.Items = viewmodel.FilterPrograms(vm.Software.Programs.Items, opts.Query)
	}

	switch format {
	case formatJSON:
		b, err := json.MarshalIndent(vm, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(vm); err != nil {
			return err
		}
		return enc.Close()
	default:
		return render.Terminal(w, vm, opts)
	}
}

func parseSections(names []string) ([]viewmodel.Section, error) {
	sections := make([]viewmodel.Section, 0, len(names))
	for _, n := range names {
		s := viewmodel.Section(n)
		if !slices.Contains(viewmodel.Tabs, s) {
			return nil, fmt.Errorf("unknown section %q", n)
		}
		sections = append(sections, s)
	}
	return sections, nil
}
