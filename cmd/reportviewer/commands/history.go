package commands

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/reporteria/reportviewer/internal/rawreport"
	"github.com/reporteria/reportviewer/internal/render"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/spf13/cobra"
)

func installHistoryCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the recently loaded reports",
		Long:  "List, show or clear the recently loaded reports. Without a subcommand, the history is listed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.listHistory(cmd)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the recently loaded reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.listHistory(cmd)
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show N",
		Short: "Show the report at index N of the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				app.cmd.SilenceUsage = false
				return fmt.Errorf("invalid history index %q: %v", args[0], err)
			}
			if !slices.Contains([]string{formatText, formatJSON, formatYAML}, format) {
				app.cmd.SilenceUsage = false
				return fmt.Errorf("invalid format %q: must be %q, %q or %q", format, formatText, formatJSON, formatYAML)
			}
			return app.showHistory(cmd, i, format)
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", formatText, fmt.Sprintf("output format: %q, %q or %q", formatText, formatJSON, formatYAML))

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every report from the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Clear()
		},
	}

	cmd.AddCommand(listCmd, showCmd, clearCmd)
	app.cmd.AddCommand(cmd)
}

func (a *App) listHistory(cmd *cobra.Command) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return err
	}

	w := a.out(cmd)
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No hay reportes recientes")
		return err
	}

	r := lipgloss.NewRenderer(w)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers("#", "Fecha", "Archivo")
	for i, rec := range records {
		t.Row(strconv.Itoa(i), rec.Date.Local().Format("2006-01-02 15:04"), rec.Name)
	}

	_, err = fmt.Fprintln(w, t.String())
	return err
}

func (a *App) showHistory(cmd *cobra.Command, i int, format string) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(i)
	if err != nil {
		return err
	}

	report, err := rawreport.Parse(rec.Data)
	if err != nil {
		return fmt.Errorf("could not load history entry %d: %w", i, err)
	}
	return writeViewModel(a.out(cmd), viewmodel.Build(report), format, render.TerminalOptions{})
}
