package commands

import (
	"bytes"

	"github.com/reporteria/reportviewer/internal/pdfexport"
	"github.com/spf13/cobra"
)

func installExportCmd(app *App) {
	var output string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export a report as a PDF document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, _, err := loadReport(args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := pdfexport.Write(&buf, vm, pdfexport.Options{Now: app.opts.now}); err != nil {
				return err
			}
			return writeOutput(app, cmd, output, buf.Bytes())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "reporte.pdf", "PDF file to write, or empty for the standard output")
	if err := cmd.MarkFlagFilename("output", "pdf"); err != nil {
		// This should never happen.
		panic(err)
	}

	app.cmd.AddCommand(cmd)
}
