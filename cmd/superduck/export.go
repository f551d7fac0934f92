package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [path...]",
	Short: "Export catalog entries to a file",
	Long: `Write the entries under the given paths (the whole catalog by default)
as csv, tsv, json, yaml, pdf or an indented tree.

The format defaults to the output file extension, then to export.format in
the config file.`,
	RunE: runExport,
}

var (
	exportFormat    string
	exportOutput    string
	exportFullPaths bool
	exportFilter    string
	exportGlobs     []string
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: "+strings.Join(export.Available(), ", "))
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportFullPaths, "full-paths", true, "write full keys instead of names")
	exportCmd.Flags().StringVarP(&exportFilter, "filter", "f", "", "only export entries whose name contains this text")
	exportCmd.Flags().StringSliceVarP(&exportGlobs, "glob", "g", nil, "only export paths matching these patterns")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	app, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	format := exportFormat
	if format == "" && exportOutput != "" {
		format = export.FormatForFile(exportOutput)
	}
	if format == "" {
		format = app.Config.Export.Format
	}
	fullPaths := app.Config.Export.FullPaths
	if cmd.Flags().Changed("full-paths") {
		fullPaths = exportFullPaths
	}

	c := app.Catalog()
	c.SetFilter(exportFilter)
	ids, err := selection(c, args)
	if err != nil {
		return err
	}
	rows := c.Collect(ids, fullPaths)

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := export.Write(w, format, rows, export.Options{Include: exportGlobs}); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if exportOutput != "" {
		printInfo("Exported %d entries to %s (%s)", len(rows), exportOutput, format)
	}
	return nil
}
