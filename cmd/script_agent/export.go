package main

import (
	"fmt"
	"strings"

	"github.com/jonathan/script-generator/internal/config"
	"github.com/jonathan/script-generator/internal/editor"
	"github.com/jonathan/script-generator/internal/types"
	"github.com/spf13/cobra"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		in     string
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a script as a downloadable document",
		Long:  "Render a script through the server in one of: " + strings.Join(config.ExportFormats, ", ") + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			script, err := readText(cmd, in)
			if err != nil {
				return err
			}
			format = firstNonEmpty(format, root.cfg.ExportFormat, editor.DefaultExportFormat)
			if !config.IsExportFormat(format) {
				return fmt.Errorf("unsupported export format %q (want one of %s)", format, strings.Join(config.ExportFormats, ", "))
			}
			client, err := root.client()
			if err != nil {
				return err
			}

			exp, err := client.ExportScript(cmd.Context(), types.ExportRequest{Script: script, Format: format})
			if err != nil {
				return fmt.Errorf("failed to export script: %w", err)
			}

			dl := &editor.DirDownloader{Dir: firstNonEmpty(outDir, root.cfg.OutDir, ".")}
			if err := dl.Download(exp.Filename, exp.ContentType, exp.Body); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported: %s\n", dl.Saved)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in, "in", "i", "", "Path to script file (default: stdin)")
	f.StringVarP(&format, "format", "f", "", "Export format (default txt)")
	f.StringVar(&outDir, "out-dir", "", "Directory for the exported file (default: current directory)")
	return cmd
}
