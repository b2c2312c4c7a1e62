package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/script-generator/internal/observability"
	"github.com/jonathan/script-generator/internal/types"
	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		in       string
		template string
		asJSON   bool
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compute metrics for a script and check it against a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			script, err := readText(cmd, in)
			if err != nil {
				return err
			}
			client, err := root.client()
			if err != nil {
				return err
			}

			report, err := client.ValidateScript(cmd.Context(), types.ValidateRequest{
				Script:       script,
				TemplateName: firstNonEmpty(template, root.cfg.Template),
			})
			if err != nil {
				return fmt.Errorf("failed to validate script: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				observability.NewPrinter(cmd.OutOrStdout()).PrintValidation(report)
			}

			if failed := report.FailedChecks(); strict && len(failed) > 0 {
				return fmt.Errorf("quality checks failed: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in, "in", "i", "", "Path to script file (default: stdin)")
	f.StringVarP(&template, "template", "t", "", "Template id to check compliance against")
	f.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	f.BoolVar(&strict, "strict", false, "Exit with an error when any quality check fails")
	return cmd
}
