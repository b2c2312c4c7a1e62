package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/script-generator/internal/observability"
	"github.com/spf13/cobra"
)

func newTemplatesCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the available script templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}
			tmpls, err := client.Templates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load templates: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tmpls)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintTemplates(tmpls)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print templates as JSON")
	return cmd
}
