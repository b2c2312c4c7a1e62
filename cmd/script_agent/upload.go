package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Extract the text of a document through the server",
		Long:  "Upload a text, markdown or HTML file and print the text the server extracted from it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			content, err := client.UploadFile(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return fmt.Errorf("failed to upload file: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	}
}
