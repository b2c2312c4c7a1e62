package main

import (
	"fmt"

	"github.com/jonathan/script-generator/internal/config"
	"github.com/jonathan/script-generator/internal/server"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Long:  "Sign a bearer token with JWT_SECRET for servers that have authentication enabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewJWTConfig()
			if err != nil {
				return err
			}
			token, err := server.NewJWTService(cfg).GenerateToken(subject)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (default: a random id)")
	return cmd
}
