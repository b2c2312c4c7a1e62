package main

import (
	"context"
	"fmt"

	"github.com/jonathan/script-generator/internal/config"
	"github.com/jonathan/script-generator/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start an HTTP server that exposes the script generation API.

GEMINI_API_KEY is required. DATABASE_URL selects the Postgres task store;
without it tasks are kept in memory. JWT_SECRET enables bearer authentication.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			srv, err := server.New(context.Background(), cfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on (overrides PORT)")
	return cmd
}
