package main

import (
	"fmt"
	"time"

	"github.com/jonathan/script-generator/internal/apiclient"
	"github.com/jonathan/script-generator/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags. After PersistentPreRunE, cfg is the
// config file merged under the flags.
type rootOptions struct {
	server       string
	token        string
	configPath   string
	pollInterval time.Duration
	verbose      bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "script_agent",
		Short: "Video script generator",
		Long: `Turns source material into a narration script with readability, structure
and engagement metrics, validates it against a template and exports it.

Run "script_agent serve" to start the API server; the other commands talk to it.
Configuration can be loaded from a JSON file using --config. Command-line flags
override config file values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", fmt.Sprintf("API base URL (default %s)", config.DefaultServerURL))
	flags.StringVar(&opts.token, "token", "", "Bearer token (defaults to SCRIPT_AGENT_TOKEN env var)")
	flags.StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.DurationVar(&opts.pollInterval, "poll-interval", 0, "How often to check generation status (default 2s)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print detailed progress information")

	cmd.AddCommand(
		newServeCmd(),
		newTemplatesCmd(opts),
		newUploadCmd(opts),
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newExportCmd(opts),
		newEditorCmd(opts),
		newResearchCmd(opts),
		newTokenCmd(),
	)
	return cmd
}

// resolve loads the config file and lays the flags over it.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	var fileCfg config.Config
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		fileCfg = *loaded
	}

	flagCfg := config.Config{
		Server: o.server,
		Token:  o.token,
	}
	if flagCfg.Token == "" {
		flagCfg.Token = config.EnvString("SCRIPT_AGENT_TOKEN", "")
	}
	if cmd.Flags().Changed("poll-interval") {
		flagCfg.PollInterval = o.pollInterval.String()
	}
	if err := flagCfg.Validate(); err != nil {
		return err
	}

	o.cfg = flagCfg.MergeWithDefaults(fileCfg)
	o.cfg.Verbose = o.verbose || fileCfg.Verbose
	return nil
}

func (o *rootOptions) client() (*apiclient.Client, error) {
	c, err := apiclient.New(apiclient.Options{BaseURL: o.cfg.Server, Token: o.cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, nil
}
