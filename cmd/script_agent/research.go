package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/script-generator/internal/config"
	"github.com/jonathan/script-generator/internal/research"
	"github.com/spf13/cobra"
)

// newSearcher builds the web searcher for topic research.
var newSearcher = func(ctx context.Context) (research.Searcher, error) {
	cfg, err := config.LoadSearchConfig()
	if err != nil {
		return nil, err
	}
	return research.NewGoogleSearcher(ctx, cfg.APIKey, cfg.EngineID)
}

// gatherTopic searches the web for topic and returns the combined page text.
func gatherTopic(ctx context.Context, topic string, maxPages int, useBrowser, verbose bool) (*research.Corpus, error) {
	searcher, err := newSearcher(ctx)
	if err != nil {
		return nil, err
	}
	corpus, err := research.Gather(ctx, topic, searcher, research.Options{
		MaxPages:   maxPages,
		UseBrowser: useBrowser,
		Verbose:    verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to research topic: %w", err)
	}
	return corpus, nil
}

func newResearchCmd(root *rootOptions) *cobra.Command {
	var (
		maxPages   int
		useBrowser bool
		out        string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "research <topic>",
		Short: "Collect source material for a topic from the web",
		Long: `Searches Google Custom Search for the topic, fetches the top pages and prints
their combined text. Requires GOOGLE_SEARCH_CX and GOOGLE_SEARCH_API_KEY
(or GEMINI_API_KEY).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, err := gatherTopic(cmd.Context(), args[0], maxPages, useBrowser, root.cfg.Verbose)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			for _, src := range corpus.Sources {
				fmt.Fprintf(stderr, "Source: %s (%d chars)\n", src.URL, src.Chars) //nolint:errcheck
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(corpus)
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(corpus.Text+"\n"), 0o644); err != nil {
					return fmt.Errorf("failed to write corpus: %w", err)
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), corpus.Text)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&maxPages, "max-pages", research.DefaultMaxPages, "Number of pages to collect")
	f.BoolVar(&useBrowser, "use-browser", false, "Render JavaScript-heavy pages in headless Chrome (requires Chrome)")
	f.StringVarP(&out, "out", "o", "", "Write the text to this file instead of stdout")
	f.BoolVar(&asJSON, "json", false, "Print sources and text as JSON")
	return cmd
}
