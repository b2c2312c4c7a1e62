package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jonathan/script-generator/internal/editor"
	"github.com/jonathan/script-generator/internal/ingestion"
	"github.com/jonathan/script-generator/internal/observability"
	"github.com/jonathan/script-generator/internal/research"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	in            string
	url           string
	topic         string
	maxPages      int
	useBrowser    bool
	template      string
	highlight     string
	previousTopic string
	export        string
	outDir        string
	out           string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a script from source material",
		Long: `Submits source text for generation, waits for the task to finish and prints
the script followed by its validation report.

Input comes from --in (a file uploaded to the server for text extraction),
--url (a web page fetched locally), --topic (pages found by web search) or stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.in, "in", "i", "", "Path to source file, or - for stdin (mutually exclusive with --url)")
	f.StringVarP(&opts.url, "url", "u", "", "URL to fetch source text from (mutually exclusive with --in)")
	f.StringVar(&opts.topic, "topic", "", "Research a topic on the web and use the results as source text")
	f.IntVar(&opts.maxPages, "max-pages", research.DefaultMaxPages, "Pages to collect with --topic")
	f.BoolVar(&opts.useBrowser, "use-browser", false, "Render JavaScript-heavy pages in headless Chrome (requires Chrome)")
	f.StringVarP(&opts.template, "template", "t", "", "Template id")
	f.StringVar(&opts.highlight, "highlight", "", "Concept to explain with an analogy")
	f.StringVar(&opts.previousTopic, "previous-topic", "", "Topic of the previous episode to call back to")
	f.StringVarP(&opts.export, "export", "e", "", "Also export the script in this format (txt, md, html, json, pdf)")
	f.StringVar(&opts.outDir, "out-dir", "", "Directory for exported files (default: current directory)")
	f.StringVarP(&opts.out, "out", "o", "", "Write the script to this file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("in", "url", "topic")

	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg := root.cfg
	outDir := firstNonEmpty(opts.outDir, cfg.OutDir, ".")
	exportFormat := firstNonEmpty(opts.export, cfg.ExportFormat)

	client, err := root.client()
	if err != nil {
		return err
	}
	downloads := &editor.DirDownloader{Dir: outDir}
	session := editor.New(client, editor.Options{
		PollInterval: cfg.PollEvery(),
		ExportFormat: exportFormat,
		Downloader:   downloads,
		Verbose:      cfg.Verbose,
	})
	defer session.Close()

	if err := loadInput(ctx, cmd, session, opts, cfg.Verbose); err != nil {
		return err
	}

	if err := session.SelectTemplate(firstNonEmpty(opts.template, cfg.Template)); err != nil {
		return err
	}
	if err := session.SetHighlightedConcept(firstNonEmpty(opts.highlight, cfg.HighlightedConcept)); err != nil {
		return err
	}
	if err := session.SetPreviousTopic(firstNonEmpty(opts.previousTopic, cfg.PreviousTopic)); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if cfg.Verbose {
		unsubscribe := session.Subscribe(stageLogger(stderr))
		defer unsubscribe()
	}

	taskID, err := session.SubmitGeneration(ctx)
	if err != nil {
		return sessionError(session, err)
	}
	fmt.Fprintf(stderr, "Submitted task %s\n", taskID) //nolint:errcheck

	if err := session.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted; task %s keeps running on the server", taskID)
		}
		return err
	}

	state := session.State()
	if err := writeScript(cmd, opts.out, state.Script); err != nil {
		return err
	}
	observability.NewPrinter(stderr).PrintValidation(state.Validation)

	if exportFormat != "" {
		if err := session.SubmitExport(ctx); err != nil {
			return sessionError(session, err)
		}
		fmt.Fprintf(stderr, "Exported: %s\n", downloads.Saved) //nolint:errcheck
	}
	return nil
}

// stageLogger reports phase and stage changes as they happen.
func stageLogger(w io.Writer) func(editor.State) {
	var last string
	return func(st editor.State) {
		current := string(st.Phase)
		if st.Phase == editor.PhasePolling && st.Stage != "" {
			current += " (" + string(st.Stage) + ")"
		}
		if current != last {
			fmt.Fprintf(w, "[generate] %s\n", current) //nolint:errcheck
			last = current
		}
	}
}

// loadInput fills the session input from --topic, --url, --in or stdin.
func loadInput(ctx context.Context, cmd *cobra.Command, session *editor.Session, opts *generateOptions, verbose bool) error {
	switch {
	case opts.topic != "":
		corpus, err := gatherTopic(ctx, opts.topic, opts.maxPages, opts.useBrowser, verbose)
		if err != nil {
			return err
		}
		for _, src := range corpus.Sources {
			fmt.Fprintf(cmd.ErrOrStderr(), "Source: %s\n", src.URL) //nolint:errcheck
		}
		return session.SetInput(corpus.Text)

	case opts.url != "":
		text, err := ingestion.FromURL(ctx, opts.url, ingestion.URLOptions{UseBrowser: opts.useBrowser, Verbose: verbose})
		if err != nil {
			return fmt.Errorf("failed to ingest from URL: %w", err)
		}
		return session.SetInput(text)

	case opts.in != "" && opts.in != "-":
		f, err := os.Open(opts.in)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", opts.in, err)
		}
		defer f.Close()
		if err := session.UploadFile(ctx, filepath.Base(opts.in), f); err != nil {
			return err
		}
		return nil

	default:
		text, err := readText(cmd, opts.in)
		if err != nil {
			return err
		}
		return session.SetInput(text)
	}
}

func writeScript(cmd *cobra.Command, path, script string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), script)
		return err
	}
	if err := os.WriteFile(path, []byte(script+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

// sessionError prefers the message the session recorded for the user.
func sessionError(session *editor.Session, err error) error {
	if msg := session.State().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
