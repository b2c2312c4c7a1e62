package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/script-generator/internal/config"
	"github.com/jonathan/script-generator/internal/editor"
	"github.com/jonathan/script-generator/internal/observability"
	"github.com/jonathan/script-generator/internal/types"
	"github.com/spf13/cobra"
)

// Editor menu actions.
const (
	actionEnterText = "Enter source text"
	actionUpload    = "Upload a file"
	actionTemplate  = "Choose template"
	actionConcept   = "Set highlighted concept"
	actionTopic     = "Set previous topic"
	actionGenerate  = "Generate script"
	actionEdit      = "Edit script"
	actionValidate  = "Validate script"
	actionExport    = "Export script"
	actionQuit      = "Quit"
)

const noTemplate = "(none)"

func newEditorCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "editor",
		Short: "Interactive script editor",
		Long: `Opens an interactive session: enter or upload source material, pick a
template, generate, edit, validate and export the script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}
			cfg := root.cfg
			session := editor.New(client, editor.Options{
				PollInterval: cfg.PollEvery(),
				ExportFormat: cfg.ExportFormat,
				Downloader:   &editor.DirDownloader{Dir: firstNonEmpty(cfg.OutDir, ".")},
				Verbose:      cfg.Verbose,
			})
			defer session.Close()

			if cfg.Template != "" {
				session.SelectTemplate(cfg.Template) //nolint:errcheck
			}
			session.SetHighlightedConcept(cfg.HighlightedConcept) //nolint:errcheck
			session.SetPreviousTopic(cfg.PreviousTopic)           //nolint:errcheck

			return runEditor(cmd.Context(), cmd.OutOrStdout(), session, surveyPrompter{})
		},
	}
}

// runEditor drives session from the menu until the user quits.
func runEditor(ctx context.Context, out io.Writer, session *editor.Session, p prompter) error {
	printer := observability.NewPrinter(out)

	session.LoadTemplates(ctx) //nolint:errcheck
	reportError(out, session)

	for {
		st := session.State()
		action, err := p.Select(menuTitle(st), menuOptions(st), defaultAction(st))
		if err != nil {
			if errors.Is(err, errAborted) {
				return nil
			}
			return err
		}

		switch action {
		case actionQuit:
			return nil
		case actionEnterText:
			err = enterText(session, p)
		case actionUpload:
			err = uploadFile(ctx, session, p)
		case actionTemplate:
			err = chooseTemplate(session, p)
		case actionConcept:
			err = promptField(p, "Highlighted concept:", st.HighlightedConcept, session.SetHighlightedConcept)
		case actionTopic:
			err = promptField(p, "Previous topic:", st.PreviousTopic, session.SetPreviousTopic)
		case actionGenerate:
			err = generate(ctx, out, session, printer)
		case actionEdit:
			err = editScript(session, p)
		case actionValidate:
			var report *types.ValidationReport
			if report, err = session.SubmitValidation(ctx); err == nil {
				printer.PrintValidation(report)
			}
		case actionExport:
			err = export(ctx, out, session, p)
		}

		if errors.Is(err, errAborted) {
			continue
		}
		if errors.Is(err, editor.ErrClosed) {
			return err
		}
		if !reportError(out, session) && err != nil {
			fmt.Fprintf(out, "Error: %v\n", err) //nolint:errcheck
		}
	}
}

func menuTitle(st editor.State) string {
	var parts []string
	if t, ok := st.Template(); ok {
		parts = append(parts, "template: "+t.Name)
	}
	if n := len(strings.Fields(st.Input)); n > 0 {
		parts = append(parts, fmt.Sprintf("input: %d words", n))
	}
	if n := len(strings.Fields(st.Script)); n > 0 {
		parts = append(parts, fmt.Sprintf("script: %d words", n))
	}
	if len(parts) == 0 {
		return "What next?"
	}
	return "What next? [" + strings.Join(parts, ", ") + "]"
}

func menuOptions(st editor.State) []string {
	options := []string{actionEnterText, actionUpload}
	if len(st.Templates) > 0 {
		options = append(options, actionTemplate)
	}
	options = append(options, actionConcept, actionTopic)
	if strings.TrimSpace(st.Input) != "" {
		options = append(options, actionGenerate)
	}
	if strings.TrimSpace(st.Script) != "" {
		options = append(options, actionEdit, actionValidate, actionExport)
	}
	return append(options, actionQuit)
}

func defaultAction(st editor.State) string {
	switch {
	case strings.TrimSpace(st.Script) != "":
		return actionExport
	case strings.TrimSpace(st.Input) != "":
		return actionGenerate
	default:
		return actionEnterText
	}
}

func enterText(session *editor.Session, p prompter) error {
	text, err := p.Multiline("Source text:")
	if err != nil {
		return err
	}
	return session.SetInput(text)
}

func uploadFile(ctx context.Context, session *editor.Session, p prompter) error {
	path, err := p.Input("File path:", "")
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return session.UploadFile(ctx, filepath.Base(path), f)
}

func chooseTemplate(session *editor.Session, p prompter) error {
	st := session.State()
	options := []string{noTemplate}
	for _, t := range st.Templates {
		options = append(options, t.ID)
	}
	def := noTemplate
	if st.TemplateID != "" {
		def = st.TemplateID
	}

	choice, err := p.Select("Template:", options, def)
	if err != nil {
		return err
	}
	if choice == noTemplate {
		choice = ""
	}
	return session.SelectTemplate(choice)
}

func promptField(p prompter, message, current string, set func(string) error) error {
	value, err := p.Input(message, current)
	if err != nil {
		return err
	}
	return set(strings.TrimSpace(value))
}

func generate(ctx context.Context, out io.Writer, session *editor.Session, printer *observability.Printer) error {
	unsubscribe := session.Subscribe(stageLogger(out))
	defer unsubscribe()

	if _, err := session.SubmitGeneration(ctx); err != nil {
		return err
	}
	if err := session.Wait(ctx); err != nil {
		return err
	}

	st := session.State()
	printer.PrintScriptPreview(st.Script, 12)
	printer.PrintValidation(st.Validation)
	return nil
}

func editScript(session *editor.Session, p prompter) error {
	text, err := p.Edit("Edit script", session.State().Script)
	if err != nil {
		return err
	}
	return session.SetScript(strings.TrimRight(text, "\n"))
}

func export(ctx context.Context, out io.Writer, session *editor.Session, p prompter) error {
	if err := session.OpenExportMenu(); err != nil {
		return err
	}
	format, err := p.Select("Export format:", config.ExportFormats, session.State().ExportFormat)
	if err != nil {
		session.CloseExportMenu() //nolint:errcheck
		return err
	}
	if err := session.SelectExportFormat(format); err != nil {
		return err
	}
	if err := session.SubmitExport(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Exported script.%s\n", format)
	return err
}

// reportError prints and clears the session's error message. It returns
// whether there was one.
func reportError(out io.Writer, session *editor.Session) bool {
	msg := session.State().Error
	if msg == "" {
		return false
	}
	fmt.Fprintf(out, "Error: %s\n", msg) //nolint:errcheck
	session.ClearError()                  //nolint:errcheck
	return true
}
