// Package generation turns source text into a narrator script: it chunks and
// summarizes long input, prompts the model, validates the result, and runs one
// improvement pass when quality checks fail.
package generation

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jonathan/script-generator/internal/analysis"
	"github.com/jonathan/script-generator/internal/llm"
	"github.com/jonathan/script-generator/internal/prompts"
	"github.com/jonathan/script-generator/internal/types"
	"golang.org/x/sync/errgroup"
)

const promptFile = "scriptwriter.json"

// DefaultMaxConcurrency bounds parallel chunk summarization calls.
const DefaultMaxConcurrency = 4

// TemplateSource resolves template ids.
type TemplateSource interface {
	Get(id string) (*types.Template, error)
}

// ProgressFunc is called each time generation enters a new stage.
type ProgressFunc func(stage types.TaskStage)

// Result is the output of a successful generation.
type Result struct {
	Script     string
	Validation *types.ValidationReport
	Chunks     int
	Improved   bool
}

// Generator runs the script generation pipeline.
type Generator struct {
	client    llm.Client
	analyzer  *analysis.Analyzer
	templates TemplateSource

	ChunkSize      int
	ChunkOverlap   int
	MaxConcurrency int
}

// New creates a Generator. templates may be nil when no template lookups are needed.
func New(client llm.Client, analyzer *analysis.Analyzer, templates TemplateSource) *Generator {
	return &Generator{
		client:         client,
		analyzer:       analyzer,
		templates:      templates,
		ChunkSize:      analysis.DefaultChunkSize,
		ChunkOverlap:   analysis.DefaultChunkOverlap,
		MaxConcurrency: DefaultMaxConcurrency,
	}
}

// Generate produces a script for req. progress may be nil.
func (g *Generator) Generate(ctx context.Context, req types.GenerateRequest, progress ProgressFunc) (*Result, error) {
	report := func(stage types.TaskStage) {
		if progress != nil {
			progress(stage)
		}
	}

	var tmpl *types.Template
	if req.TemplateName != "" {
		if g.templates == nil {
			return nil, fmt.Errorf("template %q requested but no templates are loaded", req.TemplateName)
		}
		t, err := g.templates.Get(req.TemplateName)
		if err != nil {
			return nil, err
		}
		tmpl = t
	}

	report(types.StageChunking)
	chunks := analysis.ChunkText(req.Content, g.ChunkSize, g.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("content is empty")
	}

	source := req.Content
	if len(chunks) > 1 {
		report(types.StageSummarizing)
		if err := g.summarize(ctx, chunks); err != nil {
			return nil, err
		}
		g.connect(ctx, chunks)
		source = joinSummaries(chunks)
	}

	report(types.StageGenerating)
	prompt, err := g.buildPrompt(req, tmpl, source)
	if err != nil {
		return nil, err
	}
	script, err := llm.GenerateWithFallback(ctx, g.client, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("failed to generate script: %w", err)
	}
	script = llm.StripCodeFence(script)
	if script == "" {
		return nil, fmt.Errorf("model returned an empty script")
	}

	report(types.StageValidating)
	validation := g.analyzer.Validate(script, tmpl)
	result := &Result{Script: script, Validation: validation, Chunks: len(chunks)}

	failed := validation.FailedChecks()
	if len(failed) == 0 {
		report(types.StageDone)
		return result, nil
	}

	report(types.StageImproving)
	improved, err := g.improve(ctx, script, validation, failed)
	if err != nil {
		// The first draft is still a usable script.
		log.Printf("[generation] improvement pass failed, keeping first draft: %v", err)
		report(types.StageDone)
		return result, nil
	}

	result.Script = improved
	result.Validation = g.analyzer.Validate(improved, tmpl)
	result.Improved = true
	report(types.StageDone)
	return result, nil
}

// summarize fills in chunk summaries concurrently. Any failure aborts the run.
func (g *Generator) summarize(ctx context.Context, chunks []analysis.Chunk) error {
	group, gctx := errgroup.WithContext(ctx)
	limit := g.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	group.SetLimit(limit)

	for i := range chunks {
		group.Go(func() error {
			prompt, err := prompts.Render(promptFile, "summarize-chunk", map[string]string{
				"Content": chunks[i].Content,
			})
			if err != nil {
				return err
			}
			summary, err := g.client.GenerateContent(gctx, prompt, llm.TierLite)
			if err != nil {
				return fmt.Errorf("failed to summarize chunk %d: %w", chunks[i].ID, err)
			}
			chunks[i].Summary = strings.TrimSpace(summary)
			return nil
		})
	}
	return group.Wait()
}

// connect asks for a transition between each pair of consecutive summaries.
// A failed transition is left empty; the script prompt still works without it.
func (g *Generator) connect(ctx context.Context, chunks []analysis.Chunk) {
	for i := 0; i < len(chunks)-1; i++ {
		prompt, err := prompts.Render(promptFile, "transition", map[string]string{
			"Previous": chunks[i].Summary,
			"Next":     chunks[i+1].Summary,
		})
		if err != nil {
			log.Printf("[generation] transition prompt: %v", err)
			return
		}
		text, err := g.client.GenerateContent(ctx, prompt, llm.TierLite)
		if err != nil {
			log.Printf("[generation] transition %d->%d failed: %v", chunks[i].ID, chunks[i+1].ID, err)
			continue
		}
		chunks[i].Transition = strings.TrimSpace(text)
	}
}

func joinSummaries(chunks []analysis.Chunk) string {
	var sb strings.Builder
	sb.WriteString(prompts.MustGet(promptFile, "summaries-intro"))
	for _, c := range chunks {
		fmt.Fprintf(&sb, "\nPart %d: %s\n", c.ID+1, c.Summary)
		if c.Transition != "" {
			fmt.Fprintf(&sb, "Transition: %s\n", c.Transition)
		}
	}
	return sb.String()
}

func (g *Generator) buildPrompt(req types.GenerateRequest, tmpl *types.Template, source string) (string, error) {
	system, err := prompts.Get(promptFile, "system")
	if err != nil {
		return "", err
	}

	th := g.analyzer.Thresholds
	target := th.MinWordCount
	structure := ""
	if tmpl != nil {
		if minWords, _ := tmpl.TotalRange(); minWords > target {
			target = minWords
		}
		structure = prompts.Format(prompts.MustGet(promptFile, "structure"), map[string]string{
			"TemplateName": tmpl.Name,
			"Tone":         orDefault(tmpl.Tone, "natural"),
			"Sections":     describeSections(tmpl),
		})
	}

	var extras strings.Builder
	if req.HighlightedConcept != "" {
		extras.WriteString(prompts.Format(prompts.MustGet(promptFile, "highlight"), map[string]string{
			"Concept": req.HighlightedConcept,
		}))
	}
	if req.PreviousTopic != "" {
		extras.WriteString(prompts.Format(prompts.MustGet(promptFile, "callback"), map[string]string{
			"PreviousTopic": req.PreviousTopic,
		}))
	}

	return prompts.Render(promptFile, "generate", map[string]string{
		"System":            system,
		"Content":           source,
		"TargetWords":       strconv.Itoa(target),
		"Structure":         structure,
		"Extras":            extras.String(),
		"MaxSentenceLength": strconv.FormatFloat(th.MaxSentenceLength, 'f', -1, 64),
		"MinFlesch":         strconv.FormatFloat(th.MinFleschScore, 'f', -1, 64),
	})
}

func (g *Generator) improve(ctx context.Context, script string, report *types.ValidationReport, failed []string) (string, error) {
	var failures strings.Builder
	for _, name := range failed {
		check := report.QualityChecks[name]
		fmt.Fprintf(&failures, "- %s: Current %s, Target %s\n", name,
			strconv.FormatFloat(check.Value, 'f', -1, 64),
			strconv.FormatFloat(check.Threshold, 'f', -1, 64))
	}

	prompt, err := prompts.Render(promptFile, "improve", map[string]string{
		"System":   prompts.MustGet(promptFile, "system"),
		"Script":   script,
		"Failures": strings.TrimRight(failures.String(), "\n"),
	})
	if err != nil {
		return "", err
	}

	improved, err := llm.GenerateWithFallback(ctx, g.client, prompt, llm.TierStandard)
	if err != nil {
		return "", err
	}
	improved = llm.StripCodeFence(improved)
	if improved == "" {
		return "", fmt.Errorf("model returned an empty improvement")
	}
	return improved, nil
}

func describeSections(tmpl *types.Template) string {
	var sb strings.Builder
	for _, s := range tmpl.Sections {
		fmt.Fprintf(&sb, "- %s (%d-%d words)", s.Name, s.MinWords, s.MaxWords)
		if s.Guidance != "" {
			sb.WriteString(": " + s.Guidance)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
