// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/script-generator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintTemplates outputs the available templates with their word ranges.
func (p *Printer) PrintTemplates(templates map[string]types.Template) {
	if len(templates) == 0 {
		p.printBox("TEMPLATES", "No templates available")
		return
	}

	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for i, id := range ids {
		tmpl := templates[id]
		lo, hi := tmpl.TotalRange()
		sb.WriteString(fmt.Sprintf("%s  (%s)\n", id, tmpl.Name))
		if tmpl.Description != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", tmpl.Description))
		}
		sb.WriteString(fmt.Sprintf("    %d sections, %d-%d words", len(tmpl.Sections), lo, hi))
		if tmpl.Tone != "" {
			sb.WriteString(fmt.Sprintf(", %s", tmpl.Tone))
		}
		if i < len(ids)-1 {
			sb.WriteString("\n\n")
		}
	}

	p.printBox("TEMPLATES", sb.String())
}

// PrintStatus outputs the progress of a generation task.
func (p *Printer) PrintStatus(status *types.StatusResponse) {
	if status == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Task:    %s\n", status.TaskID))
	sb.WriteString(fmt.Sprintf("Status:  %s", status.Status))
	if status.Stage != "" && status.Status == types.TaskPending {
		sb.WriteString(fmt.Sprintf(" (%s)", status.Stage))
	}
	if status.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError:   %s", status.Error))
	}
	if status.Script != "" {
		words := len(strings.Fields(status.Script))
		sb.WriteString(fmt.Sprintf("\nScript:  %d words", words))
	}

	p.printBox("GENERATION TASK", sb.String())
}

// PrintValidation outputs the metrics of a validation report, followed by
// template compliance and quality checks when present.
func (p *Printer) PrintValidation(report *types.ValidationReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	r, s, e := report.Readability, report.Structure, report.Engagement

	sb.WriteString("Readability:\n")
	sb.WriteString(fmt.Sprintf("  Flesch score:   %.2f\n", r.FleschScore))
	sb.WriteString(fmt.Sprintf("  Grade level:    %.2f\n", r.GradeLevel))
	sb.WriteString(fmt.Sprintf("  Reading time:   %.2f min\n", r.ReadingTime))
	sb.WriteString("\n")

	sb.WriteString("Structure:\n")
	sb.WriteString(fmt.Sprintf("  Words:          %d\n", s.WordCount))
	sb.WriteString(fmt.Sprintf("  Sentences:      %d\n", s.SentenceCount))
	sb.WriteString(fmt.Sprintf("  Paragraphs:     %d\n", s.ParagraphCount))
	sb.WriteString(fmt.Sprintf("  Avg sentence:   %.2f words\n", s.AvgSentenceLength))
	sb.WriteString("\n")

	sb.WriteString("Engagement:\n")
	sb.WriteString(fmt.Sprintf("  Questions:      %d\n", e.QuestionCount))
	sb.WriteString(fmt.Sprintf("  Quotes:         %d\n", e.QuoteCount))
	sb.WriteString(fmt.Sprintf("  Transitions:    %d", e.TransitionWords))

	if len(report.TemplateCompliance) > 0 {
		sb.WriteString("\n\nTemplate compliance:\n")
		names := make([]string, 0, len(report.TemplateCompliance))
		for name := range report.TemplateCompliance {
			names = append(names, name)
		}
		sort.Strings(names)

		count := min(len(names), maxItemsToShow)
		for i := 0; i < count; i++ {
			c := report.TemplateCompliance[names[i]]
			mark := "✓"
			if !c.Present || !c.LengthInRange {
				mark = "✗"
			}
			sb.WriteString(fmt.Sprintf("  %s %s: %d words (%d-%d)", mark, names[i], c.ActualLength, c.ExpectedRange[0], c.ExpectedRange[1]))
			if i < count-1 {
				sb.WriteString("\n")
			}
		}
		if len(names) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(names)-maxItemsToShow))
		}
	}

	p.printBox("VALIDATION REPORT", sb.String())
	p.PrintQualityChecks(report)
}

// PrintQualityChecks outputs the failing quality checks, or a pass banner.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintQualityChecks(report *types.ValidationReport) {
	if report == nil || len(report.QualityChecks) == 0 {
		return
	}

	failed := report.FailedChecks()
	if len(failed) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL QUALITY CHECKS PASSED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Failed %d of %d checks:\n\n", len(failed), len(report.QualityChecks)))
	for i, name := range failed {
		check := report.QualityChecks[name]
		sb.WriteString(fmt.Sprintf("⚠ %s\n", name))
		sb.WriteString(fmt.Sprintf("  value %.2f, threshold %.2f", check.Value, check.Threshold))
		if i < len(failed)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("QUALITY CHECKS", sb.String())
}

// PrintScriptPreview outputs the first lines of a script.
func (p *Printer) PrintScriptPreview(script string, maxLines int) {
	script = strings.TrimSpace(script)
	if script == "" {
		return
	}
	if maxLines <= 0 {
		maxLines = 10
	}

	lines := strings.Split(script, "\n")
	shown := lines[:min(len(lines), maxLines)]
	content := strings.Join(shown, "\n")
	if len(lines) > maxLines {
		content += fmt.Sprintf("\n... and %d more lines", len(lines)-maxLines)
	}

	p.printBox("SCRIPT", content)
}
