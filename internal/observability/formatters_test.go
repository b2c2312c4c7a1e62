package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonathan/script-generator/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintTemplates(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTemplates(map[string]types.Template{
		"tutorial": {
			ID:   "tutorial",
			Name: "Tutorial",
			Tone: "friendly",
			Sections: []types.TemplateSection{
				{Name: "Intro", MinWords: 50, MaxWords: 100},
				{Name: "Steps", MinWords: 300, MaxWords: 600},
			},
		},
		"documentary": {ID: "documentary", Name: "Documentary", Description: "Long-form narration"},
	})
	output := buf.String()

	assert.Contains(t, output, "TEMPLATES")
	assert.Contains(t, output, "tutorial  (Tutorial)")
	assert.Contains(t, output, "2 sections, 350-700 words, friendly")
	assert.Contains(t, output, "Long-form narration")
	assert.Less(t, strings.Index(output, "documentary"), strings.Index(output, "tutorial"))
}

func TestPrintTemplates_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTemplates(nil)
	assert.Contains(t, buf.String(), "No templates available")
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStatus(&types.StatusResponse{TaskID: "abc", Status: types.TaskPending, Stage: types.StageSummarizing})
	output := buf.String()
	assert.Contains(t, output, "abc")
	assert.Contains(t, output, "pending (summarizing)")

	buf.Reset()
	p.PrintStatus(&types.StatusResponse{TaskID: "abc", Status: types.TaskCompleted, Script: "one two three"})
	assert.Contains(t, buf.String(), "3 words")

	buf.Reset()
	p.PrintStatus(&types.StatusResponse{TaskID: "abc", Status: types.TaskFailed, Error: "model unavailable"})
	assert.Contains(t, buf.String(), "Error:   model unavailable")
}

func TestPrintStatus_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStatus(nil)
	assert.Empty(t, buf.String())
}

func TestPrintValidation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &types.ValidationReport{
		Readability: types.Readability{FleschScore: 72.5, GradeLevel: 6.1, ReadingTime: 1.2},
		Structure:   types.Structure{WordCount: 180, SentenceCount: 12, ParagraphCount: 4, AvgSentenceLength: 15},
		Engagement:  types.Engagement{QuestionCount: 2, QuoteCount: 1, TransitionWords: 5},
		TemplateCompliance: map[string]types.SectionCompliance{
			"Intro": {Present: true, LengthInRange: true, ActualLength: 60, ExpectedRange: [2]int{50, 100}},
			"Body":  {Present: true, LengthInRange: false, ActualLength: 120, ExpectedRange: [2]int{200, 400}},
		},
		QualityChecks: map[string]types.QualityCheck{
			types.CheckLength:      {Pass: true, Value: 180, Threshold: 100},
			types.CheckReadability: {Pass: false, Value: 72.5, Threshold: 80},
		},
	}

	p.PrintValidation(report)
	output := buf.String()

	assert.Contains(t, output, "VALIDATION REPORT")
	assert.Contains(t, output, "72.50")
	assert.Contains(t, output, "Words:          180")
	assert.Contains(t, output, "Transitions:    5")
	assert.Contains(t, output, "✓ Intro: 60 words (50-100)")
	assert.Contains(t, output, "✗ Body: 120 words (200-400)")
	assert.Contains(t, output, "QUALITY CHECKS")
	assert.Contains(t, output, "⚠ readability")
	assert.NotContains(t, output, "⚠ length")
}

func TestPrintQualityChecks_AllPass(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintQualityChecks(&types.ValidationReport{
		QualityChecks: map[string]types.QualityCheck{types.CheckLength: {Pass: true}},
	})
	assert.Contains(t, buf.String(), "ALL QUALITY CHECKS PASSED")
}

func TestPrintQualityChecks_None(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintQualityChecks(&types.ValidationReport{})
	assert.Empty(t, buf.String())
}

func TestPrintScriptPreview(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScriptPreview("line1\nline2\nline3\nline4", 2)
	output := buf.String()
	assert.Contains(t, output, "line1")
	assert.Contains(t, output, "line2")
	assert.NotContains(t, output, "line3")
	assert.Contains(t, output, "... and 2 more lines")

	buf.Reset()
	p.PrintScriptPreview("   ", 2)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("é", 100))
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
	assert.Contains(t, buf.String(), "...")
}
