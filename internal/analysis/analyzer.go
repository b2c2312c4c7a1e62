package analysis

import (
	"github.com/jonathan/script-generator/internal/types"
)

// QualityThresholds are the pass/fail gates applied to every script.
type QualityThresholds struct {
	MinWordCount      int     `yaml:"min_word_count" json:"min_word_count"`
	MinFleschScore    float64 `yaml:"min_flesch_score" json:"min_flesch_score"`
	MaxSentenceLength float64 `yaml:"max_sentence_length" json:"max_sentence_length"`
}

// DefaultThresholds returns the thresholds used when no quality config is supplied.
func DefaultThresholds() QualityThresholds {
	return QualityThresholds{
		MinWordCount:      1500,
		MinFleschScore:    60,
		MaxSentenceLength: 20,
	}
}

// Analyzer validates scripts against quality thresholds and templates.
type Analyzer struct {
	Thresholds     QualityThresholds
	WordsPerMinute int
}

// New creates an Analyzer with the given thresholds and the default narration pace.
func New(thresholds QualityThresholds) *Analyzer {
	return &Analyzer{Thresholds: thresholds, WordsPerMinute: DefaultWordsPerMinute}
}

// Validate computes the full report for a script. Template compliance is only
// included when tmpl is non-nil.
func (a *Analyzer) Validate(script string, tmpl *types.Template) *types.ValidationReport {
	m := Measure(script)
	report := m.Report(a.WordsPerMinute)
	report.QualityChecks = a.check(m)
	if tmpl != nil {
		report.TemplateCompliance = Compliance(script, tmpl)
	}
	return report
}

func (a *Analyzer) check(m Metrics) map[string]types.QualityCheck {
	t := a.Thresholds
	flesch := m.FleschReadingEase()
	avg := round2(m.AvgSentenceLength())
	return map[string]types.QualityCheck{
		types.CheckLength: {
			Pass:      m.WordCount >= t.MinWordCount,
			Value:     float64(m.WordCount),
			Threshold: float64(t.MinWordCount),
		},
		types.CheckReadability: {
			Pass:      flesch >= t.MinFleschScore,
			Value:     flesch,
			Threshold: t.MinFleschScore,
		},
		types.CheckSentenceLength: {
			Pass:      avg <= t.MaxSentenceLength,
			Value:     avg,
			Threshold: t.MaxSentenceLength,
		},
	}
}
