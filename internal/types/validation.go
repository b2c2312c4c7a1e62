package types

// ValidationReport holds the readability, structure and engagement metrics
// computed for a script, plus optional template compliance.
type ValidationReport struct {
	Readability        Readability                  `json:"readability"`
	Structure          Structure                    `json:"structure"`
	Engagement         Engagement                   `json:"engagement"`
	TemplateCompliance map[string]SectionCompliance `json:"template_compliance,omitempty"`
	QualityChecks      map[string]QualityCheck      `json:"quality_checks,omitempty"`
}

// Readability metrics. ReadingTime is in minutes.
type Readability struct {
	FleschScore float64 `json:"flesch_score"`
	GradeLevel  float64 `json:"grade_level"`
	ReadingTime float64 `json:"reading_time"`
}

// Structure counts.
type Structure struct {
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	ParagraphCount    int     `json:"paragraph_count"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// Engagement counts.
type Engagement struct {
	QuestionCount   int `json:"question_count"`
	QuoteCount      int `json:"quote_count"`
	TransitionWords int `json:"transition_words"`
}

// SectionCompliance describes how one template section is represented in a script.
// ExpectedRange is [min, max] words.
type SectionCompliance struct {
	Present       bool   `json:"present"`
	LengthInRange bool   `json:"length_in_range"`
	ActualLength  int    `json:"actual_length"`
	ExpectedRange [2]int `json:"expected_range"`
}

// QualityCheck is a single pass/fail gate with the measured value.
type QualityCheck struct {
	Pass      bool    `json:"pass"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// FailedChecks returns the names of failing quality checks.
func (r *ValidationReport) FailedChecks() []string {
	if r == nil {
		return nil
	}
	var failed []string
	for _, name := range QualityCheckNames {
		if check, ok := r.QualityChecks[name]; ok && !check.Pass {
			failed = append(failed, name)
		}
	}
	return failed
}

// Names of the quality checks, in report order.
const (
	CheckLength         = "length"
	CheckReadability    = "readability"
	CheckSentenceLength = "sentence_length"
)

// QualityCheckNames lists every quality check in a stable order.
var QualityCheckNames = []string{CheckLength, CheckReadability, CheckSentenceLength}
