package analysis

import (
	"math"
	"strings"

	"github.com/jonathan/script-generator/internal/types"
)

// DefaultWordsPerMinute is the narration pace used for reading time.
const DefaultWordsPerMinute = 150

// Metrics holds every raw measurement taken from a text.
type Metrics struct {
	WordCount       int
	SentenceCount   int
	ParagraphCount  int
	SyllableCount   int
	QuestionCount   int
	QuoteCount      int
	TransitionWords int
}

// AvgSentenceLength is words per sentence (sentences floor at 1).
func (m Metrics) AvgSentenceLength() float64 {
	return float64(m.WordCount) / float64(max(1, m.SentenceCount))
}

// FleschReadingEase returns the Flesch reading-ease score. Empty text scores 0.
func (m Metrics) FleschReadingEase() float64 {
	if m.WordCount == 0 {
		return 0
	}
	wps := m.AvgSentenceLength()
	spw := float64(m.SyllableCount) / float64(m.WordCount)
	return round2(206.835 - 1.015*wps - 84.6*spw)
}

// GradeLevel returns the Flesch-Kincaid grade level. Empty text scores 0.
func (m Metrics) GradeLevel() float64 {
	if m.WordCount == 0 {
		return 0
	}
	wps := m.AvgSentenceLength()
	spw := float64(m.SyllableCount) / float64(m.WordCount)
	return round2(0.39*wps + 11.8*spw - 15.59)
}

// ReadingTime returns minutes at the given pace.
func (m Metrics) ReadingTime(wpm int) float64 {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	return round2(float64(m.WordCount) / float64(wpm))
}

// Measure tokenizes text once and collects all metrics.
func Measure(text string) Metrics {
	words := Words(text)
	sentences := Sentences(text)

	m := Metrics{
		WordCount:       len(words),
		SentenceCount:   len(sentences),
		ParagraphCount:  len(Paragraphs(text)),
		QuoteCount:      countQuotes(text),
		TransitionWords: CountTransitions(words),
	}
	for _, w := range words {
		m.SyllableCount += Syllables(w)
	}
	for _, s := range sentences {
		if s.Terminator == '?' {
			m.QuestionCount++
		}
	}
	return m
}

// countQuotes counts quoted passages: curly opening quotes plus pairs of straight quotes.
func countQuotes(text string) int {
	curly := strings.Count(text, "“") + strings.Count(text, "«")
	straight := strings.Count(text, `"`)
	return curly + straight/2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Report converts metrics into the readability/structure/engagement sections of a report.
func (m Metrics) Report(wpm int) *types.ValidationReport {
	return &types.ValidationReport{
		Readability: types.Readability{
			FleschScore: m.FleschReadingEase(),
			GradeLevel:  m.GradeLevel(),
			ReadingTime: m.ReadingTime(wpm),
		},
		Structure: types.Structure{
			WordCount:         m.WordCount,
			SentenceCount:     m.SentenceCount,
			ParagraphCount:    m.ParagraphCount,
			AvgSentenceLength: round2(m.AvgSentenceLength()),
		},
		Engagement: types.Engagement{
			QuestionCount:   m.QuestionCount,
			QuoteCount:      m.QuoteCount,
			TransitionWords: m.TransitionWords,
		},
	}
}
