package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeasure_Counts(t *testing.T) {
	text := "Is this a test? Yes, it is a \"simple\" test. However, we continue.\n\nAnother paragraph here."
	m := Measure(text)

	assert.Equal(t, 16, m.WordCount)
	assert.Equal(t, 4, m.SentenceCount)
	assert.Equal(t, 2, m.ParagraphCount)
	assert.Equal(t, 1, m.QuestionCount)
	assert.Equal(t, 1, m.QuoteCount)
	assert.Equal(t, 1, m.TransitionWords)
}

func TestMetrics_Readability(t *testing.T) {
	m := Measure("The cat sat on the mat.")

	assert.Equal(t, 6, m.SyllableCount)
	assert.InDelta(t, 116.15, m.FleschReadingEase(), 0.011)
	assert.InDelta(t, -1.45, m.GradeLevel(), 0.011)
	assert.InDelta(t, 0.04, m.ReadingTime(150), 0.001)
}

func TestMetrics_Empty(t *testing.T) {
	m := Measure("")
	assert.Equal(t, 0.0, m.FleschReadingEase())
	assert.Equal(t, 0.0, m.GradeLevel())
	assert.Equal(t, 0.0, m.AvgSentenceLength())
}

func TestCountTransitions_Phrases(t *testing.T) {
	words := Words("On the other hand, the plan worked. As a result we won. Thus it ended.")
	assert.Equal(t, 3, CountTransitions(words))
}

func TestCountQuotes_Curly(t *testing.T) {
	assert.Equal(t, 2, countQuotes("“One” and “two”"))
}
