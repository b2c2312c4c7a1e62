package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentences_Terminators(t *testing.T) {
	sentences := Sentences("Hello world. How are you? I am fine!")
	require.Len(t, sentences, 3)
	assert.Equal(t, '.', sentences[0].Terminator)
	assert.Equal(t, '?', sentences[1].Terminator)
	assert.Equal(t, '!', sentences[2].Terminator)
	assert.Equal(t, "How are you?", sentences[1].Text)
}

func TestSentences_DecimalsStayInside(t *testing.T) {
	sentences := Sentences("The value is 3.5 today. Done.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "The value is 3.5 today.", sentences[0].Text)
}

func TestSentences_ParagraphBreakCloses(t *testing.T) {
	sentences := Sentences("A Title\n\nBody text here.")
	require.Len(t, sentences, 2)
	assert.Equal(t, rune(0), sentences[0].Terminator)
}

func TestSentences_QuoteAfterTerminator(t *testing.T) {
	sentences := Sentences(`She said "stop." Then she left.`)
	require.Len(t, sentences, 2)
	assert.Equal(t, `She said "stop."`, sentences[0].Text)
}

func TestParagraphs(t *testing.T) {
	paras := Paragraphs("one\n\n  \n two\r\n\r\nthree\nstill three")
	assert.Equal(t, []string{"one", "two", "three\nstill three"}, paras)
}

func TestWords_StripsPunctuation(t *testing.T) {
	assert.Equal(t, []string{"Hello", "world", "it's", "3"}, Words(`"Hello, world!" -- it's 3.`))
}

func TestSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"table", 2},
		{"make", 1},
		{"beautiful", 3},
		{"rhythm", 1},
		{"", 1},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, Syllables(tt.word))
		})
	}
}
