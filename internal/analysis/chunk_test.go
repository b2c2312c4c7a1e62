package analysis

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText("   ", 100, 10))
}

func TestChunkText_SingleChunk(t *testing.T) {
	chunks := ChunkText("  Short text.\n\nSecond paragraph.  ", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short text.\n\nSecond paragraph.", chunks[0].Content)
	assert.Equal(t, 4, chunks[0].Metrics.WordCount)
}

func TestChunkText_SizeAndOverlap(t *testing.T) {
	var paras []string
	for i := 0; i < 50; i++ {
		paras = append(paras, fmt.Sprintf("Sentence number %d is here.", i))
	}
	text := strings.Join(paras, "\n\n")

	chunks := ChunkText(text, 200, 40)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.ID)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 200)
	}

	for i := 1; i < len(chunks); i++ {
		lead := strings.SplitN(chunks[i].Content, "\n\n", 2)[0]
		assert.NotEmpty(t, lead)
		assert.Contains(t, chunks[i-1].Content, lead)
	}
}

func TestChunkText_HardSplitsLongWords(t *testing.T) {
	chunks := ChunkText(strings.Repeat("a", 25), 10, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0].Content)
	assert.Equal(t, strings.Repeat("a", 5), chunks[2].Content)
}

func TestOverlapTail(t *testing.T) {
	assert.Equal(t, "", overlapTail("short", 10))
	assert.Equal(t, "words here", overlapTail("some more words here", 12))
}
