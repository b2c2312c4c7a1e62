package analysis

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 6000
	DefaultChunkOverlap = 200
)

// Chunk is a slice of source text sized for a single model call.
type Chunk struct {
	ID         int     `json:"id"`
	Content    string  `json:"content"`
	Summary    string  `json:"summary,omitempty"`
	Transition string  `json:"transition,omitempty"`
	Metrics    Metrics `json:"-"`
}

type unit struct {
	text string
	sep  string
}

// ChunkText splits text into chunks of at most size characters, breaking on
// paragraph, then sentence, then word boundaries. Each chunk after the first
// starts with up to overlap characters from the end of the previous one when
// that still fits.
func ChunkText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	units := splitUnits(text, size)
	var chunks []Chunk
	var b strings.Builder
	bLen := 0

	flush := func() {
		content := strings.TrimSpace(b.String())
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{ID: len(chunks), Content: content, Metrics: Measure(content)})
		b.Reset()
		bLen = 0
	}

	for _, u := range units {
		uLen := utf8.RuneCountInString(u.text)
		sepLen := utf8.RuneCountInString(u.sep)
		if bLen > 0 && bLen+sepLen+uLen > size {
			prev := b.String()
			flush()
			tail := overlapTail(prev, overlap)
			if tail != "" && utf8.RuneCountInString(tail)+sepLen+uLen <= size {
				b.WriteString(tail)
				bLen = utf8.RuneCountInString(tail)
			}
		}
		if bLen > 0 {
			b.WriteString(u.sep)
			bLen += sepLen
		}
		b.WriteString(u.text)
		bLen += uLen
	}
	flush()
	return chunks
}

// splitUnits breaks text into pieces no longer than size.
func splitUnits(text string, size int) []unit {
	var units []unit
	for _, para := range Paragraphs(text) {
		sep := "\n\n"
		if utf8.RuneCountInString(para) <= size {
			units = append(units, unit{text: para, sep: sep})
			continue
		}
		for _, s := range Sentences(para) {
			if utf8.RuneCountInString(s.Text) <= size {
				units = append(units, unit{text: s.Text, sep: sep})
				sep = " "
				continue
			}
			for _, piece := range splitWords(s.Text, size) {
				units = append(units, unit{text: piece, sep: sep})
				sep = " "
			}
		}
	}
	return units
}

// splitWords packs words into pieces of at most size characters, hard-splitting
// any single word that is longer than size.
func splitWords(text string, size int) []string {
	var out []string
	var b strings.Builder
	n := 0
	for _, w := range strings.Fields(text) {
		for utf8.RuneCountInString(w) > size {
			if n > 0 {
				out = append(out, b.String())
				b.Reset()
				n = 0
			}
			r := []rune(w)
			out = append(out, string(r[:size]))
			w = string(r[size:])
		}
		wl := utf8.RuneCountInString(w)
		if wl == 0 {
			continue
		}
		if n > 0 && n+1+wl > size {
			out = append(out, b.String())
			b.Reset()
			n = 0
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(w)
		n += wl
	}
	if n > 0 {
		out = append(out, b.String())
	}
	return out
}

// overlapTail returns at most n trailing characters of s, starting on a word boundary.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return ""
	}
	tail := string(r[len(r)-n:])
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	} else {
		return ""
	}
	return strings.TrimSpace(tail)
}
