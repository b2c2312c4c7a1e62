// Package analysis computes readability, structure and engagement metrics for scripts
// and checks them against quality thresholds and template structure.
package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

var paragraphSplit = regexp.MustCompile(`\n[ \t]*\n`)

// Paragraphs splits text on blank lines and drops empty blocks.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	blocks := paragraphSplit.Split(text, -1)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Words returns the tokens of text that contain at least one letter or digit,
// stripped of surrounding punctuation.
func Words(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Sentence is a run of text ending with a terminator or a paragraph break.
type Sentence struct {
	Text       string
	Terminator rune // '.', '!', '?' or 0 when closed by a paragraph break
}

// Sentences tokenizes text. A terminator only closes a sentence when followed by
// whitespace, a closing quote or bracket, or the end of the paragraph, so
// decimals like 3.5 stay inside one sentence.
func Sentences(text string) []Sentence {
	var out []Sentence
	for _, para := range Paragraphs(text) {
		runes := []rune(para)
		start := 0
		for i := 0; i < len(runes); i++ {
			r := runes[i]
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			// absorb runs like "?!" or "..."
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
				j++
			}
			// and closing quotes or brackets
			k := j
			for k+1 < len(runes) && isCloser(runes[k+1]) {
				k++
			}
			if k+1 < len(runes) && !unicode.IsSpace(runes[k+1]) {
				i = k
				continue
			}
			term := r
			for _, t := range runes[i : j+1] {
				if t == '?' {
					term = '?'
					break
				}
				if t == '!' {
					term = '!'
				}
			}
			out = appendSentence(out, string(runes[start:k+1]), term)
			start = k + 1
			i = k
		}
		if start < len(runes) {
			out = appendSentence(out, string(runes[start:]), 0)
		}
	}
	return out
}

func appendSentence(out []Sentence, text string, term rune) []Sentence {
	text = strings.TrimSpace(text)
	if len(Words(text)) == 0 {
		return out
	}
	return append(out, Sentence{Text: text, Terminator: term})
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

// Syllables estimates the syllable count of a single word by counting vowel
// groups, discounting a silent trailing "e". Every word has at least one.
func Syllables(word string) int {
	w := strings.ToLower(word)
	letters := make([]rune, 0, len(w))
	for _, r := range w {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return 1
	}
	if len(letters) <= 3 {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range letters {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	n := len(letters)
	if letters[n-1] == 'e' && !(letters[n-2] == 'l' && !isVowel(letters[n-3])) && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
