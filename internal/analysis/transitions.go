package analysis

import "strings"

// transitionPhrases is the lexicon of transition words and phrases, stored as
// lower-case word sequences. Longer phrases are matched first.
var transitionPhrases = [][]string{
	{"on", "the", "other", "hand"},
	{"in", "other", "words"},
	{"as", "a", "result"},
	{"in", "addition"},
	{"in", "contrast"},
	{"in", "conclusion"},
	{"for", "example"},
	{"for", "instance"},
	{"looking", "ahead"},
	{"even", "so"},
	{"after", "all"},
	{"to", "summarize"},
	{"however"},
	{"therefore"},
	{"moreover"},
	{"furthermore"},
	{"meanwhile"},
	{"consequently"},
	{"additionally"},
	{"finally"},
	{"similarly"},
	{"likewise"},
	{"nevertheless"},
	{"nonetheless"},
	{"instead"},
	{"thus"},
	{"hence"},
	{"next"},
	{"then"},
	{"first"},
	{"second"},
	{"third"},
	{"also"},
	{"ultimately"},
	{"yet"},
}

// CountTransitions counts transition words and phrases in a word list.
// Each word is consumed by at most one match.
func CountTransitions(words []string) int {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	count := 0
	for i := 0; i < len(lower); {
		matched := 0
		for _, phrase := range transitionPhrases {
			if matchAt(lower, i, phrase) {
				matched = len(phrase)
				break
			}
		}
		if matched > 0 {
			count++
			i += matched
			continue
		}
		i++
	}
	return count
}

func matchAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for j, p := range phrase {
		if words[i+j] != p {
			return false
		}
	}
	return true
}
