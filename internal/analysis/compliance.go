package analysis

import (
	"strings"

	"github.com/jonathan/script-generator/internal/types"
)

// titleMaxWords is the longest single-line paragraph without terminal
// punctuation that is still treated as a script title.
const titleMaxWords = 12

// Compliance measures each template section in the script. Sections are
// located by heading lines naming them; without any such heading, paragraphs
// are assigned positionally.
func Compliance(script string, tmpl *types.Template) map[string]types.SectionCompliance {
	paras := Paragraphs(script)

	var lengths []int
	if hasSectionHeadings(paras, tmpl) {
		lengths = lengthsByHeading(paras, tmpl)
	} else {
		lengths = lengthsByPosition(dropTitle(paras), len(tmpl.Sections))
	}

	out := make(map[string]types.SectionCompliance, len(tmpl.Sections))
	for i, section := range tmpl.Sections {
		n := lengths[i]
		out[section.Name] = types.SectionCompliance{
			Present:       n > 0,
			LengthInRange: n > 0 && n >= section.MinWords && n <= section.MaxWords,
			ActualLength:  n,
			ExpectedRange: [2]int{section.MinWords, section.MaxWords},
		}
	}
	return out
}

// headingIndex returns the section index a line names, or -1.
func headingIndex(line string, tmpl *types.Template) int {
	h := strings.TrimSpace(line)
	h = strings.TrimLeft(h, "#")
	h = strings.TrimSpace(h)
	h = strings.TrimSuffix(h, ":")
	h = strings.Trim(h, "*_ ")
	for i, s := range tmpl.Sections {
		if strings.EqualFold(h, s.Name) {
			return i
		}
	}
	return -1
}

func firstLine(para string) (head, rest string) {
	head, rest, _ = strings.Cut(para, "\n")
	return head, rest
}

func hasSectionHeadings(paras []string, tmpl *types.Template) bool {
	for _, p := range paras {
		head, _ := firstLine(p)
		if headingIndex(head, tmpl) >= 0 {
			return true
		}
	}
	return false
}

func lengthsByHeading(paras []string, tmpl *types.Template) []int {
	lengths := make([]int, len(tmpl.Sections))
	current := -1
	for _, p := range paras {
		head, rest := firstLine(p)
		if idx := headingIndex(head, tmpl); idx >= 0 {
			current = idx
			lengths[current] += len(Words(rest))
			continue
		}
		if current >= 0 {
			lengths[current] += len(Words(p))
		}
	}
	return lengths
}

// dropTitle removes leading single-line paragraphs that read like titles.
func dropTitle(paras []string) []string {
	for len(paras) > 1 {
		p := paras[0]
		if strings.Contains(p, "\n") || len(Words(p)) > titleMaxWords || strings.ContainsAny(p[len(p)-1:], ".!?") {
			break
		}
		paras = paras[1:]
	}
	return paras
}

// lengthsByPosition maps the first paragraph to the first section, the last to
// the last section, and spreads the middle paragraphs over the middle sections.
func lengthsByPosition(paras []string, sections int) []int {
	lengths := make([]int, sections)
	p := len(paras)
	if sections == 0 || p == 0 {
		return lengths
	}
	if sections == 1 {
		for _, para := range paras {
			lengths[0] += len(Words(para))
		}
		return lengths
	}

	lengths[0] = len(Words(paras[0]))
	if p == 1 {
		return lengths
	}
	lengths[sections-1] = len(Words(paras[p-1]))

	middle := paras[1 : p-1]
	inner := sections - 2
	for i, para := range middle {
		idx := sections - 1
		if inner > 0 {
			idx = 1 + i*inner/len(middle)
		}
		lengths[idx] += len(Words(para))
	}
	return lengths
}
