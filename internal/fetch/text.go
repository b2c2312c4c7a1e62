package fetch

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockElements start and end a paragraph in the extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
	"table": true, "tr": true, "dl": true, "dt": true, "dd": true,
	"figure": true, "figcaption": true, "hr": true,
}

var (
	spaceRun    = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankRun    = regexp.MustCompile(`\n{3,}`)
	spaceBefore = regexp.MustCompile(` *\n *`)
)

// SelectionText renders the visible text of a selection. Inline whitespace is
// collapsed, <br> becomes a line break, and block elements are separated by
// blank lines.
func SelectionText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		writeNode(&sb, n)
	}
	text := spaceBefore.ReplaceAllString(sb.String(), "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func writeNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			sb.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(sb, c)
	}
	if block {
		sb.WriteString("\n\n")
	}
}
