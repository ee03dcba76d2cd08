package publish

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// diagnosticTextLimit bounds the visible-text excerpt in runes; the
// platform's copy is CJK so byte truncation would split characters.
const diagnosticTextLimit = 2000

// Diagnostics captures page state for the failure report: what the page
// said and what was clickable when confirmation never arrived.
type Diagnostics struct {
	Text    string
	Buttons []string
}

// Diagnose extracts the visible text and button labels from raw page HTML.
func Diagnose(rawHTML string) Diagnostics {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Diagnostics{Text: fmt.Sprintf("unparsable page HTML: %v", err)}
	}

	var text strings.Builder
	collectVisibleText(doc, &text)

	return Diagnostics{
		Text:    truncateRunes(collapseWhitespace(text.String()), diagnosticTextLimit),
		Buttons: collectButtonLabels(doc),
	}
}

// collectVisibleText walks the tree accumulating text nodes, skipping
// elements a user never sees rendered.
func collectVisibleText(n *html.Node, out *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && isInvisibleElement(strings.ToLower(n.Data)) {
		return
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			out.WriteString(text)
			out.WriteByte(' ')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectVisibleText(c, out)
	}
}

func isInvisibleElement(tagName string) bool {
	skipped := map[string]bool{
		"script":   true,
		"style":    true,
		"noscript": true,
		"head":     true,
		"template": true,
		"iframe":   true,
		"svg":      true,
	}
	return skipped[tagName]
}

// collectButtonLabels lists the labels of everything button-like: button
// elements, role="button" nodes, and submit/button inputs.
func collectButtonLabels(doc *html.Node) []string {
	var labels []string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if label, ok := buttonLabel(n); ok {
				if label != "" {
					labels = append(labels, label)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return labels
}

func buttonLabel(n *html.Node) (string, bool) {
	tagName := strings.ToLower(n.Data)

	var role, inputType, value string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "role":
			role = attr.Val
		case "type":
			inputType = attr.Val
		case "value":
			value = attr.Val
		}
	}

	if tagName == "button" || role == "button" {
		var text strings.Builder
		collectVisibleText(n, &text)
		return collapseWhitespace(text.String()), true
	}
	if tagName == "input" && (inputType == "submit" || inputType == "button") {
		return value, true
	}
	return "", false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
