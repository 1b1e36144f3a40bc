package parser

import (
	"regexp"
	"strings"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)

// normalizeText collapses whitespace runs (including non-breaking and
// full-width spaces) into single spaces and trims the result.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// stringifyWithMarkup flattens a node to text while keeping the pieces the
// math normalizer needs: <br> becomes a newline and non-empty <sub>/<sup>
// spans keep their literal tags. Every other tag is dropped, its children
// inlined.
func stringifyWithMarkup(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.ElementNode:
		switch n.Data {
		case "br":
			return "\n"
		case "sub", "sup":
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				sb.WriteString(stringifyWithMarkup(c))
			}
			inner := strings.TrimSpace(sb.String())
			if inner == "" {
				return ""
			}
			return "<" + n.Data + ">" + inner + "</" + n.Data + ">"
		default:
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				sb.WriteString(stringifyWithMarkup(c))
			}
			return sb.String()
		}
	}
	return ""
}

// nodeText is the normalized text of a block node, markup preserved where
// stringifyWithMarkup keeps it.
func nodeText(n *html.Node) string {
	return normalizeText(stringifyWithMarkup(n))
}

// strippedText concatenates the trimmed text descendants of a node,
// without preserving any markup.
func strippedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findByClass returns the first descendant element with the given tag and
// class, depth-first in document order.
func findByClass(n *html.Node, tag, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag && hasClass(c, class) {
			return c
		}
		if found := findByClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// findAllByClass returns every descendant element with the given tag and
// class, in document order.
func findAllByClass(n *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag && hasClass(c, class) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// imageRef builds an ImageRef from an inline image span. The URL lives in
// data-src with data-sr as the fallback attribute; spans carrying neither
// yield nil and are skipped.
func imageRef(n *html.Node) *chapter.ImageRef {
	src := attr(n, "data-src")
	if src == "" {
		src = attr(n, "data-sr")
	}
	if src == "" {
		return nil
	}
	return &chapter.ImageRef{
		URL:    src,
		Width:  attr(n, "data-width"),
		Height: attr(n, "data-height"),
	}
}

// appendTextPart appends a text run to a part list, merging it into a
// trailing text run so adjacent runs stay one part. Empty runs are dropped.
func appendTextPart(parts []chapter.Part, text string) []chapter.Part {
	if text == "" {
		return parts
	}
	if len(parts) > 0 && !parts[len(parts)-1].IsImage() {
		parts[len(parts)-1].Text += text
		return parts
	}
	return append(parts, chapter.TextPart(text))
}
