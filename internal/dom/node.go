package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of an attribute and whether it is present
func Attr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// AttrValue returns the trimmed value of an attribute, or ""
func AttrValue(n *html.Node, key string) string {
	val, _ := Attr(n, key)
	return strings.TrimSpace(val)
}

// InputType returns the lower-cased type attribute. HTML matches type values
// case-insensitively, so every type check goes through here.
func InputType(n *html.Node) string {
	return strings.ToLower(AttrValue(n, "type"))
}

// HasAttr reports whether the attribute is present, even with an empty value
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// HasClass checks if a node has a specific CSS class
func HasClass(n *html.Node, className string) bool {
	for _, class := range strings.Fields(AttrValue(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

// IsElement reports whether n is an element with one of the given tag names
func IsElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return len(tags) == 0
}

// TextContent returns the whitespace-collapsed text under n, skipping
// script, style, noscript and template subtrees
func TextContent(n *html.Node) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if node.Type == html.TextNode {
			parts = append(parts, strings.Fields(node.Data)...)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(parts, " ")
}

// HeadingLevel returns 1-6 for h1-h6, the aria-level for role=heading, or 0
func HeadingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	if len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
		return int(n.Data[1] - '0')
	}
	if AttrValue(n, "role") == "heading" {
		if level, err := strconv.Atoi(AttrValue(n, "aria-level")); err == nil && level > 0 {
			return level
		}
		return 2
	}
	return 0
}

// describeAttrs are the attributes shown by Describe, in output order
var describeAttrs = []string{"id", "type", "name", "role", "href", "src", "class"}

// Describe renders a short, deterministic descriptor like <img src="x.jpg">
func Describe(n *html.Node) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(n.Data)
	for _, key := range describeAttrs {
		val, ok := Attr(n, key)
		if !ok {
			continue
		}
		val = Truncate(strings.TrimSpace(val), 40)
		fmt.Fprintf(&b, " %s=%q", key, val)
	}
	b.WriteString(">")
	return b.String()
}

// Truncate cuts s to limit runes, marking the cut with an ellipsis
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
