package dom

import (
	"strings"

	"golang.org/x/net/html"
)

var labelSelector = MustCompile("label")

// AriaLabel returns the trimmed aria-label
func AriaLabel(n *html.Node) string {
	return AttrValue(n, "aria-label")
}

// LabelledByText resolves aria-labelledby ids to their joined text
func (d *Document) LabelledByText(n *html.Node) string {
	var parts []string
	for _, id := range strings.Fields(AttrValue(n, "aria-labelledby")) {
		if target := d.ElementByID(id); target != nil {
			if text := TextContent(target); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// ExternalLabel returns the text of a <label for="..."> pointing at n
func (d *Document) ExternalLabel(n *html.Node) string {
	id := AttrValue(n, "id")
	if id == "" {
		return ""
	}
	for _, label := range QueryAll(d.root, labelSelector) {
		if AttrValue(label, "for") == id {
			return TextContent(label)
		}
	}
	return ""
}

// HasExternalLabel reports whether some <label for="..."> points at n
func (d *Document) HasExternalLabel(n *html.Node) bool {
	id := AttrValue(n, "id")
	if id == "" {
		return false
	}
	for _, label := range QueryAll(d.root, labelSelector) {
		if AttrValue(label, "for") == id {
			return true
		}
	}
	return false
}

// WrappingLabel returns the enclosing <label>, or nil
func WrappingLabel(n *html.Node) *html.Node {
	return Closest(n, labelSelector)
}

// FirstNonEmpty returns the first non-empty value
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
