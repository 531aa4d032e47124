// Package dom is the read-only view of a parsed HTML document that the
// narrators and detectors work against.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/narrascope/internal/model"
	"golang.org/x/net/html"
)

// Document is a parsed HTML tree plus a node table in document order.
// NodeIDs handed out by the table stay stable for the lifetime of the Document.
type Document struct {
	root  *html.Node
	nodes []*html.Node
	ids   map[*html.Node]model.NodeID
	byID  map[string]*html.Node
}

// Parse parses HTML from r
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromNode(root), nil
}

// ParseString parses an HTML string
func ParseString(htmlContent string) (*Document, error) {
	return Parse(strings.NewReader(htmlContent))
}

// FromNode indexes an already parsed tree
func FromNode(root *html.Node) *Document {
	d := &Document{
		root: root,
		ids:  make(map[*html.Node]model.NodeID),
		byID: make(map[string]*html.Node),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			d.ids[n] = model.NodeID(len(d.nodes))
			d.nodes = append(d.nodes, n)
			if id, ok := Attr(n, "id"); ok && id != "" {
				if _, dup := d.byID[id]; !dup {
					d.byID[id] = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return d
}

// Root returns the document node
func (d *Document) Root() *html.Node {
	return d.root
}

// Len returns the number of element nodes in the table
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node resolves a handle back to its node, or nil when out of range
func (d *Document) Node(id model.NodeID) *html.Node {
	if id < 0 || int(id) >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

// Ref returns a weak handle for n, or nil if n is not an indexed element
func (d *Document) Ref(n *html.Node) *model.NodeRef {
	id, ok := d.ids[n]
	if !ok {
		return nil
	}
	return &model.NodeRef{ID: id, Tag: n.Data}
}

// ElementByID returns the first element carrying the given id attribute
func (d *Document) ElementByID(id string) *html.Node {
	return d.byID[id]
}

// Container resolves the analysis root. An empty or unmatched selector falls
// back to <body>, then to the document node itself.
func (d *Document) Container(selector string) (*html.Node, error) {
	if selector != "" {
		m, err := Compile(selector)
		if err != nil {
			return nil, err
		}
		if n := QueryFirst(d.root, m); n != nil {
			return n, nil
		}
	}

	if body := QueryFirst(d.root, MustCompile("body")); body != nil {
		return body, nil
	}
	return d.root, nil
}

// Title returns the trimmed <title> text
func (d *Document) Title() string {
	if t := QueryFirst(d.root, MustCompile("title")); t != nil {
		return TextContent(t)
	}
	return ""
}
