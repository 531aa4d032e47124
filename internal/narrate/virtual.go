package narrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/narrascope/internal/dom"
	"golang.org/x/net/html"
)

var (
	errNotStarted     = errors.New("narrator not started")
	errAlreadyStarted = errors.New("narrator already started")
)

// VirtualNarrator is an in-process screen reader. On Start it renders the
// container's accessibility semantics into an ordered phrase script that is
// then consumed one step at a time. Once the script is exhausted it keeps
// speaking the end-of-document sentinel.
type VirtualNarrator struct {
	mu      sync.Mutex
	script  []string
	pos     int
	running bool
}

// NewVirtualNarrator creates an idle narrator
func NewVirtualNarrator() *VirtualNarrator {
	return &VirtualNarrator{}
}

// Start begins a session rooted at cfg.Root
func (v *VirtualNarrator) Start(ctx context.Context, cfg StartConfig) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return errAlreadyStarted
	}
	if cfg.Root == nil {
		return fmt.Errorf("start: nil root")
	}

	top := cfg.Root
	for top.Parent != nil {
		top = top.Parent
	}

	b := &scriptBuilder{doc: dom.FromNode(top)}
	b.emit(DocumentPhrase)
	b.walk(cfg.Root)
	b.emit(EndOfDocument)

	v.script = b.lines
	v.pos = 0
	v.running = true
	return nil
}

// Next advances to the following phrase
func (v *VirtualNarrator) Next(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running {
		return errNotStarted
	}
	if v.pos < len(v.script)-1 {
		v.pos++
	}
	return nil
}

// LastSpokenPhrase returns the phrase at the current position
func (v *VirtualNarrator) LastSpokenPhrase(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running {
		return "", errNotStarted
	}
	return v.script[v.pos], nil
}

// Stop ends the session. Stopping an idle narrator is a no-op.
func (v *VirtualNarrator) Stop(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.running = false
	v.script = nil
	v.pos = 0
	return nil
}

type scriptBuilder struct {
	doc   *dom.Document
	lines []string
}

func (b *scriptBuilder) emit(p string) {
	if p != "" {
		b.lines = append(b.lines, p)
	}
}

// textBlocks are spoken as a single phrase when they hold no named controls
var textBlocks = map[string]bool{
	"p": true, "li": true, "td": true, "th": true, "dt": true, "dd": true,
	"blockquote": true, "figcaption": true, "caption": true, "pre": true,
	"label": true, "legend": true,
}

func (b *scriptBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.emit(strings.Join(strings.Fields(n.Data), " "))
		return
	case html.ElementNode:
		if b.visit(n) {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

// visit speaks an element. It returns true when the subtree was fully handled.
func (b *scriptBuilder) visit(n *html.Node) bool {
	if isHidden(n) {
		return true
	}

	role := dom.AttrValue(n, "role")
	if role == "presentation" || role == "none" {
		if n.Data == "img" {
			return true
		}
		return false
	}

	if landmark := landmarkRole(n, role); landmark != "" {
		name := landmarkName(b.doc, n)
		b.emit(phrase(landmark, name))
		b.children(n)
		b.emit(phrase(endOfPrefix+landmark, name))
		return true
	}

	if level := dom.HeadingLevel(n); level > 0 {
		b.emit(headingPhrase(n, level))
		return true
	}

	switch {
	case role == "link" || (role == "" && n.Data == "a" && dom.HasAttr(n, "href")):
		b.emit(phrase("link", linkName(b.doc, n)))
		return true
	case role == "button" || (role == "" && isButton(n)):
		b.emit(phrase("button", buttonName(b.doc, n)))
		return true
	case role == "img" || (role == "" && n.Data == "img"):
		if alt, ok := dom.Attr(n, "alt"); ok && strings.TrimSpace(alt) == "" && dom.AriaLabel(n) == "" {
			return true // decorative
		}
		b.emit(phrase("image", imageName(n)))
		return true
	case role == "checkbox" || (role == "" && n.Data == "input" && dom.InputType(n) == "checkbox"):
		b.emit(phrase("checkbox", fieldName(b.doc, n), checkedState(n)))
		return true
	case role == "radio" || (role == "" && n.Data == "input" && dom.InputType(n) == "radio"):
		b.emit(phrase("radio button", fieldName(b.doc, n), checkedState(n)))
		return true
	case role == "combobox" || (role == "" && n.Data == "select"):
		b.emit(phrase("combobox", fieldName(b.doc, n)))
		return true
	case role == "textbox" || (role == "" && isTextField(n)):
		b.emit(phrase("textbox", fieldName(b.doc, n)))
		return true
	}

	switch n.Data {
	case "ul", "ol":
		items := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if dom.IsElement(c, "li") {
				items++
			}
		}
		b.emit(phrase("list", fmt.Sprintf("%d items", items)))
		b.children(n)
		b.emit("end of list")
		return true
	case "table":
		b.emit("table")
		b.children(n)
		b.emit("end of table")
		return true
	}

	if textBlocks[n.Data] && !hasNamedDescendant(n) {
		b.emit(dom.TextContent(n))
		return true
	}

	return false
}

func (b *scriptBuilder) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

func landmarkRole(n *html.Node, role string) string {
	switch role {
	case "banner", "navigation", "main", "complementary", "contentinfo", "search", "region":
		return role
	case "":
	default:
		return ""
	}

	switch n.Data {
	case "header":
		return "banner"
	case "nav":
		return "navigation"
	case "main":
		return "main"
	case "aside":
		return "complementary"
	case "footer":
		return "contentinfo"
	case "section":
		if dom.AriaLabel(n) != "" || dom.HasAttr(n, "aria-labelledby") {
			return "region"
		}
	case "form":
		if dom.AriaLabel(n) != "" || dom.HasAttr(n, "aria-labelledby") {
			return "form landmark"
		}
	}
	return ""
}

func isHidden(n *html.Node) bool {
	switch n.Data {
	case "head", "script", "style", "noscript", "template":
		return true
	case "input":
		if dom.InputType(n) == "hidden" {
			return true
		}
	}
	return dom.HasAttr(n, "hidden") || dom.AttrValue(n, "aria-hidden") == "true"
}

func isButton(n *html.Node) bool {
	if n.Data == "button" {
		return true
	}
	if n.Data != "input" {
		return false
	}
	switch dom.InputType(n) {
	case "button", "submit", "reset", "image":
		return true
	}
	return false
}

func isTextField(n *html.Node) bool {
	if n.Data == "textarea" {
		return true
	}
	return n.Data == "input" && textInputTypes[dom.InputType(n)]
}

func hasNamedDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "a", "button", "input", "select", "textarea", "img", "ul", "ol", "table",
			"h1", "h2", "h3", "h4", "h5", "h6":
			return true
		}
		if dom.HasAttr(c, "role") || hasNamedDescendant(c) {
			return true
		}
	}
	return false
}
