package narrate

import (
	"strconv"
	"strings"

	"github.com/ppiankov/narrascope/internal/dom"
	"golang.org/x/net/html"
)

var imgSelector = dom.MustCompile("img[alt]")

// phrase joins the non-empty parts with ", " the way narrators speak them
func phrase(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func landmarkName(doc *dom.Document, n *html.Node) string {
	return dom.FirstNonEmpty(dom.AriaLabel(n), doc.LabelledByText(n))
}

func linkName(doc *dom.Document, n *html.Node) string {
	return dom.FirstNonEmpty(
		dom.AriaLabel(n),
		doc.LabelledByText(n),
		dom.TextContent(n),
		innerImageAlt(n),
		dom.AttrValue(n, "title"),
	)
}

func buttonName(doc *dom.Document, n *html.Node) string {
	name := dom.FirstNonEmpty(
		dom.AriaLabel(n),
		doc.LabelledByText(n),
		dom.TextContent(n),
		innerImageAlt(n),
	)
	if name != "" {
		return name
	}

	if n.Data == "input" {
		switch dom.InputType(n) {
		case "submit":
			return dom.FirstNonEmpty(dom.AttrValue(n, "value"), "Submit")
		case "reset":
			return dom.FirstNonEmpty(dom.AttrValue(n, "value"), "Reset")
		case "image":
			return dom.FirstNonEmpty(dom.AttrValue(n, "alt"), dom.AttrValue(n, "value"))
		default:
			return dom.AttrValue(n, "value")
		}
	}
	return dom.AttrValue(n, "title")
}

// fieldName is the label chain for form controls: explicit accessible name,
// then an associated label element, then placeholder text
func fieldName(doc *dom.Document, n *html.Node) string {
	var wrapping string
	if label := dom.WrappingLabel(n); label != nil {
		wrapping = dom.TextContent(label)
	}
	return dom.FirstNonEmpty(
		dom.AriaLabel(n),
		doc.LabelledByText(n),
		doc.ExternalLabel(n),
		wrapping,
		dom.AttrValue(n, "placeholder"),
	)
}

func imageName(n *html.Node) string {
	return dom.FirstNonEmpty(dom.AriaLabel(n), dom.AttrValue(n, "alt"), dom.AttrValue(n, "title"))
}

func headingPhrase(n *html.Node, level int) string {
	return phrase("heading", dom.TextContent(n), "level "+strconv.Itoa(level))
}

func checkedState(n *html.Node) string {
	if dom.HasAttr(n, "checked") || dom.AttrValue(n, "aria-checked") == "true" {
		return "checked"
	}
	return ""
}

func innerImageAlt(n *html.Node) string {
	for _, img := range dom.QueryAll(n, imgSelector) {
		if alt := dom.AttrValue(img, "alt"); alt != "" {
			return alt
		}
	}
	return ""
}

// textInputTypes are the input types narrated as a textbox
var textInputTypes = map[string]bool{
	"": true, "text": true, "email": true, "search": true, "password": true,
	"tel": true, "url": true, "number": true, "date": true, "time": true,
}
