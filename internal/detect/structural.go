// Package detect finds accessibility defects in the document structure and in
// the announcement stream, and reconciles both into one issue set.
package detect

import (
	"fmt"

	"github.com/ppiankov/narrascope/internal/dom"
	"github.com/ppiankov/narrascope/internal/model"
	"golang.org/x/net/html"
)

var (
	imgSel         = dom.MustCompile("img")
	buttonSel      = dom.MustCompile("button, [role=button]")
	linkSel        = dom.MustCompile("a[href]")
	clickableSel   = dom.MustCompile("div, span")
	mainSel        = dom.MustCompile("main, [role=main]")
	contentSel     = dom.MustCompile("p, h1, h2, h3, h4, h5, h6, form")
	headingSel     = dom.MustCompile("h1, h2, h3, h4, h5, h6")
	formControlSel = dom.MustCompile("input, select, textarea")
	iconSel        = dom.MustCompile(`svg, img, i, [class*="icon"], [class*="fa-"]`)
)

// clickAttrs are the attributes treated as a click handler in static markup
var clickAttrs = []string{"onclick", "ng-click", "@click", "v-on:click", "(click)"}

// unlabeledExempt are input types that never need a label
var unlabeledExempt = map[string]bool{
	"hidden": true, "submit": true, "button": true,
}

type check func(doc *dom.Document, root *html.Node) []model.Issue

// StructuralScanner applies a fixed battery of structural checks
type StructuralScanner struct {
	checks []check
}

// NewStructuralScanner creates a scanner with the built-in checks
func NewStructuralScanner() *StructuralScanner {
	return &StructuralScanner{
		checks: []check{
			checkMissingAlt,
			checkUnlabeledIconButtons,
			checkEmptyLinks,
			checkFakeButtons,
			checkMissingMain,
			checkHeadingSkips,
			checkUnlabeledInputs,
		},
	}
}

// Scan runs every check against root. The output depends only on the
// document, so repeated scans of an unchanged document are identical.
func (s *StructuralScanner) Scan(doc *dom.Document, root *html.Node) []model.Issue {
	issues := []model.Issue{}
	for _, c := range s.checks {
		issues = append(issues, c(doc, root)...)
	}
	return issues
}

// checkMissingAlt emits a single representative issue per scan
func checkMissingAlt(doc *dom.Document, root *html.Node) []model.Issue {
	var missing []*html.Node
	for _, img := range dom.QueryAll(root, imgSel) {
		if !dom.HasAttr(img, "alt") {
			missing = append(missing, img)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	first := missing[0]
	desc := fmt.Sprintf("Image has no alt attribute: %s", dom.Describe(first))
	if len(missing) > 1 {
		desc = fmt.Sprintf("%s (and %d more)", desc, len(missing)-1)
	}

	return []model.Issue{{
		Type:        model.IssueMissingAlt,
		Severity:    model.SeverityError,
		Description: desc,
		Element:     doc.Ref(first),
	}}
}

func checkUnlabeledIconButtons(doc *dom.Document, root *html.Node) []model.Issue {
	var issues []model.Issue
	for _, btn := range dom.QueryAll(root, buttonSel) {
		if dom.TextContent(btn) != "" || dom.AriaLabel(btn) != "" || dom.AttrValue(btn, "aria-labelledby") != "" {
			continue
		}
		if !hasIconChild(btn) {
			continue
		}
		issues = append(issues, model.Issue{
			Type:        model.IssueUnlabeledIconButton,
			Severity:    model.SeverityError,
			Description: fmt.Sprintf("Icon-only button has no accessible name: %s", dom.Describe(btn)),
			Element:     doc.Ref(btn),
		})
	}
	return issues
}

func hasIconChild(n *html.Node) bool {
	for _, icon := range dom.QueryAll(n, iconSel) {
		if icon != n {
			return true
		}
	}
	return false
}

func checkEmptyLinks(doc *dom.Document, root *html.Node) []model.Issue {
	var issues []model.Issue
	for _, a := range dom.QueryAll(root, linkSel) {
		if dom.TextContent(a) != "" || dom.AriaLabel(a) != "" {
			continue
		}
		issues = append(issues, model.Issue{
			Type:        model.IssueEmptyLink,
			Severity:    model.SeverityError,
			Description: fmt.Sprintf("Link has no text or aria-label: %s", dom.Describe(a)),
			Element:     doc.Ref(a),
		})
	}
	return issues
}

func checkFakeButtons(doc *dom.Document, root *html.Node) []model.Issue {
	var issues []model.Issue
	for _, n := range dom.QueryAll(root, clickableSel) {
		if !hasClickHandler(n) || dom.HasAttr(n, "role") || dom.HasAttr(n, "tabindex") {
			continue
		}
		issues = append(issues, model.Issue{
			Type:        model.IssueFakeButton,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Clickable <%s> has no role or tabindex and is unreachable by keyboard: %s", n.Data, dom.Describe(n)),
			Element:     doc.Ref(n),
		})
	}
	return issues
}

func hasClickHandler(n *html.Node) bool {
	for _, key := range clickAttrs {
		if dom.HasAttr(n, key) {
			return true
		}
	}
	return false
}

// checkMissingMain skips trivial snippets with two or fewer content elements
func checkMissingMain(doc *dom.Document, root *html.Node) []model.Issue {
	if dom.QueryFirst(doc.Root(), mainSel) != nil {
		return nil
	}
	if len(dom.QueryAll(root, contentSel)) <= 2 {
		return nil
	}
	return []model.Issue{{
		Type:        model.IssueMissingMain,
		Severity:    model.SeverityWarning,
		Description: "Page has no main landmark; screen reader users cannot jump to the primary content",
	}}
}

func checkHeadingSkips(doc *dom.Document, root *html.Node) []model.Issue {
	var issues []model.Issue
	previous := 0
	for _, h := range dom.QueryAll(root, headingSel) {
		level := dom.HeadingLevel(h)
		if previous > 0 && level > previous+1 {
			issues = append(issues, model.Issue{
				Type:     model.IssueHeadingSkip,
				Severity: model.SeverityWarning,
				Description: fmt.Sprintf("Heading level skipped: h%d to h%d (%q)",
					previous, level, dom.Truncate(dom.TextContent(h), 60)),
				Element: doc.Ref(h),
			})
		}
		previous = level
	}
	return issues
}

func checkUnlabeledInputs(doc *dom.Document, root *html.Node) []model.Issue {
	var issues []model.Issue
	for _, field := range dom.QueryAll(root, formControlSel) {
		if field.Data == "input" && unlabeledExempt[dom.InputType(field)] {
			continue
		}
		if doc.HasExternalLabel(field) ||
			dom.AriaLabel(field) != "" ||
			dom.AttrValue(field, "aria-labelledby") != "" ||
			dom.WrappingLabel(field) != nil {
			continue
		}
		issues = append(issues, model.Issue{
			Type:        model.IssueUnlabeledInput,
			Severity:    model.SeverityError,
			Description: fmt.Sprintf("Form field has no associated label: %s", dom.Describe(field)),
			Element:     doc.Ref(field),
		})
	}
	return issues
}
