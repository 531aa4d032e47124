package narrate

import (
	"github.com/andybalholm/cascadia"
	"github.com/ppiankov/narrascope/internal/dom"
	"github.com/ppiankov/narrascope/internal/model"
	"golang.org/x/net/html"
)

// labelRule builds the spoken phrase for one matched element.
// An empty result means the element has nothing to speak and is skipped.
type labelRule func(doc *dom.Document, n *html.Node) string

type scanRule struct {
	selector cascadia.Matcher
	category model.Category
	label    labelRule
}

func landmarkRule(role string) labelRule {
	return func(doc *dom.Document, n *html.Node) string {
		return phrase(role, landmarkName(doc, n))
	}
}

// directRules is applied in order; within a rule, matches are in document order
var directRules = []scanRule{
	{dom.MustCompile("header, [role=banner]"), model.CategoryLandmark, landmarkRule("banner")},
	{dom.MustCompile("nav, [role=navigation]"), model.CategoryLandmark, landmarkRule("navigation")},
	{dom.MustCompile("main, [role=main]"), model.CategoryLandmark, landmarkRule("main")},
	{dom.MustCompile("aside, [role=complementary]"), model.CategoryLandmark, landmarkRule("complementary")},
	{dom.MustCompile("footer, [role=contentinfo]"), model.CategoryLandmark, landmarkRule("contentinfo")},
	{
		dom.MustCompile("h1, h2, h3, h4, h5, h6, [role=heading]"),
		model.CategoryHeading,
		func(doc *dom.Document, n *html.Node) string {
			return headingPhrase(n, dom.HeadingLevel(n))
		},
	},
	{
		dom.MustCompile("a[href]:not([role]), [role=link]"),
		model.CategoryInteractive,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("link", linkName(doc, n))
		},
	},
	{
		dom.MustCompile("button:not([role]), [role=button], input[type=button i], input[type=submit i], input[type=reset i], input[type=image i]"),
		model.CategoryInteractive,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("button", buttonName(doc, n))
		},
	},
	{
		dom.MustCompile(`img:not([alt=""]):not([role=presentation]):not([role=none]), [role=img]`),
		model.CategoryContent,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("image", imageName(n))
		},
	},
	{
		dom.MustCompile("input:not([type]), input[type=text i], input[type=email i], input[type=search i], input[type=password i], input[type=tel i], input[type=url i], input[type=number i], textarea, [role=textbox]"),
		model.CategoryForm,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("textbox", fieldName(doc, n))
		},
	},
	{
		dom.MustCompile("input[type=checkbox i], [role=checkbox]"),
		model.CategoryForm,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("checkbox", fieldName(doc, n), checkedState(n))
		},
	},
	{
		dom.MustCompile("input[type=radio i], [role=radio]"),
		model.CategoryForm,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("radio button", fieldName(doc, n), checkedState(n))
		},
	},
	{
		dom.MustCompile("select, [role=combobox]"),
		model.CategoryForm,
		func(doc *dom.Document, n *html.Node) string {
			return phrase("combobox", fieldName(doc, n))
		},
	},
	{
		dom.MustCompile("p"),
		model.CategoryContent,
		func(doc *dom.Document, n *html.Node) string {
			return dom.TextContent(n)
		},
	},
}

// DirectScanner is the fallback narrator. It walks the document with a fixed
// selector table instead of driving a narrator, so it cannot fail.
type DirectScanner struct {
	rules []scanRule
}

// NewDirectScanner creates a scanner with the built-in rule table
func NewDirectScanner() *DirectScanner {
	return &DirectScanner{rules: directRules}
}

// Scan produces one record per matching element. Records always carry a
// source handle and are not de-duplicated.
func (s *DirectScanner) Scan(doc *dom.Document, root *html.Node) []model.AnnouncementRecord {
	records := []model.AnnouncementRecord{}

	for _, rule := range s.rules {
		for _, n := range dom.QueryAll(root, rule.selector) {
			if isHidden(n) {
				continue
			}
			spoken := rule.label(doc, n)
			if spoken == "" {
				continue
			}
			records = append(records, model.AnnouncementRecord{
				Index:        len(records),
				Announcement: spoken,
				Category:     rule.category,
				Source:       doc.Ref(n),
			})
		}
	}

	return records
}
