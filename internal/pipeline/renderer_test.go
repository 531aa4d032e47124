package pipeline

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/stretchr/testify/assert"
)

func sampleReport() *model.Report {
	return &model.Report{
		RunID:          "run-1",
		Subject:        "Checkout",
		Target:         "https://shop.example.com/checkout",
		FetchedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Narrator:       model.NarratorDirectScan,
		FallbackReason: model.FallbackEmpty,
		Announcements: []model.AnnouncementRecord{
			{Index: 0, Announcement: "heading, Checkout, level 1", Category: model.CategoryHeading},
			{Index: 1, Announcement: "button", Category: model.CategoryInteractive},
		},
		Issues: []model.Issue{
			{Type: model.IssueUnlabeledButton, Severity: model.SeverityError, Description: "Button | no name"},
			{Type: model.IssueHeadingSkip, Severity: model.SeverityWarning, Description: "Heading level skipped"},
		},
		WCAG: &model.WCAGResult{
			Violations: []model.WcagViolation{{
				ID:      "button-name",
				Impact:  model.ImpactCritical,
				Help:    "Buttons must have discernible text",
				HelpURL: "https://dequeuniversity.com/rules/axe/4.10/button-name",
				Nodes:   []model.ViolationNode{{Target: "#pay"}},
			}},
			Suggestions: []string{"Element does not have inner text"},
			Dropped:     2,
		},
	}
}

func TestRenderer_Markdown(t *testing.T) {
	md := NewRenderer(true, false).Markdown(sampleReport())

	for _, want := range []string{
		"# Narrascope Report: Checkout",
		"**Narrator:** direct_scan (fallback: empty_traversal)",
		"- Errors: 1",
		"- Warnings: 1",
		"| error | `unlabeled_button` | Button \\| no name |",
		"1. heading, Checkout, level 1 _(heading)_",
		"2. button _(interactive)_",
		"### button-name (critical)",
		"- `#pay`",
		"- Element does not have inner text",
		"_2 malformed rule results were discarded._",
		"does not certify conformance",
	} {
		assert.Contains(t, md, want)
	}

	noFooter := NewRenderer(false, false).Markdown(sampleReport())
	assert.NotContains(t, noFooter, "certify")
}

func TestRenderer_MarkdownEmpty(t *testing.T) {
	md := NewRenderer(false, false).Markdown(&model.Report{Subject: "Blank", Narrator: model.NarratorTraversal})

	assert.Contains(t, md, "This does not mean the page is accessible")
	assert.Contains(t, md, "_Nothing was announced._")
	assert.NotContains(t, md, "## Rule Engine")
}

func TestRenderer_MarkdownEngineError(t *testing.T) {
	report := sampleReport()
	report.WCAG = &model.WCAGResult{Error: "rule engine: timeout"}

	md := NewRenderer(false, false).Markdown(report)
	assert.Contains(t, md, "> Rule engine failed: rule engine: timeout")
}

func TestRenderer_PrintSummary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(false, false).PrintSummary(&buf, sampleReport())

	out := buf.String()
	assert.Contains(t, out, "https://shop.example.com/checkout\n")
	assert.Contains(t, out, "narrator: direct_scan (fallback: empty_traversal), announcements: 2")
	assert.Contains(t, out, "1 errors, 1 warnings")
	assert.Contains(t, out, "rule violations: 1, incomplete: 0")
	assert.False(t, strings.Contains(out, "\x1b["), "no escape codes when color is off")
}
