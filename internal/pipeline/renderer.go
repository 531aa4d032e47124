package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/ppiankov/narrascope/internal/model"
)

// Renderer writes reports to disk and terminals
type Renderer struct {
	includeFooter bool
	colored       bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter, colored bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, colored: colored}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// RenderAIMarkdown writes the separate AI review document
func (r *Renderer) RenderAIMarkdown(content, path string) error {
	return writeFile(path, []byte(content))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders the report as Markdown
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Narrascope Report: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "**Target:** %s  \n", report.Target)
	fmt.Fprintf(&b, "**Analyzed:** %s  \n", report.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "**Run ID:** `%s`  \n", report.RunID)
	narrator := string(report.Narrator)
	if report.FallbackReason != model.FallbackNone {
		narrator += fmt.Sprintf(" (fallback: %s)", report.FallbackReason)
	}
	fmt.Fprintf(&b, "**Narrator:** %s\n\n", narrator)

	counts := report.CountBySeverity()
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Announcements: %d\n", len(report.Announcements))
	fmt.Fprintf(&b, "- Errors: %d\n", counts[model.SeverityError])
	fmt.Fprintf(&b, "- Warnings: %d\n", counts[model.SeverityWarning])
	if report.WCAG != nil {
		fmt.Fprintf(&b, "- Rule violations: %d (incomplete: %d, passes: %d)\n",
			len(report.WCAG.Violations), len(report.WCAG.Incomplete), report.WCAG.Passes)
	}
	b.WriteString("\n")

	b.WriteString("## Issues\n\n")
	if len(report.Issues) == 0 {
		b.WriteString("_No known defect patterns found. This does not mean the page is accessible._\n\n")
	} else {
		b.WriteString("| Severity | Type | Description |\n|---|---|---|\n")
		for _, issue := range report.Issues {
			fmt.Fprintf(&b, "| %s | `%s` | %s |\n", issue.Severity, issue.Type, escapeCell(issue.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Announcements\n\n")
	if len(report.Announcements) == 0 {
		b.WriteString("_Nothing was announced._\n\n")
	} else {
		for _, a := range report.Announcements {
			fmt.Fprintf(&b, "%d. %s _(%s)_\n", a.Index+1, a.Announcement, a.Category)
		}
		b.WriteString("\n")
	}

	if report.WCAG != nil {
		b.WriteString("## Rule Engine\n\n")
		if report.WCAG.Error != "" {
			fmt.Fprintf(&b, "> Rule engine failed: %s\n\n", report.WCAG.Error)
		}
		for _, v := range report.WCAG.Violations {
			fmt.Fprintf(&b, "### %s (%s)\n\n%s  \n[%s](%s)\n\n", v.ID, v.Impact, v.Help, v.HelpURL, v.HelpURL)
			for _, n := range v.Nodes {
				fmt.Fprintf(&b, "- `%s`\n", n.Target)
			}
			if len(v.Nodes) > 0 {
				b.WriteString("\n")
			}
		}
		if len(report.WCAG.Suggestions) > 0 {
			b.WriteString("### Suggestions\n\n")
			for _, s := range report.WCAG.Suggestions {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
		if report.WCAG.Dropped > 0 {
			fmt.Fprintf(&b, "_%d malformed rule results were discarded._\n\n", report.WCAG.Dropped)
		}
	}

	if report.AI != nil && len(report.AI.Warnings) > 0 && !report.AI.Enabled {
		b.WriteString("## AI Review\n\n")
		for _, w := range report.AI.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Narrascope approximates screen-reader output and flags known defect patterns. ")
		b.WriteString("It does not certify conformance with WCAG or any other standard._\n")
	}

	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// PrintSummary writes a short terminal summary
func (r *Renderer) PrintSummary(w io.Writer, report *model.Report) {
	errColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow)
	okColor := color.New(color.FgGreen)
	dim := color.New(color.Faint)
	for _, c := range []*color.Color{errColor, warnColor, okColor, dim} {
		if r.colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	counts := report.CountBySeverity()
	fmt.Fprintf(w, "%s\n", report.Target)
	_, _ = dim.Fprintf(w, "  narrator: %s", report.Narrator)
	if report.FallbackReason != model.FallbackNone {
		_, _ = dim.Fprintf(w, " (fallback: %s)", report.FallbackReason)
	}
	_, _ = dim.Fprintf(w, ", announcements: %d\n", len(report.Announcements))

	if len(report.Issues) == 0 {
		_, _ = okColor.Fprintln(w, "  no known defect patterns found")
	} else {
		_, _ = errColor.Fprintf(w, "  %d errors", counts[model.SeverityError])
		fmt.Fprint(w, ", ")
		_, _ = warnColor.Fprintf(w, "%d warnings\n", counts[model.SeverityWarning])
		for _, issue := range report.Issues {
			c := warnColor
			if issue.Severity == model.SeverityError {
				c = errColor
			}
			_, _ = c.Fprintf(w, "  %-7s", issue.Severity)
			fmt.Fprintf(w, " %s\n", issue.Description)
		}
	}

	if report.WCAG != nil {
		if report.WCAG.Error != "" {
			_, _ = errColor.Fprintf(w, "  rule engine failed: %s\n", report.WCAG.Error)
		} else {
			fmt.Fprintf(w, "  rule violations: %d, incomplete: %d\n", len(report.WCAG.Violations), len(report.WCAG.Incomplete))
		}
	}
}
