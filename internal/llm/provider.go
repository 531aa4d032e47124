// Package llm adds an optional AI review on top of a finished report. The
// review is additive: it never changes announcements or issues.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/narrascope/internal/model"
)

// ErrCitationLeak is returned when strict mode is on and the model cites a
// URL that is not one of the report's rule help pages
var ErrCitationLeak = errors.New("model cited a URL outside the allowed list")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Enrich reviews the report, optionally looking at a page screenshot
	Enrich(ctx context.Context, req EnrichRequest) (*EnrichResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// EnrichRequest contains the input for one review
type EnrichRequest struct {
	Report model.Report

	// Screenshot is a PNG of the rendered page, nil when unavailable
	Screenshot []byte

	// HelpURLs is the allowlist of URLs the model may cite in strict mode
	HelpURLs []string

	// Prompt overrides the default prompt when set
	Prompt string

	// Model overrides the configured model when set
	Model string

	MaxTokens int
}

// EnrichResponse contains the model's review
type EnrichResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	// StrictURLs rejects responses citing URLs outside HelpURLs
	StrictURLs bool

	MaxTokens int

	// Screenshot attaches a page capture to the request
	Screenshot bool

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the defaults used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Timeout:    60,
		StrictURLs: true,
		MaxTokens:  1200,
		Screenshot: true,
	}
}

const systemPrompt = "You review screen-reader narration reports for a web page. " +
	"You describe what a non-sighted user would experience and never claim the page conforms to any standard."

// maxPromptIssues bounds how many issues and violations are listed in the prompt
const maxPromptIssues = 15

// BuildPrompt constructs the default review prompt
func BuildPrompt(report model.Report, helpURLs []string, withImage bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are reviewing a Narrascope report. Narrascope simulates what a screen reader announces and flags known accessibility defect patterns. Its findings are approximate.

RULES:
1. You may ONLY cite URLs from this list:
%s

2. Do not invent rules, criteria numbers or sources beyond this list.
3. Do not state that the page is accessible or compliant. Describe risks only.
4. Keep the answer short and concrete: what a screen-reader user hears, what is missing, and what to fix first.

Report:
- Subject: %s
- Target: %s
- Narrator: %s`, joinURLs(helpURLs), report.Subject, report.Target, report.Narrator)

	if report.FallbackReason != model.FallbackNone {
		fmt.Fprintf(&b, " (fallback: %s)", report.FallbackReason)
	}
	fmt.Fprintf(&b, "\n- Announcements: %d\n- Issues: %d\n", len(report.Announcements), len(report.Issues))

	if len(report.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for i, issue := range report.Issues {
			if i >= maxPromptIssues {
				fmt.Fprintf(&b, "... and %d more\n", len(report.Issues)-maxPromptIssues)
				break
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", issue.Severity, issue.Type, issue.Description)
		}
	}

	if report.WCAG != nil && len(report.WCAG.Violations) > 0 {
		b.WriteString("\nRule engine violations:\n")
		for i, v := range report.WCAG.Violations {
			if i >= maxPromptIssues {
				fmt.Fprintf(&b, "... and %d more\n", len(report.WCAG.Violations)-maxPromptIssues)
				break
			}
			fmt.Fprintf(&b, "- %s (%s, %d nodes): %s\n", v.ID, v.Impact, len(v.Nodes), v.Help)
		}
	}

	if len(report.Announcements) > 0 {
		b.WriteString("\nFirst announcements:\n")
		for i, a := range report.Announcements {
			if i >= maxPromptIssues {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", a.Index+1, a.Announcement)
		}
	}

	if withImage {
		b.WriteString("\nA screenshot of the page is attached. Point out visible content that the announcements above never mention.\n")
	}

	b.WriteString("\nProvide 4-6 bullet points.")
	return b.String()
}

// HelpURLs collects the distinct rule help URLs of a report, in order
func HelpURLs(report model.Report) []string {
	if report.WCAG == nil {
		return nil
	}
	seen := make(map[string]bool)
	var urls []string
	for _, group := range [][]model.WcagViolation{report.WCAG.Violations, report.WCAG.Incomplete} {
		for _, v := range group {
			if v.HelpURL == "" || seen[v.HelpURL] {
				continue
			}
			seen[v.HelpURL] = true
			urls = append(urls, v.HelpURL)
		}
	}
	return urls
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No URLs available, do not cite any)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 20 {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"']+`)

// extractURLs returns the distinct URLs in text
func extractURLs(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// checkCitations fails on the first cited URL missing from allowed.
// Query strings and fragments are ignored on both sides.
func checkCitations(cited, allowed []string) error {
	permitted := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		permitted[canonicalURL(u)] = true
	}
	for _, u := range cited {
		if !permitted[canonicalURL(u)] {
			return fmt.Errorf("%w: %s", ErrCitationLeak, u)
		}
	}
	return nil
}

func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// finish extracts citations and applies strict mode
func finish(cfg Config, req EnrichRequest, summary, modelName string, tokens int) (*EnrichResponse, error) {
	cited := extractURLs(summary)
	if cfg.StrictURLs {
		if err := checkCitations(cited, req.HelpURLs); err != nil {
			return nil, err
		}
	}
	return &EnrichResponse{
		Summary:    summary,
		CitedURLs:  cited,
		Model:      modelName,
		TokensUsed: tokens,
	}, nil
}

func resolveModel(req EnrichRequest, cfg Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	return fallback
}

func resolveMaxTokens(req EnrichRequest, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 1000
}

func resolvePrompt(req EnrichRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.Report, req.HelpURLs, len(req.Screenshot) > 0)
}
