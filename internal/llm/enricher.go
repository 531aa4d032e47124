package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/narrascope/internal/model"
	"go.uber.org/zap"
)

// Enricher runs the optional AI review. Failures never fail a scan: they
// come back as warnings on the summary.
type Enricher struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// NewEnricher creates an enricher. A config without a provider yields a
// disabled enricher.
func NewEnricher(config Config, logger *zap.Logger) (*Enricher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Enricher{provider: provider, config: config, logger: logger}, nil
}

// IsEnabled reports whether a provider is configured
func (e *Enricher) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// WantsScreenshot reports whether a page capture should be attached
func (e *Enricher) WantsScreenshot() bool {
	return e.IsEnabled() && e.config.Screenshot
}

// ProviderName returns the configured provider, or "" when disabled
func (e *Enricher) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Enrich reviews a finished report. It returns nil when disabled.
func (e *Enricher) Enrich(ctx context.Context, report model.Report, screenshot []byte) (*model.AISummary, error) {
	if !e.IsEnabled() {
		return nil, nil
	}

	summary := &model.AISummary{
		Provider:   e.provider.Name(),
		Model:      e.config.Model,
		StrictURLs: e.config.StrictURLs,
	}

	if !e.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("Provider %s not available (check API key or server)", e.provider.Name()))
		e.logger.Warn("LLM provider not available", zap.String("provider", e.provider.Name()))
		return summary, nil
	}

	summary.Enabled = true
	helpURLs := HelpURLs(report)

	resp, err := e.provider.Enrich(ctx, EnrichRequest{
		Report:     report,
		Screenshot: screenshot,
		HelpURLs:   helpURLs,
		Model:      e.config.Model,
		MaxTokens:  e.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("AI review failed: %v", err))
		e.logger.Warn("AI review failed", zap.Error(err))
		return summary, nil
	}

	summary.UsedImage = len(screenshot) > 0
	summary.SummaryMD = resp.Summary
	summary.TokensUsed = resp.TokensUsed
	if resp.Model != "" {
		summary.Model = resp.Model
	}

	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if e.config.StrictURLs && len(resp.CitedURLs) > 0 {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("Verified %d citations against %d rule help pages", len(resp.CitedURLs), len(helpURLs)))
	}

	return summary, nil
}

// RenderSeparateMarkdown renders the AI review as a standalone document,
// kept apart from the main report
func RenderSeparateMarkdown(summary *model.AISummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# AI Review\n\n")
	b.WriteString("> **GENERATED CONTENT** - this review was produced by a language model from the Narrascope report.\n")
	b.WriteString("> Announcements and issues were determined independently and are not affected by it.\n\n")

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Provider | %s |\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "| Model | %s |\n", summary.Model)
	}
	fmt.Fprintf(&b, "| Strict URL Mode | %t |\n", summary.StrictURLs)
	fmt.Fprintf(&b, "| Screenshot Attached | %t |\n\n", summary.UsedImage)

	b.WriteString("## Review\n\n")
	if summary.SummaryMD == "" {
		b.WriteString("_No review generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
