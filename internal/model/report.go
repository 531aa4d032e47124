package model

import "time"

// Report represents the complete narrascope analysis report
type Report struct {
	RunID     string    `json:"run_id"`             // Unique per analysis run
	Subject   string    `json:"subject"`            // Human-readable subject (page title or slug)
	Target    string    `json:"target"`             // URL or file path that was analyzed
	FetchedAt time.Time `json:"fetched_at"`         // When the analysis ran
	FetchMeta FetchMeta `json:"fetch_meta"`         // HTTP metadata (empty for local files)
	Duration  string    `json:"duration,omitempty"` // Wall time of the core analysis

	Narrator       NarratorKind   `json:"narrator"`                  // Which narrator produced the stream
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"` // Why the direct scan was used

	Announcements []AnnouncementRecord `json:"announcements"`
	Issues        []Issue              `json:"issues"`

	WCAG *WCAGResult `json:"wcag,omitempty"` // Rule engine output, when enabled
	AI   *AISummary  `json:"ai,omitempty"`   // Optional AI enrichment, never affects issues

	Principles Principles `json:"principles"`
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	FromCache    bool              `json:"from_cache,omitempty"`
}

// WCAGResult is the validated output of the rule-checking engine
type WCAGResult struct {
	Violations  []WcagViolation `json:"violations"`
	Incomplete  []WcagViolation `json:"incomplete"`
	Passes      int             `json:"passes"`
	Suggestions []string        `json:"suggestions,omitempty"` // Deduplicated fix messages
	Dropped     int             `json:"dropped,omitempty"`     // Malformed entries discarded
	Error       string          `json:"error,omitempty"`       // Displayable engine failure
}

// CountBySeverity returns the number of issues per severity
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// Principles documents which core principles were applied
type Principles struct {
	Approximate bool `json:"approximate"`  // Warns, never certifies conformance
	Additive    bool `json:"additive"`     // AI enrichment never changes issues
	PatternOnly bool `json:"pattern_only"` // Only known defect signatures are detected
}

// DefaultPrinciples returns the standard narrascope principles
func DefaultPrinciples() Principles {
	return Principles{
		Approximate: true,
		Additive:    true,
		PatternOnly: true,
	}
}

// AISummary contains the optional AI-generated review
// It is kept apart from Issues and never feeds back into detection.
type AISummary struct {
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"` // openai, anthropic, ollama
	Model      string   `json:"model,omitempty"`
	StrictURLs bool     `json:"strict_urls"`     // Whether citation enforcement was enabled
	UsedImage  bool     `json:"used_screenshot"` // Whether a screenshot was attached
	SummaryMD  string   `json:"summary_md,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
}
