package model

// Impact is the rule engine's severity classification
type Impact string

const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
	ImpactMinor    Impact = "minor"
)

// Valid reports whether the impact is one of the known levels
func (i Impact) Valid() bool {
	switch i {
	case ImpactCritical, ImpactSerious, ImpactModerate, ImpactMinor:
		return true
	default:
		return false
	}
}

// WcagViolation is a rule-engine finding. Read-only for the core.
type WcagViolation struct {
	ID          string          `json:"id"`
	Impact      Impact          `json:"impact"`
	Description string          `json:"description"`
	Help        string          `json:"help"`
	HelpURL     string          `json:"help_url"`
	Tags        []string        `json:"tags,omitempty"`
	Nodes       []ViolationNode `json:"nodes,omitempty"`
}

// ViolationNode is one offending node reported by the rule engine
type ViolationNode struct {
	HTML           string   `json:"html,omitempty"`
	Target         string   `json:"target,omitempty"` // CSS selector
	FailureSummary string   `json:"failure_summary,omitempty"`
	Fixes          []string `json:"fixes,omitempty"` // Suggested-fix messages
}
