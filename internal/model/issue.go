package model

// IssueType enumerates the defect kinds the detectors can report
type IssueType string

const (
	IssueMissingAlt          IssueType = "missing_alt"
	IssueUnlabeledIconButton IssueType = "unlabeled_icon_button"
	IssueEmptyLink           IssueType = "empty_link"
	IssueFakeButton          IssueType = "fake_button"
	IssueMissingMain         IssueType = "missing_main"
	IssueHeadingSkip         IssueType = "heading_skip"
	IssueUnlabeledInput      IssueType = "unlabeled_input"
	IssueUnlabeledButton     IssueType = "unlabeled_button"
	IssueUnlabeledCheckbox   IssueType = "unlabeled_checkbox"
)

// Severity of an issue.
// Errors silence or misidentify content; warnings reduce usability without total loss.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single detected accessibility defect
type Issue struct {
	Type         IssueType `json:"type"`
	Severity     Severity  `json:"severity"`
	Description  string    `json:"description"`
	Element      *NodeRef  `json:"related_element,omitempty"`      // Structural detections
	Announcement string    `json:"related_announcement,omitempty"` // Announcement-pattern detections
}

// IssueKey is the identity used when reconciling issue sets
type IssueKey struct {
	Type        IssueType
	Description string
}

// Key returns the reconciliation key of the issue
func (i Issue) Key() IssueKey {
	return IssueKey{Type: i.Type, Description: i.Description}
}
