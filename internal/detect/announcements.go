package detect

import (
	"fmt"
	"strings"

	"github.com/ppiankov/narrascope/internal/model"
)

// bareRoles maps a role name spoken with nothing else to the defect it signals
var bareRoles = map[string]model.IssueType{
	"button":   model.IssueUnlabeledButton,
	"link":     model.IssueEmptyLink,
	"image":    model.IssueMissingAlt,
	"img":      model.IssueMissingAlt,
	"textbox":  model.IssueUnlabeledInput,
	"edit":     model.IssueUnlabeledInput,
	"checkbox": model.IssueUnlabeledCheckbox,
}

// AnnouncementMatcher looks for defect signatures in the announcement stream
type AnnouncementMatcher struct {
	signatures map[string]model.IssueType
}

// NewAnnouncementMatcher creates a matcher with the built-in signatures
func NewAnnouncementMatcher() *AnnouncementMatcher {
	return &AnnouncementMatcher{signatures: bareRoles}
}

// Match flags announcements that are exactly a bare role name. "button, submit"
// is fine; "button" alone means the narrator had no name to speak.
func (m *AnnouncementMatcher) Match(records []model.AnnouncementRecord) []model.Issue {
	issues := []model.Issue{}
	for _, rec := range records {
		normalized := strings.ToLower(strings.TrimSpace(rec.Announcement))
		issueType, ok := m.signatures[normalized]
		if !ok {
			continue
		}
		issues = append(issues, model.Issue{
			Type:         issueType,
			Severity:     model.SeverityError,
			Description:  fmt.Sprintf("Screen reader announces only %q with no accessible name", normalized),
			Announcement: rec.Announcement,
		})
	}
	return issues
}
