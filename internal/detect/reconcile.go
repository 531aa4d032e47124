package detect

import "github.com/ppiankov/narrascope/internal/model"

// Reconcile merges structural and announcement issues, keeping the first
// occurrence of every (type, description) pair verbatim
func Reconcile(structural, fromAnnouncements []model.Issue) []model.Issue {
	seen := make(map[model.IssueKey]bool, len(structural)+len(fromAnnouncements))
	unique := make([]model.Issue, 0, len(structural)+len(fromAnnouncements))

	for _, group := range [][]model.Issue{structural, fromAnnouncements} {
		for _, issue := range group {
			key := issue.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			unique = append(unique, issue)
		}
	}

	return unique
}
