package wcag

import "github.com/ppiankov/narrascope/internal/model"

// Suggestions folds every nodes[].fixes[] message into a de-duplicated list,
// in first-seen order
func Suggestions(violations []model.WcagViolation) []string {
	seen := make(map[string]bool)
	var out []string

	for _, v := range violations {
		for _, node := range v.Nodes {
			for _, msg := range node.Fixes {
				if seen[msg] {
					continue
				}
				seen[msg] = true
				out = append(out, msg)
			}
		}
	}

	return out
}
