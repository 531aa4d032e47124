package wcag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/narrascope/internal/model"
	"go.uber.org/zap"
)

type rawResult struct {
	Violations []json.RawMessage `json:"violations"`
	Incomplete []json.RawMessage `json:"incomplete"`
	Passes     json.RawMessage   `json:"passes"`
}

// requiredFields must be non-empty strings on every violation entry
var requiredFields = []string{"id", "impact", "description", "help", "helpUrl"}

// Decode validates raw engine output. Missing containers default to empty;
// entries missing a required field are dropped with a warning. Only output
// that is not a JSON object at all is an error.
func Decode(raw json.RawMessage, logger *zap.Logger) (*model.WCAGResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var parsed rawResult
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}

	result := &model.WCAGResult{
		Violations: []model.WcagViolation{},
		Incomplete: []model.WcagViolation{},
		Passes:     countPasses(parsed.Passes),
	}

	for i, entry := range parsed.Violations {
		v, missing := decodeEntry(entry, requiredFields)
		if missing != "" {
			result.Dropped++
			logger.Warn("dropping malformed violation",
				zap.Int("position", i), zap.String("missing", missing))
			continue
		}
		result.Violations = append(result.Violations, v)
	}

	// Incomplete entries may legitimately have no impact yet
	for i, entry := range parsed.Incomplete {
		v, missing := decodeEntry(entry, []string{"id", "description", "help", "helpUrl"})
		if missing != "" {
			result.Dropped++
			logger.Warn("dropping malformed incomplete result",
				zap.Int("position", i), zap.String("missing", missing))
			continue
		}
		result.Incomplete = append(result.Incomplete, v)
	}

	return result, nil
}

func decodeEntry(raw json.RawMessage, required []string) (model.WcagViolation, string) {
	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil || entry == nil {
		return model.WcagViolation{}, "object"
	}
	return decodeViolation(entry, required)
}

// decodeViolation returns the first missing required field, or ""
func decodeViolation(entry map[string]any, required []string) (model.WcagViolation, string) {
	for _, field := range required {
		if stringField(entry, field) == "" {
			return model.WcagViolation{}, field
		}
	}

	impact := model.Impact(stringField(entry, "impact"))
	if impact != "" && !impact.Valid() {
		return model.WcagViolation{}, "impact"
	}

	v := model.WcagViolation{
		ID:          stringField(entry, "id"),
		Impact:      impact,
		Description: stringField(entry, "description"),
		Help:        stringField(entry, "help"),
		HelpURL:     stringField(entry, "helpUrl"),
		Tags:        stringSlice(entry["tags"]),
	}

	if nodes, ok := entry["nodes"].([]any); ok {
		for _, rawNode := range nodes {
			node, ok := rawNode.(map[string]any)
			if !ok {
				continue
			}
			v.Nodes = append(v.Nodes, decodeNode(node))
		}
	}

	return v, ""
}

func decodeNode(node map[string]any) model.ViolationNode {
	out := model.ViolationNode{
		HTML:           stringField(node, "html"),
		FailureSummary: stringField(node, "failureSummary"),
	}

	switch target := node["target"].(type) {
	case string:
		out.Target = target
	case []any:
		out.Target = strings.Join(stringSlice(target), " ")
	}

	// axe reports fix hints as check messages under any/all/none
	for _, key := range []string{"fixes", "any", "all", "none"} {
		checks, ok := node[key].([]any)
		if !ok {
			continue
		}
		for _, rawCheck := range checks {
			if check, ok := rawCheck.(map[string]any); ok {
				if msg := stringField(check, "message"); msg != "" {
					out.Fixes = append(out.Fixes, msg)
				}
			}
		}
	}

	return out
}

func countPasses(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return len(list)
	}
	return 0
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
