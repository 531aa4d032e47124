package wcag

import (
	"encoding/json"
	"testing"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const axeOutput = `{
  "violations": [
    {
      "id": "image-alt",
      "impact": "critical",
      "description": "Ensures <img> elements have alternate text",
      "help": "Images must have alternate text",
      "helpUrl": "https://dequeuniversity.com/rules/axe/4.8/image-alt",
      "tags": ["wcag2a", "wcag111"],
      "nodes": [
        {
          "html": "<img src=\"cat.jpg\">",
          "target": ["img"],
          "failureSummary": "Fix any of the following",
          "any": [
            {"message": "Element does not have an alt attribute"},
            {"message": "aria-label attribute does not exist or is empty"}
          ]
        }
      ]
    },
    {"id": "broken", "impact": "serious", "description": "no help"},
    {"id": "bad-impact", "impact": "apocalyptic", "description": "d", "help": "h", "helpUrl": "u"},
    "not an object"
  ],
  "incomplete": [
    {"id": "color-contrast", "description": "d", "help": "h", "helpUrl": "https://example.com/cc"}
  ],
  "passes": 42
}`

func TestDecode(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	result, err := Decode(json.RawMessage(axeOutput), zap.New(core))
	require.NoError(t, err)

	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "image-alt", v.ID)
	assert.Equal(t, model.ImpactCritical, v.Impact)
	assert.Equal(t, []string{"wcag2a", "wcag111"}, v.Tags)
	require.Len(t, v.Nodes, 1)
	assert.Equal(t, "img", v.Nodes[0].Target)
	assert.Equal(t, []string{
		"Element does not have an alt attribute",
		"aria-label attribute does not exist or is empty",
	}, v.Nodes[0].Fixes)

	require.Len(t, result.Incomplete, 1)
	assert.Equal(t, model.Impact(""), result.Incomplete[0].Impact)
	assert.Equal(t, 42, result.Passes)
	assert.Equal(t, 3, result.Dropped)
	assert.Equal(t, 3, logs.FilterMessage("dropping malformed violation").Len())
}

func TestDecode_EmptyAndMissingContainers(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		result, err := Decode(json.RawMessage(raw), nil)
		require.NoError(t, err, raw)
		assert.Empty(t, result.Violations)
		assert.NotNil(t, result.Violations)
		assert.NotNil(t, result.Incomplete)
		assert.Zero(t, result.Passes)
	}
}

func TestDecode_NotAnObject(t *testing.T) {
	_, err := Decode(json.RawMessage(`[1, 2]`), nil)
	assert.Error(t, err)
}

func TestDecode_PassesAsArray(t *testing.T) {
	result, err := Decode(json.RawMessage(`{"passes": [{"id": "a"}, {"id": "b"}]}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Passes)
}

func TestSuggestions_Dedupe(t *testing.T) {
	violations := []model.WcagViolation{
		{Nodes: []model.ViolationNode{{Fixes: []string{"add alt", "add label"}}}},
		{Nodes: []model.ViolationNode{{Fixes: []string{"add label", "raise contrast"}}, {}}},
	}
	assert.Equal(t, []string{"add alt", "add label", "raise contrast"}, Suggestions(violations))
	assert.Empty(t, Suggestions(nil))
}
