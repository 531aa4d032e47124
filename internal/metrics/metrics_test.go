package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveAnalysis(t *testing.T) {
	r := New()

	issues := []model.Issue{
		{Type: model.IssueMissingAlt},
		{Type: model.IssueMissingAlt},
		{Type: model.IssueMissingMain},
	}
	r.ObserveAnalysis(model.NarratorDirectScan, model.FallbackEmpty, 12, issues)
	r.ObserveAnalysis(model.NarratorTraversal, model.FallbackNone, 40, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("direct_scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("traversal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("empty_traversal")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.fallbacks), "no series for FallbackNone")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.issues.WithLabelValues("missing_alt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.issues.WithLabelValues("missing_main")))
}

func TestRecorder_ObserveWCAG(t *testing.T) {
	r := New()

	r.ObserveWCAG(&model.WCAGResult{Violations: []model.WcagViolation{
		{ID: "image-alt", Impact: model.ImpactCritical},
		{ID: "color-contrast", Impact: model.ImpactSerious},
		{ID: "label", Impact: model.ImpactCritical},
	}})
	r.ObserveWCAG(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.violations.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.violations.WithLabelValues("serious")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.engineErrors))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveAnalysis(model.NarratorTraversal, model.FallbackNone, 1, nil)
		r.ObserveSuperseded()
		r.ObserveWCAG(nil)
	})
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveSuperseded()

	path := filepath.Join(t.TempDir(), "narrascope.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "narrascope_superseded_total 1"))

	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
