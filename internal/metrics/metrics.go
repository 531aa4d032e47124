// Package metrics counts analyses for Prometheus. Batch runs can dump the
// registry to a node_exporter textfile.
package metrics

import (
	"fmt"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the narrascope collectors on a private registry
type Recorder struct {
	registry *prometheus.Registry

	analyses      *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	superseded    prometheus.Counter
	issues        *prometheus.CounterVec
	violations    *prometheus.CounterVec
	announcements prometheus.Histogram
	engineErrors  prometheus.Counter
}

// New creates a recorder and registers its collectors
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "narrascope",
			Name:      "analyses_total",
			Help:      "Completed analyses by narrator kind.",
		}, []string{"narrator"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "narrascope",
			Name:      "fallbacks_total",
			Help:      "Direct-scan fallbacks by reason.",
		}, []string{"reason"}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "narrascope",
			Name:      "superseded_total",
			Help:      "Analyses cancelled by a newer request.",
		}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "narrascope",
			Name:      "issues_total",
			Help:      "Reported issues by type.",
		}, []string{"type"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "narrascope",
			Name:      "wcag_violations_total",
			Help:      "Rule engine violations by impact.",
		}, []string{"impact"}),
		announcements: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "narrascope",
			Name:      "announcements_per_analysis",
			Help:      "Announcement records produced per analysis.",
			Buckets:   []float64{0, 10, 25, 50, 100, 250, 500},
		}),
		engineErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "narrascope",
			Name:      "wcag_engine_errors_total",
			Help:      "Rule engine runs that failed.",
		}),
	}

	r.registry.MustRegister(
		r.analyses,
		r.fallbacks,
		r.superseded,
		r.issues,
		r.violations,
		r.announcements,
		r.engineErrors,
	)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveAnalysis records one finished analysis
func (r *Recorder) ObserveAnalysis(narrator model.NarratorKind, reason model.FallbackReason, announcements int, issues []model.Issue) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(string(narrator)).Inc()
	if reason != model.FallbackNone {
		r.fallbacks.WithLabelValues(string(reason)).Inc()
	}
	r.announcements.Observe(float64(announcements))
	for _, issue := range issues {
		r.issues.WithLabelValues(string(issue.Type)).Inc()
	}
}

// ObserveSuperseded records an analysis abandoned for a newer one
func (r *Recorder) ObserveSuperseded() {
	if r == nil {
		return
	}
	r.superseded.Inc()
}

// ObserveWCAG records rule engine output, or a failed run when result is nil
func (r *Recorder) ObserveWCAG(result *model.WCAGResult) {
	if r == nil {
		return
	}
	if result == nil {
		r.engineErrors.Inc()
		return
	}
	for _, v := range result.Violations {
		r.violations.WithLabelValues(string(v.Impact)).Inc()
	}
}

// WriteTextfile writes the registry in text exposition format to path
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
