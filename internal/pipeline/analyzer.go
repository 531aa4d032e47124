package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/narrascope/internal/detect"
	"github.com/ppiankov/narrascope/internal/dom"
	"github.com/ppiankov/narrascope/internal/metrics"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/narrate"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrSuperseded is returned by an analysis that was cancelled because a newer
// one started on the same Analyzer. Its partial results are discarded.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

// Narration modes
const (
	ModeAuto      = "auto"      // Traversal, direct scan on failure or empty result
	ModeTraversal = "traversal" // Traversal only, failures are returned
	ModeDirect    = "direct"    // Direct scan only
)

// Analysis is the result of one load-and-analyze run
type Analysis struct {
	Narrator       model.NarratorKind
	FallbackReason model.FallbackReason
	Announcements  []model.AnnouncementRecord
	Issues         []model.Issue
	// TraversalErr is the failure that triggered a fallback, if any
	TraversalErr error
	Duration     time.Duration
}

// Analyzer produces the announcement stream for a document and correlates
// it with structural findings. At most one analysis is live per Analyzer:
// starting another cancels the previous one.
type Analyzer struct {
	traverser  *narrate.Traverser
	direct     *narrate.DirectScanner
	structural *detect.StructuralScanner
	matcher    *detect.AnnouncementMatcher
	mode       string
	logger     *zap.Logger
	metrics    *metrics.Recorder

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// AnalyzerOption configures an Analyzer
type AnalyzerOption func(*Analyzer)

// WithMode sets the narration mode (auto, traversal, direct)
func WithMode(mode string) AnalyzerOption {
	return func(a *Analyzer) {
		if mode != "" {
			a.mode = mode
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records every finished analysis
func WithMetrics(m *metrics.Recorder) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// NewAnalyzer creates an analyzer on top of a shared traverser
func NewAnalyzer(traverser *narrate.Traverser, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		traverser:  traverser,
		direct:     narrate.NewDirectScanner(),
		structural: detect.NewStructuralScanner(),
		matcher:    detect.NewAnnouncementMatcher(),
		mode:       ModeAuto,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fork returns an analyzer with the same configuration and traverser but its
// own cancel-and-replace slot. Concurrent callers that must not supersede
// each other use one fork each.
func (a *Analyzer) Fork() *Analyzer {
	return &Analyzer{
		traverser:  a.traverser,
		direct:     a.direct,
		structural: a.structural,
		matcher:    a.matcher,
		mode:       a.mode,
		logger:     a.logger,
		metrics:    a.metrics,
	}
}

// Mode returns the configured narration mode
func (a *Analyzer) Mode() string {
	return a.mode
}

// isSuperseded reports whether runCtx was cancelled by a newer run
func isSuperseded(runCtx context.Context) bool {
	return errors.Is(context.Cause(runCtx), ErrSuperseded)
}

// begin registers a new run and cancels the one it replaces
func (a *Analyzer) begin(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel(ErrSuperseded)
	}
	a.seq++
	seq := a.seq
	a.cancel = cancel
	a.mu.Unlock()

	return runCtx, func() {
		a.mu.Lock()
		if a.seq == seq {
			a.cancel = nil
		}
		a.mu.Unlock()
		cancel(nil)
	}
}

// Analyze narrates root within doc and returns the reconciled issue list.
// onEach, when set, sees every announcement record as it is produced.
func (a *Analyzer) Analyze(ctx context.Context, doc *dom.Document, root *html.Node, onEach narrate.OnAnnouncement) (*Analysis, error) {
	if doc == nil {
		return nil, fmt.Errorf("analyze: nil document")
	}
	if root == nil {
		root = doc.Root()
	}

	runCtx, done := a.begin(ctx)
	defer done()

	return a.analyze(ctx, runCtx, doc, root, onEach)
}

// analyze runs one analysis inside a slot already taken with begin. ctx is
// the caller's context, runCtx the one cancelled when a newer run starts.
func (a *Analyzer) analyze(ctx, runCtx context.Context, doc *dom.Document, root *html.Node, onEach narrate.OnAnnouncement) (*Analysis, error) {
	start := time.Now()
	superseded := func() bool {
		return isSuperseded(runCtx)
	}

	emit := func(record model.AnnouncementRecord, count int) {
		if onEach == nil || runCtx.Err() != nil {
			return
		}
		onEach(record, count)
	}

	analysis := &Analysis{Narrator: model.NarratorTraversal}

	switch a.mode {
	case ModeDirect:
		analysis.Narrator = model.NarratorDirectScan
		analysis.FallbackReason = model.FallbackDisabled
		analysis.Announcements = a.scanDirect(doc, root, emit)

	case ModeTraversal, ModeAuto:
		records, err := a.traverser.Traverse(runCtx, root, emit)
		if superseded() {
			a.metrics.ObserveSuperseded()
			return nil, ErrSuperseded
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		switch {
		case err != nil && a.mode == ModeTraversal:
			return nil, fmt.Errorf("traverse: %w", err)
		case err != nil:
			a.logger.Error("traversal failed, falling back to direct scan", zap.Error(err))
			analysis.Narrator = model.NarratorDirectScan
			analysis.FallbackReason = model.FallbackError
			analysis.TraversalErr = err
			analysis.Announcements = a.scanDirect(doc, root, emit)
		case len(records) == 0 && a.mode == ModeAuto:
			a.logger.Info("traversal produced no announcements, falling back to direct scan")
			analysis.Narrator = model.NarratorDirectScan
			analysis.FallbackReason = model.FallbackEmpty
			analysis.Announcements = a.scanDirect(doc, root, emit)
		default:
			analysis.Announcements = records
		}

	default:
		return nil, fmt.Errorf("unknown narration mode %q", a.mode)
	}

	structural := a.structural.Scan(doc, root)
	fromAnnouncements := a.matcher.Match(analysis.Announcements)
	analysis.Issues = detect.Reconcile(structural, fromAnnouncements)

	if superseded() {
		a.metrics.ObserveSuperseded()
		return nil, ErrSuperseded
	}

	analysis.Duration = time.Since(start)
	a.metrics.ObserveAnalysis(analysis.Narrator, analysis.FallbackReason, len(analysis.Announcements), analysis.Issues)

	a.logger.Debug("analysis finished",
		zap.String("narrator", string(analysis.Narrator)),
		zap.String("fallback_reason", string(analysis.FallbackReason)),
		zap.Int("announcements", len(analysis.Announcements)),
		zap.Int("issues", len(analysis.Issues)),
		zap.Duration("duration", analysis.Duration))

	return analysis, nil
}

func (a *Analyzer) scanDirect(doc *dom.Document, root *html.Node, emit narrate.OnAnnouncement) []model.AnnouncementRecord {
	records := a.direct.Scan(doc, root)
	for i, r := range records {
		emit(r, i+1)
	}
	return records
}
