package narrate

import (
	"context"
	"strings"
	"sync"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/util"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// OnAnnouncement is invoked synchronously for each new record, in index order
type OnAnnouncement func(record model.AnnouncementRecord, count int)

// Traverser drives a Narrator step by step and collects an ordered,
// de-duplicated announcement stream
type Traverser struct {
	handle *util.Lazy[Narrator]
	logger *zap.Logger

	// session serializes Start/Stop pairs on the shared narrator
	session sync.Mutex
}

// NewTraverser creates a traverser over a shared narrator handle
func NewTraverser(handle *util.Lazy[Narrator], logger *zap.Logger) *Traverser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Traverser{
		handle: handle,
		logger: logger,
	}
}

// Traverse narrates root and returns the collected records. Narrator failures
// never escape as panics: they are returned as a *TraversalError together with
// whatever was collected before the failure. A cancelled ctx returns ctx.Err().
func (t *Traverser) Traverse(ctx context.Context, root *html.Node, onEach OnAnnouncement) (records []model.AnnouncementRecord, err error) {
	records = []model.AnnouncementRecord{}

	narrator, initErr := t.handle.Get(ctx)
	if initErr != nil {
		return records, &TraversalError{Phase: PhaseInit, Err: initErr}
	}

	t.session.Lock()
	defer t.session.Unlock()

	iteration := 0
	defer func() {
		// Stop runs on every exit path, even when Start failed or ctx was cancelled
		stopErr := narrator.Stop(context.WithoutCancel(ctx))
		if stopErr == nil {
			return
		}
		if err == nil {
			err = &TraversalError{Phase: PhaseStop, Iteration: iteration, Err: stopErr}
			return
		}
		t.logger.Debug("narrator stop failed after earlier error", zap.Error(stopErr))
	}()

	if startErr := narrator.Start(ctx, StartConfig{Root: root}); startErr != nil {
		return records, &TraversalError{Phase: PhaseStart, Err: startErr}
	}

	seen := make(map[string]bool)

	for ; iteration < MaxIterations; iteration++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return records, ctxErr
		}

		spoken, readErr := narrator.LastSpokenPhrase(ctx)
		if readErr != nil {
			return records, &TraversalError{Phase: PhaseRead, Iteration: iteration, Err: readErr}
		}

		if spoken == EndOfDocument {
			return records, nil
		}

		if !isMarker(spoken) && !seen[spoken] {
			seen[spoken] = true
			record := model.AnnouncementRecord{
				Index:        len(records),
				Announcement: spoken,
				Category:     Classify(spoken),
			}
			records = append(records, record)
			if onEach != nil {
				onEach(record, len(records))
			}
		}

		if nextErr := narrator.Next(ctx); nextErr != nil {
			return records, &TraversalError{Phase: PhaseNext, Iteration: iteration, Err: nextErr}
		}
	}

	t.logger.Debug("narration iteration ceiling reached",
		zap.Int("ceiling", MaxIterations),
		zap.Int("announcements", len(records)))
	return records, nil
}

// isMarker reports whether a phrase is structural noise rather than content
func isMarker(spoken string) bool {
	return strings.TrimSpace(spoken) == "" ||
		spoken == DocumentPhrase ||
		strings.HasPrefix(spoken, endOfPrefix)
}
