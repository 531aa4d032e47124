// Package narrate produces the ordered announcement stream a screen reader
// would speak for a document.
package narrate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

const (
	// MaxIterations bounds a traversal against cyclic or runaway narrators
	MaxIterations = 500

	// EndOfDocument is the phrase that terminates a traversal
	EndOfDocument = "end of document"

	// DocumentPhrase is spoken when the narrator enters the document
	DocumentPhrase = "document"

	endOfPrefix = "end of "
)

// ErrNarratorUnavailable is returned when no narrator could be initialized
var ErrNarratorUnavailable = errors.New("narrator unavailable")

// StartConfig configures a narrator session
type StartConfig struct {
	Root *html.Node
}

// Narrator is an ordered-traversal screen reader driven one step at a time.
// Every call may fail. Start and Stop must be called in strict pairs.
type Narrator interface {
	Start(ctx context.Context, cfg StartConfig) error
	Next(ctx context.Context) error
	LastSpokenPhrase(ctx context.Context) (string, error)
	Stop(ctx context.Context) error
}

// Phase names the narrator call that failed
type Phase string

const (
	PhaseInit  Phase = "init"
	PhaseStart Phase = "start"
	PhaseRead  Phase = "read"
	PhaseNext  Phase = "next"
	PhaseStop  Phase = "stop"
)

// TraversalError is a recovered narrator failure
type TraversalError struct {
	Phase     Phase
	Iteration int
	Err       error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("narrator %s failed at iteration %d: %v", e.Phase, e.Iteration, e.Err)
}

func (e *TraversalError) Unwrap() error {
	return e.Err
}
