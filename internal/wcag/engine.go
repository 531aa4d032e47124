// Package wcag wraps the external WCAG rule-checking engine: it runs the
// engine, validates whatever comes back, and folds fix messages into
// display suggestions.
package wcag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/narrascope/internal/model"
	"go.uber.org/zap"
)

// ErrRuleEngine marks failures of the rule engine itself. There is no
// fallback for these; they are shown to the user as-is.
var ErrRuleEngine = errors.New("rule engine failed")

// Target is the document the engine checks
type Target struct {
	URL  string // Live page, preferred when set
	HTML string // Raw markup, used when URL is empty
}

// RunConfig restricts what the engine evaluates
type RunConfig struct {
	Tags        []string // Rule-set tags, e.g. wcag2aa
	ResultTypes []string // violations, incomplete, passes
	Selector    string   // Region to check, empty for the whole document
}

// Engine is the black-box rule checker: document in, raw JSON results out
type Engine interface {
	Run(ctx context.Context, target Target, cfg RunConfig) (json.RawMessage, error)
}

// EngineError wraps a rule engine failure
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("rule engine: %v", e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRuleEngine) match any EngineError
func (e *EngineError) Is(target error) bool {
	return target == ErrRuleEngine
}

// Checker runs an Engine and validates its output
type Checker struct {
	engine Engine
	logger *zap.Logger
}

// NewChecker creates a checker around engine
func NewChecker(engine Engine, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{engine: engine, logger: logger}
}

// Check runs the engine once. Engine failures come back as *EngineError;
// malformed entries are dropped, never propagated.
func (c *Checker) Check(ctx context.Context, target Target, cfg RunConfig) (*model.WCAGResult, error) {
	raw, err := c.engine.Run(ctx, target, cfg)
	if err != nil {
		return nil, &EngineError{Err: err}
	}

	result, err := Decode(raw, c.logger)
	if err != nil {
		return nil, &EngineError{Err: err}
	}

	result.Suggestions = Suggestions(result.Violations)

	c.logger.Debug("rule engine finished",
		zap.Int("violations", len(result.Violations)),
		zap.Int("incomplete", len(result.Incomplete)),
		zap.Int("passes", result.Passes),
		zap.Int("dropped", result.Dropped))

	return result, nil
}
