package narrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/narrascope/internal/util"
)

// stubNarrator plays back a fixed script, or an endless sequence of unique
// phrases when endless is set
type stubNarrator struct {
	mu sync.Mutex

	script  []string
	endless bool

	startErr   error
	readErr    error
	nextErr    error
	nextFailAt int // fail Next on this call (1-based), 0 for never
	stopErr    error

	pos       int
	starts    int
	stops     int
	nextCalls int
}

func (s *stubNarrator) Start(ctx context.Context, cfg StartConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.pos = 0
	return s.startErr
}

func (s *stubNarrator) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCalls++
	if s.nextErr != nil && s.nextCalls == s.nextFailAt {
		return s.nextErr
	}
	if s.endless || s.pos < len(s.script)-1 {
		s.pos++
	}
	return nil
}

func (s *stubNarrator) LastSpokenPhrase(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return "", s.readErr
	}
	if s.endless {
		return fmt.Sprintf("phrase %d", s.pos), nil
	}
	return s.script[s.pos], nil
}

func (s *stubNarrator) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.stopErr
}

func stubHandle(n Narrator) *util.Lazy[Narrator] {
	return util.Ready(n)
}
