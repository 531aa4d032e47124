package util

import (
	"context"
	"errors"
	"sync"
)

// ErrNoInitializer is returned by Get on a handle built without an initializer
var ErrNoInitializer = errors.New("lazy handle has no initializer")

// Lazy is a process-wide handle that is initialized once on first use and can
// be reset explicitly. A failed initialization is not memoized, so the next
// Get retries.
type Lazy[T any] struct {
	mu     sync.Mutex
	init   func(ctx context.Context) (T, error)
	val    T
	loaded bool
}

// NewLazy creates a handle that runs init on first Get
func NewLazy[T any](init func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Ready creates a handle that is already initialized with val
func Ready[T any](val T) *Lazy[T] {
	return &Lazy[T]{val: val, loaded: true}
}

// Get returns the memoized value, initializing it if needed
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.val, nil
	}

	var zero T
	if l.init == nil {
		return zero, ErrNoInitializer
	}

	val, err := l.init(ctx)
	if err != nil {
		return zero, err
	}

	l.val = val
	l.loaded = true
	return val, nil
}

// Loaded reports whether the value has been initialized
func (l *Lazy[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Reset drops the memoized value so the next Get initializes again
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	l.val = zero
	l.loaded = false
}
