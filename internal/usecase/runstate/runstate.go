// Package runstate tracks the single active extraction run and its
// cooperative cancellation.
package runstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"comment-extractor/internal/domain/entity"
)

var ErrBusy = errors.New("an extraction is already running")

type ctxKey struct{}

// State holds the process-wide "extraction active" flag. A watchdog clears
// it once the maximum run duration elapses.
type State struct {
	active      atomic.Bool
	maxDuration time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	watchdog *time.Timer
	started  time.Time
	gen      uint64
}

func New(maxDuration time.Duration) *State {
	return &State{maxDuration: maxDuration}
}

// Start marks a run active and derives its context. The returned stop
// function must be called when the run ends.
func (s *State) Start(parent context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.CompareAndSwap(false, true) {
		return nil, nil, ErrBusy
	}

	ctx, cancel := context.WithCancel(context.WithValue(parent, ctxKey{}, s))
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.started = time.Now()
	if s.maxDuration > 0 {
		s.watchdog = time.AfterFunc(s.maxDuration, func() { s.end(gen) })
	}

	return ctx, func() { s.end(gen) }, nil
}

// Cancel clears the flag and cancels the current run context, if any.
func (s *State) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// end stops run gen only; a late stop from a finished run is ignored.
func (s *State) end(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.clearLocked()
	}
}

func (s *State) clearLocked() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active.Store(false)
}

func (s *State) Active() bool {
	return s.active.Load()
}

// Elapsed reports how long the current run has been going.
func (s *State) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return 0
	}
	return time.Since(s.started)
}

// Check reports entity.ErrCancelled once ctx is done or the run that owns
// ctx is no longer active.
func Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrCancelled, err)
	}
	if s, ok := ctx.Value(ctxKey{}).(*State); ok && !s.Active() {
		return entity.ErrCancelled
	}
	return nil
}

// Cancelled is a convenience over Check.
func Cancelled(ctx context.Context) bool {
	return Check(ctx) != nil
}
