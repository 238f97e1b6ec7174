// Package interrupt provides the shared cooperative stop flag used to supersede
// in-flight speech and text output.
package interrupt

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSuperseded is the cancellation cause for work overtaken by a newer request.
var ErrSuperseded = errors.New("superseded by a newer request")

// Signal is a resettable stop flag for one cancellable domain.
//
// Every Set advances an epoch. Jobs snapshot the epoch with Token when they
// start, so a Set followed immediately by Clear still cancels every job that
// started before the Set, while jobs started after the Clear run untouched.
type Signal struct {
	set   atomic.Bool
	epoch atomic.Uint64

	mu   sync.Mutex
	done chan struct{}
}

func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set marks the domain as cancelled and wakes every waiter of the current epoch.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch.Add(1)
	s.set.Store(true)
	close(s.done)
	s.done = make(chan struct{})
}

// Clear un-marks the domain. Tokens taken before the last Set stay cancelled.
func (s *Signal) Clear() {
	s.set.Store(false)
}

func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Token snapshots the current epoch for a job that is about to start.
func (s *Signal) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Token{sig: s, epoch: s.epoch.Load(), done: s.done}
}

// Token is a job's view of a Signal.
type Token struct {
	sig   *Signal
	epoch uint64
	done  chan struct{}
}

// Cancelled reports whether the job owning this token must stop producing output.
func (t Token) Cancelled() bool {
	if t.sig == nil {
		return false
	}
	return t.sig.IsSet() || t.sig.epoch.Load() != t.epoch
}

// Done is closed by the first Set after the token was taken.
// A zero Token never fires.
func (t Token) Done() <-chan struct{} {
	return t.done
}

// Context derives a context that is cancelled when the token's signal is Set.
// The returned cancel func must be called to release the watcher.
func (t Token) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	if t.Cancelled() {
		cancel(ErrSuperseded)
		return ctx, func() { cancel(nil) }
	}
	if t.done != nil {
		go func() {
			select {
			case <-t.done:
				cancel(ErrSuperseded)
			case <-ctx.Done():
			}
		}()
	}
	return ctx, func() { cancel(nil) }
}
