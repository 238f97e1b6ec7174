package listen

import (
	"context"
	"sync"
)

// Gate is the listening flag. Begin opens a voice-input window; Cancel closes
// the current window so the pending recognition reports ErrCancelled.
type Gate struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelCauseFunc
}

// Begin starts a new window, cancelling any previous one. The returned done
// func must be called when the window ends.
func (g *Gate) Begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel(ErrCancelled)
	}
	g.gen++
	gen := g.gen
	g.cancel = cancel
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		if g.gen == gen {
			g.cancel = nil
		}
		g.mu.Unlock()
		cancel(nil)
	}
}

// Cancel closes the current window. It is a no-op when nobody is listening.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel(ErrCancelled)
		g.cancel = nil
	}
}

// Listening reports whether a window is open.
func (g *Gate) Listening() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil
}
