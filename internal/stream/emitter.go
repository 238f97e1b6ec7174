// Package stream yields a reply word by word at a fixed cadence.
package stream

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/speakstream/internal/interrupt"
)

// DefaultDelay is the pause between successive words.
const DefaultDelay = 500 * time.Millisecond

// Emitter is a single-pass token sequence over one reply. Tokens are the
// whitespace-separated words of the reply, each followed by one space. The
// sequence ends early, without error, once its token is cancelled.
type Emitter struct {
	token  interrupt.Token
	delay  time.Duration
	onEmit func()

	// nextMu serializes Next; mu guards the fields below and is never held
	// across the inter-token delay.
	nextMu sync.Mutex

	mu      sync.Mutex
	tokens  []string
	next    int
	emitted int
	done    bool
}

type Option func(*Emitter)

// WithPrefix emits line as the first token, before the reply words.
func WithPrefix(line string) Option {
	return func(e *Emitter) {
		if line != "" {
			e.tokens = append([]string{line}, e.tokens...)
		}
	}
}

// WithOnEmit registers a hook called after every emitted token.
func WithOnEmit(fn func()) Option {
	return func(e *Emitter) { e.onEmit = fn }
}

func New(reply string, delay time.Duration, token interrupt.Token, opts ...Option) *Emitter {
	if delay < 0 {
		delay = 0
	}
	words := strings.Fields(reply)
	tokens := make([]string, len(words))
	for i, w := range words {
		tokens[i] = w + " "
	}
	e := &Emitter{token: token, delay: delay, tokens: tokens}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Next returns the next token. It waits the configured delay after every
// token except the first. ok is false once the sequence has ended.
func (e *Emitter) Next(ctx context.Context) (string, bool) {
	e.nextMu.Lock()
	defer e.nextMu.Unlock()

	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return "", false
	}
	pause := e.next > 0 && e.next < len(e.tokens) && e.delay > 0
	e.mu.Unlock()

	if pause && !e.wait(ctx) {
		e.mu.Lock()
		e.done = true
		e.mu.Unlock()
		return "", false
	}

	e.mu.Lock()
	if e.next >= len(e.tokens) || e.token.Cancelled() || ctx.Err() != nil {
		e.done = true
		e.mu.Unlock()
		return "", false
	}
	tok := e.tokens[e.next]
	e.next++
	e.emitted++
	e.mu.Unlock()

	if e.onEmit != nil {
		e.onEmit()
	}
	return tok, true
}

// All adapts the emitter to a range-over-func sequence.
func (e *Emitter) All(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			tok, ok := e.Next(ctx)
			if !ok || !yield(tok) {
				return
			}
		}
	}
}

// Emitted reports how many tokens have been produced so far.
func (e *Emitter) Emitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emitted
}

// Exhausted reports whether every token of the reply has been emitted.
func (e *Emitter) Exhausted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next >= len(e.tokens)
}

// Cancelled reports whether a newer request superseded this emitter.
func (e *Emitter) Cancelled() bool {
	return e.token.Cancelled()
}

func (e *Emitter) wait(ctx context.Context) bool {
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-e.token.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
