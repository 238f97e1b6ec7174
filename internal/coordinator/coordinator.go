// Package coordinator supersedes prior output jobs and launches the speech and
// text outputs for each new reply.
package coordinator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/speakstream/internal/interrupt"
	"github.com/ent0n29/speakstream/internal/observability"
	"github.com/ent0n29/speakstream/internal/stream"
)

// Speaker is the speech side of the output pipeline.
type Speaker interface {
	Enqueue(text string) int
	Stop()
}

type Options struct {
	WordDelay time.Duration
	Logger    *zap.SugaredLogger
	Metrics   *observability.Metrics
}

// Coordinator guarantees at most one live speech job and one live stream job.
type Coordinator struct {
	speech    Speaker
	streamSig *interrupt.Signal
	delay     time.Duration
	logger    *zap.SugaredLogger
	metrics   *observability.Metrics

	mu     sync.Mutex
	active bool
}

func New(speech Speaker, streamSig *interrupt.Signal, opts Options) *Coordinator {
	if streamSig == nil {
		streamSig = interrupt.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.WordDelay < 0 {
		opts.WordDelay = 0
	}
	return &Coordinator{
		speech:    speech,
		streamSig: streamSig,
		delay:     opts.WordDelay,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Respond supersedes the previous reply and starts output for reply. Speech
// plays in the background; the returned emitter must be drained by the caller.
// A non-empty prefix line is emitted before the reply words.
func (c *Coordinator) Respond(reply, prefix string) *stream.Emitter {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopStreamLocked()
	// Enqueue stops the previous speech job before pushing the new chunks.
	chunks := c.speech.Enqueue(reply)

	started := time.Now()
	first := true
	e := stream.New(reply, c.delay, c.streamSig.Token(),
		stream.WithPrefix(prefix),
		stream.WithOnEmit(func() {
			if first {
				first = false
				c.metrics.ObserveFirstToken(time.Since(started))
			}
			c.metrics.ObserveStreamToken()
		}),
	)
	c.active = true
	c.logger.Debugw("reply dispatched", "speech_chunks", chunks, "reply_chars", len(reply))
	return e
}

// StopAll halts speech and supersedes the current stream without starting
// new output.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.speech.Stop()
	c.stopStreamLocked()
	c.logger.Infow("universal stop")
}

// StreamSignal exposes the stream cancellation signal.
func (c *Coordinator) StreamSignal() *interrupt.Signal {
	return c.streamSig
}

func (c *Coordinator) stopStreamLocked() {
	c.streamSig.Set()
	c.streamSig.Clear()
	if c.active {
		c.active = false
		c.metrics.ObservePreemption("stream")
	}
}
