package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/speakstream/internal/audio"
	"github.com/ent0n29/speakstream/internal/interrupt"
	"github.com/ent0n29/speakstream/internal/observability"
)

const (
	outcomePlayed    = "played"
	outcomeCancelled = "cancelled"
	outcomeDiscarded = "discarded"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

type QueueOptions struct {
	MaxChunkChars int
	Logger        *zap.SugaredLogger
	Metrics       *observability.Metrics
}

// Queue plays replies chunk by chunk on a single background worker.
//
// Enqueue supersedes whatever is pending or playing. Every chunk carries a
// token of the speech signal taken when its reply was queued, so a chunk of an
// older reply is never synthesized or played once a newer reply or a Stop
// has been issued.
type Queue struct {
	synth    Synthesizer
	player   audio.Player
	signal   *interrupt.Signal
	maxChars int
	logger   *zap.SugaredLogger
	metrics  *observability.Metrics

	// opMu orders Enqueue and Stop so a stop always completes before the
	// chunks of the next reply are pushed.
	opMu sync.Mutex

	mu         sync.Mutex
	pending    []chunk
	inFlight   bool
	idle       chan struct{}
	idleClosed bool
	notify     chan struct{}

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type chunk struct {
	job        string
	seq        int
	text       string
	token      interrupt.Token
	enqueuedAt time.Time
}

func NewQueue(synth Synthesizer, player audio.Player, signal *interrupt.Signal, opts QueueOptions) *Queue {
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = DefaultMaxChunkChars
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if signal == nil {
		signal = interrupt.New()
	}
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		synth:      synth,
		player:     player,
		signal:     signal,
		maxChars:   opts.MaxChunkChars,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		idle:       idle,
		idleClosed: true,
		notify:     make(chan struct{}, 1),
	}
}

// Signal returns the speech cancellation signal shared with the worker.
func (q *Queue) Signal() *interrupt.Signal {
	return q.signal
}

// Enqueue stops the current reply, splits text into chunks and queues them
// for playback. It returns the number of chunks queued.
func (q *Queue) Enqueue(text string) int {
	q.opMu.Lock()
	defer q.opMu.Unlock()

	q.stopLocked()

	parts := SplitChunks(text, q.maxChars)
	if len(parts) == 0 {
		return 0
	}
	tok := q.signal.Token()
	job := uuid.NewString()
	now := time.Now()

	q.mu.Lock()
	for i, p := range parts {
		q.pending = append(q.pending, chunk{
			job:        job,
			seq:        i,
			text:       p,
			token:      tok,
			enqueuedAt: now,
		})
	}
	q.markBusyLocked()
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	q.logger.Debugw("speech reply queued", "job", job, "chunks", len(parts))
	return len(parts)
}

// Stop halts playback and drops every queued chunk. On return the queue is
// empty and the speech signal is cleared. Calling Stop when idle is a no-op.
func (q *Queue) Stop() {
	q.opMu.Lock()
	defer q.opMu.Unlock()
	q.stopLocked()
}

func (q *Queue) stopLocked() {
	q.signal.Set()
	q.player.Stop()

	q.mu.Lock()
	dropped := len(q.pending)
	busy := dropped > 0 || q.inFlight
	q.pending = nil
	q.updateIdleLocked()
	q.mu.Unlock()

	q.signal.Clear()

	for i := 0; i < dropped; i++ {
		q.metrics.ObserveSpeechChunk(outcomeCancelled)
	}
	if busy {
		q.metrics.ObservePreemption("speech")
		q.logger.Debugw("speech stopped", "dropped_chunks", dropped)
	}
}

// Pending reports the number of queued chunks not yet taken by the worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// WaitIdle blocks until nothing is queued or playing, or ctx is done.
func (q *Queue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the worker in the background until Close or ctx cancellation.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		q.cancel = cancel
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.Run(ctx)
		}()
	})
}

// Close stops playback and waits for the worker to exit.
func (q *Queue) Close() {
	q.Stop()
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Run is the playback worker loop. It returns when ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		c, ok := q.next(ctx)
		if !ok {
			return
		}
		outcome := q.playChunk(ctx, c)
		q.metrics.ObserveSpeechChunk(outcome)

		q.mu.Lock()
		q.inFlight = false
		q.updateIdleLocked()
		q.mu.Unlock()
	}
}

func (q *Queue) next(ctx context.Context) (chunk, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			c := q.pending[0]
			q.pending[0] = chunk{}
			q.pending = q.pending[1:]
			q.inFlight = true
			q.mu.Unlock()
			return c, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return chunk{}, false
		case <-q.notify:
		}
	}
}

func (q *Queue) playChunk(ctx context.Context, c chunk) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Errorw("speech chunk panicked", "job", c.job, "seq", c.seq, "panic", r)
			outcome = outcomeError
		}
	}()

	if c.token.Cancelled() {
		return outcomeCancelled
	}
	text := speakableText(c.text)
	if text == "" {
		return outcomeSkipped
	}

	chunkCtx, cancel := c.token.Context(ctx)
	defer cancel()

	started := time.Now()
	clip, err := q.synth.Synthesize(chunkCtx, text)
	if clip != nil {
		defer func() {
			if err := clip.Release(); err != nil {
				q.logger.Warnw("release speech clip", "job", c.job, "seq", c.seq, "error", err)
			}
		}()
	}
	if err != nil {
		if c.token.Cancelled() || ctx.Err() != nil {
			return outcomeCancelled
		}
		q.metrics.ObserveProviderError(providerName(q.synth), "synthesis")
		q.logger.Warnw("speech synthesis failed", "job", c.job, "seq", c.seq, "error", err)
		return outcomeError
	}
	q.metrics.ObserveSynthesis(time.Since(started))

	// Audio synthesized for a superseded reply is never played.
	if c.token.Cancelled() {
		return outcomeDiscarded
	}
	if c.seq == 0 {
		q.metrics.ObserveFirstAudioLatency(time.Since(c.enqueuedAt))
	}

	if err := q.player.Play(chunkCtx, clip); err != nil {
		if c.token.Cancelled() || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return outcomeCancelled
		}
		q.metrics.ObserveProviderError("player", "playback")
		q.logger.Warnw("speech playback failed", "job", c.job, "seq", c.seq, "error", err)
		return outcomeError
	}
	return outcomePlayed
}

func (q *Queue) markBusyLocked() {
	if q.idleClosed {
		q.idle = make(chan struct{})
		q.idleClosed = false
	}
}

func (q *Queue) updateIdleLocked() {
	if len(q.pending) == 0 && !q.inFlight && !q.idleClosed {
		close(q.idle)
		q.idleClosed = true
	}
}
