// Package assistant answers text and voice queries and hands every reply to
// the output coordinator.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/speakstream/internal/brain"
	"github.com/ent0n29/speakstream/internal/history"
	"github.com/ent0n29/speakstream/internal/listen"
	"github.com/ent0n29/speakstream/internal/observability"
	"github.com/ent0n29/speakstream/internal/reliability"
	"github.com/ent0n29/speakstream/internal/stream"
)

// ErrEmptyQuery is returned for blank text input.
var ErrEmptyQuery = errors.New("empty message")

const (
	SourceChat  = "chat"
	SourceVoice = "voice"
)

// Responder is the output side: it supersedes prior output and starts
// speech and text for a reply.
type Responder interface {
	Respond(reply, prefix string) *stream.Emitter
	StopAll()
}

// Replier generates reply text for a request.
type Replier interface {
	Reply(ctx context.Context, req brain.MessageRequest) (string, brain.Route, error)
}

type Config struct {
	Username      string
	AssistantName string
	ContextTurns  int
	HistoryLimit  int
	STTLanguage   string
	STTTimeout    time.Duration
	TranslateTo   string
}

type Service struct {
	cfg        Config
	replier    Replier
	output     Responder
	store      history.Store
	recognizer listen.Recognizer
	translator listen.Translator
	gate       *listen.Gate
	logger     *zap.SugaredLogger
	metrics    *observability.Metrics
}

type Deps struct {
	Replier    Replier
	Output     Responder
	Store      history.Store
	Recognizer listen.Recognizer
	Translator listen.Translator
	Logger     *zap.SugaredLogger
	Metrics    *observability.Metrics
}

func NewService(cfg Config, deps Deps) *Service {
	if cfg.Username == "" {
		cfg.Username = "User"
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = "SmartAssistant"
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 6
	}
	if cfg.STTTimeout <= 0 {
		cfg.STTTimeout = 10 * time.Second
	}
	if cfg.STTLanguage == "" {
		cfg.STTLanguage = "hi-IN"
	}
	if cfg.TranslateTo == "" {
		cfg.TranslateTo = "en"
	}
	if deps.Store == nil {
		deps.Store = history.NewInMemoryStore()
	}
	if deps.Recognizer == nil {
		deps.Recognizer = listen.MockRecognizer{}
	}
	if deps.Translator == nil {
		deps.Translator = listen.PassthroughTranslator{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	return &Service{
		cfg:        cfg,
		replier:    deps.Replier,
		output:     deps.Output,
		store:      deps.Store,
		recognizer: deps.Recognizer,
		translator: deps.Translator,
		gate:       &listen.Gate{},
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// Ask generates a reply for query and starts its speech and text output.
// On error nothing is started and the previous output keeps running.
func (s *Service) Ask(ctx context.Context, query, source string) (*stream.Emitter, error) {
	return s.ask(ctx, query, source, "")
}

func (s *Service) ask(ctx context.Context, query, source, prefix string) (*stream.Emitter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	turnID := uuid.NewString()
	started := time.Now()

	reply, route, err := s.replier.Reply(ctx, brain.MessageRequest{
		TurnID:        turnID,
		InputText:     query,
		Instructions:  s.instructions(),
		MemoryContext: s.memoryContext(ctx),
	})
	if err != nil {
		s.metrics.ObserveProviderError("brain", reliability.ErrorCode(err))
		s.logger.Warnw("reply generation failed", "turn_id", turnID, "route", route, "error", err)
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	s.metrics.ObserveReply(string(route), time.Since(started))
	s.record(ctx, turnID, source, query, reply)
	s.logger.Infow("reply ready", "turn_id", turnID, "route", route, "source", source, "took", time.Since(started).String())

	return s.output.Respond(reply, prefix), nil
}

type ListenStatus string

const (
	ListenOK        ListenStatus = "ok"
	ListenCancelled ListenStatus = "cancelled"
	ListenNoInput   ListenStatus = "no_input"
)

// ListenResult is the outcome of one voice query. Stream is set only when
// Status is ListenOK.
type ListenResult struct {
	Status     ListenStatus
	Transcript string
	Query      string
	Stream     *stream.Emitter
}

// Listen silences the current reply, then recognizes audio, translates it and
// answers it like Ask. Timeouts,
// a universal stop and silent audio are reported through Status, not errors.
func (s *Service) Listen(ctx context.Context, audio io.Reader, language string) (ListenResult, error) {
	if language == "" {
		language = s.cfg.STTLanguage
	}
	// The previous reply goes quiet while the user speaks.
	s.output.StopAll()
	gateCtx, done := s.gate.Begin(ctx)
	defer done()

	recCtx, cancel := context.WithTimeout(gateCtx, s.cfg.STTTimeout)
	defer cancel()

	transcript, err := s.recognizer.Recognize(recCtx, audio, language)
	if gateCtx.Err() != nil && ctx.Err() == nil {
		s.logger.Infow("voice input cancelled")
		return ListenResult{Status: ListenCancelled}, nil
	}
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			s.logger.Infow("voice input timed out", "timeout", s.cfg.STTTimeout.String())
			return ListenResult{Status: ListenCancelled}, nil
		case errors.Is(err, listen.ErrNoSpeech):
			return ListenResult{Status: ListenNoInput}, nil
		default:
			s.metrics.ObserveProviderError("stt", reliability.ErrorCode(err))
			return ListenResult{}, fmt.Errorf("recognize speech: %w", err)
		}
	}

	query, err := s.translator.Translate(ctx, transcript, s.cfg.TranslateTo)
	if err != nil {
		s.metrics.ObserveProviderError("translate", reliability.ErrorCode(err))
		return ListenResult{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return ListenResult{Status: ListenNoInput, Transcript: transcript}, nil
	}
	done()

	em, err := s.ask(ctx, query, SourceVoice, fmt.Sprintf("[You]: %s\n", query))
	if err != nil {
		return ListenResult{}, err
	}
	return ListenResult{Status: ListenOK, Transcript: transcript, Query: query, Stream: em}, nil
}

// StopAll halts speech, supersedes the text stream and abandons pending
// voice input.
func (s *Service) StopAll() {
	s.gate.Cancel()
	s.output.StopAll()
}

// History returns the logged exchanges in chronological order.
func (s *Service) History(ctx context.Context) ([]history.Exchange, error) {
	items, err := s.store.List(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if items == nil {
		items = []history.Exchange{}
	}
	return items, nil
}

func (s *Service) instructions() string {
	return fmt.Sprintf(
		"You are %s, a helpful voice assistant talking with %s. Answer in plain conversational sentences; your reply is read aloud.",
		s.cfg.AssistantName, s.cfg.Username,
	)
}

func (s *Service) memoryContext(ctx context.Context) []string {
	items, err := s.store.List(ctx, s.cfg.ContextTurns)
	if err != nil {
		s.logger.Warnw("load memory context", "error", err)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, ex := range items {
		out = append(out, ex.Role+": "+ex.Content)
	}
	return out
}

func (s *Service) record(ctx context.Context, turnID, source, query, reply string) {
	now := time.Now().UTC()
	for _, ex := range []history.Exchange{
		{ID: turnID + "-u", Role: history.RoleUser, Content: query, Source: source, CreatedAt: now},
		{ID: turnID + "-a", Role: history.RoleAssistant, Content: reply, Source: source, CreatedAt: now},
	} {
		if err := s.store.Append(ctx, ex); err != nil {
			s.logger.Warnw("record exchange", "turn_id", turnID, "role", ex.Role, "error", err)
		}
	}
}
