package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/speakstream/internal/assistant"
	"github.com/ent0n29/speakstream/internal/history"
	"github.com/ent0n29/speakstream/internal/observability"
	"github.com/ent0n29/speakstream/internal/stream"
)

const maxAudioBytes = 32 << 20

// Assistant is the conversation surface the server exposes.
type Assistant interface {
	Ask(ctx context.Context, query, source string) (*stream.Emitter, error)
	Listen(ctx context.Context, audio io.Reader, language string) (assistant.ListenResult, error)
	StopAll()
	History(ctx context.Context) ([]history.Exchange, error)
}

type Options struct {
	AllowAnyOrigin bool
	// Providers is reported verbatim by the health endpoints.
	Providers map[string]string
	Logger    *zap.SugaredLogger
}

type Server struct {
	assistant Assistant
	metrics   *observability.Metrics
	opts      Options
	logger    *zap.SugaredLogger
	upgrader  websocket.Upgrader
	static    http.Handler
}

func New(svc Assistant, metrics *observability.Metrics, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Server{
		assistant: svc,
		metrics:   metrics,
		opts:      opts,
		logger:    opts.Logger,
		static:    newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if opts.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.opts.AllowAnyOrigin {
		r.Use(allowAnyOrigin)
	}

	r.Handle("/", s.static)
	r.Handle("/static/*", http.StripPrefix("/static/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/chat", s.handleChat)
	r.Post("/listen", s.handleListen)
	r.Post("/stop", s.handleStop)
	r.Get("/history", s.handleHistory)
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.providers(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.assistant.History(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"providers": s.providers(),
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Empty message"})
		return
	}

	em, err := s.assistant.Ask(r.Context(), req.Message, assistant.SourceChat)
	if err != nil {
		s.logger.Warnw("chat request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.streamTokens(w, r, em)
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	language := strings.TrimSpace(r.URL.Query().Get("language"))
	body := http.MaxBytesReader(w, r.Body, maxAudioBytes)
	defer body.Close()

	res, err := s.assistant.Listen(r.Context(), body, language)
	if err != nil {
		s.logger.Warnw("listen request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	switch res.Status {
	case assistant.ListenCancelled:
		respondJSON(w, http.StatusOK, statusResponse{Status: "Voice input cancelled"})
	case assistant.ListenNoInput:
		respondJSON(w, http.StatusOK, statusResponse{Status: "No voice input detected"})
	default:
		s.streamTokens(w, r, res.Stream)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.assistant.StopAll()
	respondJSON(w, http.StatusOK, statusResponse{Status: "stopped"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.assistant.History(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// streamTokens writes em as a chunked text/plain body, flushing per token.
// A client disconnect ends the stream but leaves speech running.
func (s *Server) streamTokens(w http.ResponseWriter, r *http.Request, em *stream.Emitter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for tok := range em.All(r.Context()) {
		if _, err := io.WriteString(w, tok); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) providers() map[string]string {
	if s.opts.Providers == nil {
		return map[string]string{}
	}
	return s.opts.Providers
}

type errorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
