// Package brain produces reply text: chat completions, search summaries and
// the keyword router that picks between them.
package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageRequest is the normalized request sent to a chat backend.
type MessageRequest struct {
	TurnID        string   `json:"turn_id,omitempty"`
	InputText     string   `json:"input_text"`
	Instructions  string   `json:"instructions,omitempty"`
	MemoryContext []string `json:"memory_context,omitempty"`
}

// MessageResponse is the final response after streaming deltas.
type MessageResponse struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments.
type DeltaHandler func(delta string) error

// Adapter generates assistant replies.
type Adapter interface {
	StreamResponse(ctx context.Context, req MessageRequest, onDelta DeltaHandler) (MessageResponse, error)
}

// Config controls adapter construction.
type Config struct {
	Mode             string
	OpenAIKey        string
	OpenAIModel      string
	HTTPURL          string
	HTTPStreamStrict bool
	HTTPTimeout      time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoAdapter(cfg), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIKey) == "" {
			return nil, errors.New("OPENAI_API_KEY is required for openai mode")
		}
		return NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIModel), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("brain HTTP url is required for http mode")
		}
		return newHTTPAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain adapter mode %q", cfg.Mode)
	}
}

func newAutoAdapter(cfg Config) Adapter {
	var primary Adapter
	if strings.TrimSpace(cfg.OpenAIKey) != "" {
		primary = NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIModel)
	}
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		h := newHTTPAdapter(cfg)
		if primary == nil {
			return h
		}
		return NewFallbackAdapter(primary, h)
	}
	if primary != nil {
		return primary
	}
	return NewMockAdapter()
}

func newHTTPAdapter(cfg Config) *HTTPAdapter {
	h := NewHTTPAdapterWithOptions(cfg.HTTPURL, cfg.HTTPStreamStrict)
	if cfg.HTTPTimeout > 0 {
		h.client.Timeout = cfg.HTTPTimeout
	}
	return h
}

// Complete runs a request and returns only the final text.
func Complete(ctx context.Context, a Adapter, req MessageRequest) (string, error) {
	resp, err := a.StreamResponse(ctx, req, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
