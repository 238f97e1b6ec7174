package listen

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/speakstream/internal/brain"
)

// Translator converts recognized text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// PassthroughTranslator returns text unchanged.
type PassthroughTranslator struct{}

func (PassthroughTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

// LLMTranslator asks the chat model for a translation.
type LLMTranslator struct {
	adapter brain.Adapter
}

func NewLLMTranslator(adapter brain.Adapter) *LLMTranslator {
	return &LLMTranslator{adapter: adapter}
}

func (t *LLMTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if target == "" {
		target = "en"
	}
	out, err := brain.Complete(ctx, t.adapter, brain.MessageRequest{
		Instructions: fmt.Sprintf("Translate the user's message into the language with code %q. Reply with the translation only.", target),
		InputText:    text,
	})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if out == "" {
		return text, nil
	}
	return out, nil
}
