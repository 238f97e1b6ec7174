package speech

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ent0n29/speakstream/internal/audio"
)

// FailoverSynthesizer prefers the primary backend and switches to the fallback
// when the primary fails. Once the fallback succeeds it stays active until it
// fails; then the primary is retried.
type FailoverSynthesizer struct {
	primary  Synthesizer
	fallback Synthesizer

	fallbackActive atomic.Bool
}

func NewFailoverSynthesizer(primary, fallback Synthesizer) *FailoverSynthesizer {
	return &FailoverSynthesizer{primary: primary, fallback: fallback}
}

func (f *FailoverSynthesizer) Name() string {
	if f.fallbackActive.Load() {
		return providerName(f.fallback)
	}
	return providerName(f.primary)
}

func (f *FailoverSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if f.fallbackActive.Load() {
		clip, fbErr := f.fallback.Synthesize(ctx, text)
		if fbErr == nil || ctx.Err() != nil {
			return clip, fbErr
		}
		// Fallback failed after being active; try primary again.
		clip, prErr := f.primary.Synthesize(ctx, text)
		if prErr == nil {
			f.fallbackActive.Store(false)
			return clip, nil
		}
		return nil, fmt.Errorf("tts fallback failed: %v; tts primary failed: %w", fbErr, prErr)
	}

	clip, prErr := f.primary.Synthesize(ctx, text)
	if prErr == nil || ctx.Err() != nil {
		return clip, prErr
	}
	clip, fbErr := f.fallback.Synthesize(ctx, text)
	if fbErr != nil {
		return nil, fmt.Errorf("tts primary failed: %v; tts fallback failed: %w", prErr, fbErr)
	}
	f.fallbackActive.Store(true)
	return clip, nil
}
