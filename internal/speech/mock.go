package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/speakstream/internal/audio"
)

const mockSampleRate = 16000

// MockSynthesizer renders silence whose length follows the word count, so
// playback timing behaves like real speech without any provider.
type MockSynthesizer struct {
	PerWord time.Duration
	Latency time.Duration
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{PerWord: 60 * time.Millisecond}
}

func (m *MockSynthesizer) Name() string { return "mock" }

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	data, err := audio.SilenceWAV(time.Duration(words)*m.PerWord, mockSampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: mock: %v", ErrSynthesis, err)
	}
	return audio.NewMemoryClip("wav", data), nil
}
