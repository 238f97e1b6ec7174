// Package speech turns reply text into audible output: it chunks replies,
// synthesizes each chunk and plays the results in order on one worker.
package speech

import (
	"context"
	"errors"

	"github.com/ent0n29/speakstream/internal/audio"
)

// ErrSynthesis wraps every collaborator failure returned by a Synthesizer.
var ErrSynthesis = errors.New("speech synthesis failed")

// Synthesizer converts one chunk of text into a playable clip. The caller owns
// the returned clip and must Release it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)
}

// Named is implemented by synthesizers that report a provider name for
// metrics and logs.
type Named interface {
	Name() string
}

func providerName(s Synthesizer) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
