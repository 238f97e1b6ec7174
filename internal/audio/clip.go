package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Clip is one synthesized piece of speech, held in memory or in a file.
type Clip struct {
	Format string
	Data   []byte
	Path   string

	// Temp marks Path as owned by the clip; Release deletes it.
	Temp bool
}

// NewMemoryClip wraps encoded audio bytes.
func NewMemoryClip(format string, data []byte) *Clip {
	return &Clip{Format: normalizeFormat(format), Data: data}
}

// NewTempClip wraps a temporary file that is removed on Release.
func NewTempClip(format, path string) *Clip {
	return &Clip{Format: normalizeFormat(format), Path: path, Temp: true}
}

func (c *Clip) Open() (io.ReadCloser, error) {
	if c == nil {
		return nil, errors.New("nil clip")
	}
	if c.Path != "" {
		f, err := os.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("open clip: %w", err)
		}
		return f, nil
	}
	if len(c.Data) == 0 {
		return nil, errors.New("clip has no audio")
	}
	return io.NopCloser(bytes.NewReader(c.Data)), nil
}

// Release frees the clip's temporary resources. Safe to call more than once.
func (c *Clip) Release() error {
	if c == nil || !c.Temp || c.Path == "" {
		return nil
	}
	err := os.Remove(c.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove clip: %w", err)
	}
	return nil
}

// Player plays clips one at a time.
type Player interface {
	// Play blocks until the clip finishes, ctx is cancelled, or Stop is called.
	Play(ctx context.Context, clip *Clip) error
	// Stop halts the current clip. It is a no-op when nothing is playing.
	Stop()
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}
