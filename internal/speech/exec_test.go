package speech

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestExecSynthesizerWritesTempClip(t *testing.T) {
	s, err := NewExecSynthesizer(`sh -c "cat > {out}"`, "en-US-JennyNeural", "txt")
	if err != nil {
		t.Fatalf("NewExecSynthesizer() error = %v", err)
	}
	clip, err := s.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	data, err := os.ReadFile(clip.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "hello there" {
		t.Fatalf("clip data = %q, want %q", data, "hello there")
	}
	if err := clip.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(clip.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("clip file still present after Release, stat err = %v", err)
	}
}

func TestExecSynthesizerFailureWrapsErrSynthesis(t *testing.T) {
	s, err := NewExecSynthesizer(`sh -c "echo boom >&2; exit 3" {out}`, "", "mp3")
	if err != nil {
		t.Fatalf("NewExecSynthesizer() error = %v", err)
	}
	if _, err := s.Synthesize(context.Background(), "hi"); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("Synthesize() error = %v, want ErrSynthesis", err)
	}
}

func TestNewExecSynthesizerRequiresOutPlaceholder(t *testing.T) {
	if _, err := NewExecSynthesizer("say {text}", "", ""); err == nil {
		t.Fatalf("NewExecSynthesizer() error = nil, want missing {out} error")
	}
}

func TestMockSynthesizerProducesWAV(t *testing.T) {
	clip, err := NewMockSynthesizer().Synthesize(context.Background(), "one two three")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if clip.Format != "wav" {
		t.Fatalf("Format = %q, want wav", clip.Format)
	}
	if len(clip.Data) <= 44 {
		t.Fatalf("len(Data) = %d, want more than a bare header", len(clip.Data))
	}
}
