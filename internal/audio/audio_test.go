package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 320)
	out, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if len(out) != 44+len(pcm) {
		t.Fatalf("len(out) = %d, want %d", len(out), 44+len(pcm))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" || string(out[36:40]) != "data" {
		t.Fatalf("unexpected WAV magic: %q %q %q", out[0:4], out[8:12], out[36:40])
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 16000 {
		t.Fatalf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
}

func TestTempClipRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	clip := NewTempClip(".MP3", path)
	if clip.Format != "mp3" {
		t.Fatalf("Format = %q, want %q", clip.Format, "mp3")
	}
	if err := clip.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file still present after Release(): %v", err)
	}
	if err := clip.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}
}

func TestNullPlayerWaitsClipDuration(t *testing.T) {
	data, err := SilenceWAV(120*time.Millisecond, 16000)
	if err != nil {
		t.Fatalf("SilenceWAV() error = %v", err)
	}
	p := NewNullPlayer()
	start := time.Now()
	if err := p.Play(context.Background(), NewMemoryClip("wav", data)); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("Play() returned after %v, want >= ~120ms", elapsed)
	}
}

func TestNullPlayerStopInterrupts(t *testing.T) {
	data, err := SilenceWAV(5*time.Second, 16000)
	if err != nil {
		t.Fatalf("SilenceWAV() error = %v", err)
	}
	p := NewNullPlayer()
	errCh := make(chan error, 1)
	go func() { errCh <- p.Play(context.Background(), NewMemoryClip("wav", data)) }()

	time.Sleep(50 * time.Millisecond)
	p.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Play() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Play() did not return after Stop()")
	}
}

func TestNullPlayerRejectsUnknownFormat(t *testing.T) {
	p := NewNullPlayer()
	if err := p.Play(context.Background(), NewMemoryClip("ogg", []byte("x"))); err == nil {
		t.Fatalf("Play() expected error for unsupported format")
	}
}
