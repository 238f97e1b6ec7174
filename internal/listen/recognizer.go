// Package listen turns uploaded voice input into an English query.
package listen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

var (
	// ErrNoSpeech reports silent or unintelligible audio.
	ErrNoSpeech = errors.New("no speech recognized")
	// ErrCancelled reports voice input abandoned by a stop or a timeout.
	ErrCancelled = errors.New("voice input cancelled")
)

// Recognizer transcribes audio in the given BCP-47 language.
type Recognizer interface {
	Recognize(ctx context.Context, audio io.Reader, language string) (string, error)
}

// ExecRecognizer runs a speech-to-text command over a temporary WAV file.
// The command template may use {file} and {language}; it prints the
// transcript on stdout.
type ExecRecognizer struct {
	args []string
}

func NewExecRecognizer(command string) (*ExecRecognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("stt command empty")
	}
	return &ExecRecognizer{args: args}, nil
}

func (r *ExecRecognizer) Recognize(ctx context.Context, audio io.Reader, language string) (string, error) {
	f, err := os.CreateTemp("", "speakstream-input-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp audio: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	n, err := io.Copy(f, audio)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write temp audio: %w", err)
	}
	if n == 0 {
		return "", ErrNoSpeech
	}

	args := make([]string, len(r.args))
	for i, a := range r.args {
		a = strings.ReplaceAll(a, "{file}", path)
		a = strings.ReplaceAll(a, "{language}", language)
		args[i] = a
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("stt command: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// MockRecognizer treats the uploaded body as an already transcribed UTF-8
// utterance. It serves local development and tests.
type MockRecognizer struct{}

func (MockRecognizer) Recognize(ctx context.Context, audio io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(audio, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
