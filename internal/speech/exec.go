package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/ent0n29/speakstream/internal/audio"
)

// ExecSynthesizer runs an external text-to-speech command per chunk, for
// example edge-tts:
//
//	edge-tts --voice {voice} --text {text} --write-media {out}
//
// {out} is replaced by a temporary file the command must write. When the
// template has no {text} placeholder the text is written to stdin.
type ExecSynthesizer struct {
	args   []string
	voice  string
	format string
}

func NewExecSynthesizer(command, voice, format string) (*ExecSynthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("tts command empty")
	}
	hasOut := false
	for _, a := range args {
		if strings.Contains(a, "{out}") {
			hasOut = true
		}
	}
	if !hasOut {
		return nil, errors.New("tts command must contain an {out} placeholder")
	}
	if strings.TrimSpace(format) == "" {
		format = "mp3"
	}
	return &ExecSynthesizer{args: args, voice: strings.TrimSpace(voice), format: format}, nil
}

func (e *ExecSynthesizer) Name() string { return "exec" }

func (e *ExecSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	f, err := os.CreateTemp("", "speakstream-*."+e.format)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrSynthesis, err)
	}
	out := f.Name()
	_ = f.Close()
	clip := audio.NewTempClip(e.format, out)

	usesText := false
	args := make([]string, len(e.args))
	for i, a := range e.args {
		if strings.Contains(a, "{text}") {
			usesText = true
		}
		a = strings.ReplaceAll(a, "{text}", text)
		a = strings.ReplaceAll(a, "{voice}", e.voice)
		a = strings.ReplaceAll(a, "{out}", out)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if !usesText {
		cmd.Stdin = strings.NewReader(text)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = clip.Release()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s: %v: %s", ErrSynthesis, filepath.Base(args[0]), err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSynthesis, filepath.Base(args[0]), err)
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = clip.Release()
		return nil, fmt.Errorf("%w: %s produced no audio", ErrSynthesis, filepath.Base(args[0]))
	}
	return clip, nil
}
