package listen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ent0n29/speakstream/internal/brain"
)

func TestGateCancelInterruptsWindow(t *testing.T) {
	var g Gate
	ctx, done := g.Begin(context.Background())
	defer done()

	if !g.Listening() {
		t.Fatalf("Listening() = false inside a window")
	}
	g.Cancel()
	if ctx.Err() == nil {
		t.Fatalf("window ctx not cancelled by Cancel()")
	}
	if !errors.Is(context.Cause(ctx), ErrCancelled) {
		t.Fatalf("Cause = %v, want ErrCancelled", context.Cause(ctx))
	}
	if g.Listening() {
		t.Fatalf("Listening() = true after Cancel()")
	}
	g.Cancel()
}

func TestGateBeginSupersedesPreviousWindow(t *testing.T) {
	var g Gate
	first, doneFirst := g.Begin(context.Background())
	second, doneSecond := g.Begin(context.Background())

	if first.Err() == nil {
		t.Fatalf("first window still open after second Begin")
	}
	doneFirst()
	if !g.Listening() {
		t.Fatalf("finishing the superseded window closed the new one")
	}
	if second.Err() != nil {
		t.Fatalf("second window cancelled unexpectedly")
	}
	doneSecond()
	if g.Listening() {
		t.Fatalf("Listening() = true after all windows finished")
	}
}

func TestMockRecognizer(t *testing.T) {
	got, err := MockRecognizer{}.Recognize(context.Background(), strings.NewReader("  namaste duniya "), "hi-IN")
	if err != nil || got != "namaste duniya" {
		t.Fatalf("Recognize() = %q, %v, want %q", got, err, "namaste duniya")
	}
	if _, err := (MockRecognizer{}).Recognize(context.Background(), strings.NewReader(" "), "hi-IN"); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Recognize(blank) error = %v, want ErrNoSpeech", err)
	}
}

func TestExecRecognizerReadsTranscript(t *testing.T) {
	r, err := NewExecRecognizer(`sh -c "printf '%s: ' {language}; cat {file}"`)
	if err != nil {
		t.Fatalf("NewExecRecognizer() error = %v", err)
	}
	got, err := r.Recognize(context.Background(), strings.NewReader("hello"), "hi-IN")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "hi-IN: hello" {
		t.Fatalf("Recognize() = %q, want %q", got, "hi-IN: hello")
	}
}

func TestExecRecognizerEmptyAudio(t *testing.T) {
	r, err := NewExecRecognizer("cat {file}")
	if err != nil {
		t.Fatalf("NewExecRecognizer() error = %v", err)
	}
	if _, err := r.Recognize(context.Background(), strings.NewReader(""), "en-US"); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Recognize() error = %v, want ErrNoSpeech", err)
	}
}

type recordingAdapter struct {
	req brain.MessageRequest
}

func (a *recordingAdapter) StreamResponse(_ context.Context, req brain.MessageRequest, _ brain.DeltaHandler) (brain.MessageResponse, error) {
	a.req = req
	return brain.MessageResponse{Text: " Hello world "}, nil
}

func TestLLMTranslator(t *testing.T) {
	a := &recordingAdapter{}
	got, err := NewLLMTranslator(a).Translate(context.Background(), "namaste duniya", "en")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("Translate() = %q, want %q", got, "Hello world")
	}
	if a.req.InputText != "namaste duniya" || !strings.Contains(a.req.Instructions, `"en"`) {
		t.Fatalf("request = %+v", a.req)
	}
}

func TestPassthroughTranslator(t *testing.T) {
	got, err := PassthroughTranslator{}.Translate(context.Background(), "hola", "en")
	if err != nil || got != "hola" {
		t.Fatalf("Translate() = %q, %v", got, err)
	}
}
