package brain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewAdapterAutoFallsBackToMockWithoutCredentials(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	resp, err := a.StreamResponse(context.Background(), MessageRequest{
		InputText: "hello",
	}, nil)
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("adapter = %T, want *MockAdapter", a)
	}
	if !strings.Contains(resp.Text, "You asked about hello.") {
		t.Fatalf("unexpected response text: %q", resp.Text)
	}
}

func TestNewAdapterRejectsUnknownMode(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "carrier-pigeon"}); err == nil {
		t.Fatalf("NewAdapter() error = nil, want unsupported mode error")
	}
	if _, err := NewAdapter(Config{Mode: "openai"}); err == nil {
		t.Fatalf("NewAdapter(openai) error = nil, want missing key error")
	}
}

func TestNewAdapterAutoPrefersOpenAIWithHTTPFallback(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "auto", OpenAIKey: "sk-test", HTTPURL: "http://127.0.0.1:1/chat"})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	fb, ok := a.(*FallbackAdapter)
	if !ok {
		t.Fatalf("adapter = %T, want *FallbackAdapter", a)
	}
	if _, ok := fb.primary.(*OpenAIAdapter); !ok {
		t.Fatalf("primary = %T, want *OpenAIAdapter", fb.primary)
	}
}

func TestMockAdapterChatReply(t *testing.T) {
	var deltas []string
	resp, err := NewMockAdapter().StreamResponse(context.Background(), MessageRequest{
		InputText:     "what did I say?",
		MemoryContext: []string{"user: I like tea", "assistant: Noted."},
	}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if !strings.HasPrefix(resp.Text, "You asked about what did I say.") {
		t.Fatalf("resp.Text = %q", resp.Text)
	}
	if strings.Contains(resp.Text, "I like tea") || strings.Contains(resp.Text, "assistant:") {
		t.Fatalf("resp.Text = %q, must not echo history lines", resp.Text)
	}
	if !strings.Contains(resp.Text, "2 earlier messages") {
		t.Fatalf("resp.Text = %q, want history count", resp.Text)
	}
	if strings.Count(resp.Text, ". ") < 2 {
		t.Fatalf("resp.Text = %q, want several sentences", resp.Text)
	}
	if len(deltas) < 2 || strings.Join(deltas, "") != resp.Text {
		t.Fatalf("deltas = %q, want word deltas joining to %q", deltas, resp.Text)
	}
}

func TestMockAdapterSearchReply(t *testing.T) {
	text, err := Complete(context.Background(), NewMockAdapter(), MessageRequest{
		InputText: SummaryPrompt("latest mars news", "1. Rover finds water"),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.HasPrefix(text, "Here is what I found about latest mars news.") {
		t.Fatalf("Complete() = %q", text)
	}
}

func TestMockAdapterHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockAdapter().StreamResponse(ctx, MessageRequest{InputText: "hi"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamResponse() error = %v, want context.Canceled", err)
	}
}

func TestFallbackAdapterUsesFallback(t *testing.T) {
	a := NewFallbackAdapter(errAdapter{}, okAdapter{text: "fallback"})
	resp, err := a.StreamResponse(context.Background(), MessageRequest{InputText: "x"}, nil)
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "fallback" {
		t.Fatalf("resp.Text = %q, want fallback", resp.Text)
	}
}

func TestFallbackAdapterDropsDeltasOfFailedPrimary(t *testing.T) {
	a := NewFallbackAdapter(partialAdapter{}, okAdapter{text: "fallback"})
	var deltas []string
	_, err := a.StreamResponse(context.Background(), MessageRequest{InputText: "x"}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if strings.Join(deltas, "") != "fallback" {
		t.Fatalf("deltas = %q, want only fallback text", deltas)
	}
}

func TestFallbackAdapterSkipsFallbackOnCanceledContext(t *testing.T) {
	fb := &countingAdapter{text: "fallback"}
	a := NewFallbackAdapter(cancelAdapter{}, fb)
	_, err := a.StreamResponse(context.Background(), MessageRequest{InputText: "x"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback should not be called, calls = %d", fb.calls)
	}
}

func TestSystemTextIncludesMemory(t *testing.T) {
	got := systemText(MessageRequest{Instructions: "Be brief.", MemoryContext: []string{"user: hi", "assistant: hello"}})
	want := "Be brief.\n\nRecent conversation:\nuser: hi\nassistant: hello"
	if got != want {
		t.Fatalf("systemText() = %q, want %q", got, want)
	}
}

type errAdapter struct{}

func (errAdapter) StreamResponse(context.Context, MessageRequest, DeltaHandler) (MessageResponse, error) {
	return MessageResponse{}, errors.New("boom")
}

type partialAdapter struct{}

func (partialAdapter) StreamResponse(_ context.Context, _ MessageRequest, onDelta DeltaHandler) (MessageResponse, error) {
	if onDelta != nil {
		_ = onDelta("half an ans")
	}
	return MessageResponse{}, errors.New("connection reset")
}

type okAdapter struct {
	text string
}

func (a okAdapter) StreamResponse(_ context.Context, _ MessageRequest, onDelta DeltaHandler) (MessageResponse, error) {
	if onDelta != nil {
		if err := onDelta(a.text); err != nil {
			return MessageResponse{}, err
		}
	}
	return MessageResponse{Text: a.text}, nil
}

type cancelAdapter struct{}

func (cancelAdapter) StreamResponse(context.Context, MessageRequest, DeltaHandler) (MessageResponse, error) {
	return MessageResponse{}, context.Canceled
}

type countingAdapter struct {
	text  string
	calls int
}

func (a *countingAdapter) StreamResponse(context.Context, MessageRequest, DeltaHandler) (MessageResponse, error) {
	a.calls++
	return MessageResponse{Text: a.text}, nil
}

// capturingAdapter records the last request it served.
type capturingAdapter struct {
	reply string
	last  MessageRequest
	calls int
}

func (a *capturingAdapter) StreamResponse(_ context.Context, req MessageRequest, _ DeltaHandler) (MessageResponse, error) {
	a.calls++
	a.last = req
	return MessageResponse{Text: a.reply}, nil
}
