package interrupt

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignalSetClear(t *testing.T) {
	s := New()
	if s.IsSet() {
		t.Fatalf("IsSet() = true on a fresh signal")
	}
	s.Set()
	if !s.IsSet() {
		t.Fatalf("IsSet() = false after Set()")
	}
	s.Clear()
	if s.IsSet() {
		t.Fatalf("IsSet() = true after Clear()")
	}
}

func TestTokenSurvivesImmediateClear(t *testing.T) {
	s := New()
	old := s.Token()

	s.Set()
	s.Clear()

	if !old.Cancelled() {
		t.Fatalf("old token Cancelled() = false after Set/Clear, want true")
	}
	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatalf("old token Done() not closed after Set()")
	}

	fresh := s.Token()
	if fresh.Cancelled() {
		t.Fatalf("fresh token Cancelled() = true, want false")
	}
	select {
	case <-fresh.Done():
		t.Fatalf("fresh token Done() closed without a Set()")
	default:
	}
}

func TestTokenTakenWhileSetIsCancelled(t *testing.T) {
	s := New()
	s.Set()
	tok := s.Token()
	if !tok.Cancelled() {
		t.Fatalf("token taken while set: Cancelled() = false, want true")
	}
}

func TestZeroTokenNeverCancels(t *testing.T) {
	var tok Token
	if tok.Cancelled() {
		t.Fatalf("zero token Cancelled() = true")
	}
	if tok.Done() != nil {
		t.Fatalf("zero token Done() should be nil")
	}
}

func TestTokenContextCancelledBySet(t *testing.T) {
	s := New()
	tok := s.Token()
	ctx, cancel := tok.Context(context.Background())
	defer cancel()

	s.Set()
	s.Clear()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("context not cancelled after Set()")
	}
	if !errors.Is(context.Cause(ctx), ErrSuperseded) {
		t.Fatalf("context cause = %v, want ErrSuperseded", context.Cause(ctx))
	}
}
