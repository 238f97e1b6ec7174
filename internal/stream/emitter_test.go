package stream

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/ent0n29/speakstream/internal/interrupt"
)

func collect(e *Emitter) []string {
	var out []string
	for tok := range e.All(context.Background()) {
		out = append(out, tok)
	}
	return out
}

func TestEmitterYieldsWordsWithTrailingSpace(t *testing.T) {
	e := New("alpha  beta\ngamma", 0, interrupt.New().Token())
	want := []string{"alpha ", "beta ", "gamma "}
	if got := collect(e); !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	if got := collect(e); len(got) != 0 {
		t.Fatalf("second pass tokens = %q, want none", got)
	}
	if !e.Exhausted() {
		t.Fatalf("Exhausted() = false, want true")
	}
}

func TestEmitterEmptyReply(t *testing.T) {
	start := time.Now()
	e := New("   ", time.Second, interrupt.New().Token())
	if got := collect(e); len(got) != 0 {
		t.Fatalf("tokens = %q, want none", got)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("empty reply took %v, want immediate", elapsed)
	}
}

func TestEmitterStopsAfterCancellation(t *testing.T) {
	sig := interrupt.New()
	e := New("alpha beta gamma", 20*time.Millisecond, sig.Token())

	var got []string
	for tok := range e.All(context.Background()) {
		got = append(got, tok)
		sig.Set()
		sig.Clear()
	}
	if want := []string{"alpha "}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	if !e.Cancelled() {
		t.Fatalf("Cancelled() = false, want true")
	}
	if e.Exhausted() {
		t.Fatalf("Exhausted() = true, want false")
	}
}

func TestEmitterWakesOnCancellationDuringDelay(t *testing.T) {
	sig := interrupt.New()
	e := New("alpha beta", time.Hour, sig.Token())
	if tok, ok := e.Next(context.Background()); !ok || tok != "alpha " {
		t.Fatalf("Next() = %q, %v, want %q, true", tok, ok, "alpha ")
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		sig.Set()
	}()
	done := make(chan bool)
	go func() {
		_, ok := e.Next(context.Background())
		done <- ok
	}()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("Next() ok = true after cancellation, want false")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Next() still blocked after cancellation")
	}
}

func TestEmitterContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := New("alpha beta", 10*time.Millisecond, interrupt.New().Token())
	if _, ok := e.Next(ctx); !ok {
		t.Fatalf("Next() ok = false, want true")
	}
	cancel()
	if _, ok := e.Next(ctx); ok {
		t.Fatalf("Next() ok = true after ctx cancel, want false")
	}
}

func TestEmitterPrefixAndCadence(t *testing.T) {
	count := 0
	e := New("hi there", 15*time.Millisecond, interrupt.New().Token(),
		WithPrefix("[You]: hello\n"),
		WithOnEmit(func() { count++ }),
	)
	start := time.Now()
	got := collect(e)
	want := []string{"[You]: hello\n", "hi ", "there "}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("elapsed = %v, want at least two delays", elapsed)
	}
	if count != 3 || e.Emitted() != 3 {
		t.Fatalf("emit count = %d, Emitted() = %d, want 3", count, e.Emitted())
	}
}

func TestEmitterStateReadableDuringDelay(t *testing.T) {
	sig := interrupt.New()
	e := New("alpha beta", time.Hour, sig.Token())
	if _, ok := e.Next(context.Background()); !ok {
		t.Fatalf("Next() ok = false, want true")
	}

	waiting := make(chan bool)
	go func() {
		_, ok := e.Next(context.Background())
		waiting <- ok
	}()
	time.Sleep(20 * time.Millisecond)

	read := make(chan struct{})
	go func() {
		if got := e.Emitted(); got != 1 {
			t.Errorf("Emitted() = %d, want 1", got)
		}
		if e.Exhausted() {
			t.Errorf("Exhausted() = true, want false")
		}
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(2 * time.Second):
		t.Fatalf("Emitted() blocked behind the inter-token delay")
	}

	sig.Set()
	if ok := <-waiting; ok {
		t.Fatalf("Next() ok = true after cancellation, want false")
	}
}
