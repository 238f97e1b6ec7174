package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/speakstream/internal/audio"
	"github.com/ent0n29/speakstream/internal/interrupt"
)

// fakeSynth returns clips whose data is the chunk text.
type fakeSynth struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	panics  map[string]bool
	gate    map[string]chan struct{}
	started chan string
	tempDir string
	clips   []*audio.Clip
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{
		fail:    map[string]error{},
		panics:  map[string]bool{},
		gate:    map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (s *fakeSynth) Synthesize(_ context.Context, text string) (*audio.Clip, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	gate := s.gate[text]
	err := s.fail[text]
	panics := s.panics[text]
	dir := s.tempDir
	s.mu.Unlock()

	s.started <- text
	if gate != nil {
		<-gate
	}
	if panics {
		panic("synth exploded")
	}
	if err != nil {
		return nil, err
	}

	var clip *audio.Clip
	if dir != "" {
		f, ferr := os.CreateTemp(dir, "clip-*.txt")
		if ferr != nil {
			return nil, ferr
		}
		_, _ = f.WriteString(text)
		_ = f.Close()
		clip = audio.NewTempClip("txt", f.Name())
		clip.Data = []byte(text)
	} else {
		clip = audio.NewMemoryClip("txt", []byte(text))
	}
	s.mu.Lock()
	s.clips = append(s.clips, clip)
	s.mu.Unlock()
	return clip, nil
}

func (s *fakeSynth) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// fakePlayer records played clip texts. With block set, Play waits for
// cancellation instead of finishing. Texts in fail return that error.
type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	fail    map[string]error
	block   bool
	playing chan string
	stops   int
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{fail: map[string]error{}, playing: make(chan string, 16)}
}

func (p *fakePlayer) Play(ctx context.Context, clip *audio.Clip) error {
	text := string(clip.Data)
	p.playing <- text
	p.mu.Lock()
	err := p.fail[text]
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if p.block {
		<-ctx.Done()
		return context.Cause(ctx)
	}
	p.mu.Lock()
	p.played = append(p.played, text)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
}

func (p *fakePlayer) Played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestQueueSupersededReplyNeverPlays(t *testing.T) {
	synth := newFakeSynth()
	player := newFakePlayer()
	q := NewQueue(synth, player, interrupt.New(), QueueOptions{MaxChunkChars: 10})
	defer q.Close()

	q.Enqueue("Old one. Old two. Old three.")
	q.Enqueue("New one. New two.")
	q.Start(context.Background())
	waitIdle(t, q)

	want := []string{"New one.", "New two."}
	if got := player.Played(); !reflect.DeepEqual(got, want) {
		t.Fatalf("played = %q, want %q", got, want)
	}
	for _, c := range synth.Calls() {
		if c == "Old one." || c == "Old two." || c == "Old three." {
			t.Fatalf("superseded chunk %q was synthesized", c)
		}
	}
}

func TestQueueDiscardsAudioSynthesizedForSupersededReply(t *testing.T) {
	synth := newFakeSynth()
	synth.tempDir = t.TempDir()
	release := make(chan struct{})
	synth.gate["Old reply."] = release
	player := newFakePlayer()
	q := NewQueue(synth, player, interrupt.New(), QueueOptions{})
	q.Start(context.Background())
	defer q.Close()

	q.Enqueue("Old reply.")
	waitFor(t, synth.started, "Old reply.")
	q.Enqueue("New reply.")
	close(release)
	waitIdle(t, q)

	if got, want := player.Played(), []string{"New reply."}; !reflect.DeepEqual(got, want) {
		t.Fatalf("played = %q, want %q", got, want)
	}
	assertClipsReleased(t, synth, 2)
}

func TestQueueStopTwiceLeavesSignalCleared(t *testing.T) {
	signal := interrupt.New()
	player := newFakePlayer()
	q := NewQueue(newFakeSynth(), player, signal, QueueOptions{})

	q.Enqueue("Something to say.")
	q.Stop()
	if signal.IsSet() {
		t.Fatalf("IsSet() after first Stop = true, want false")
	}
	if q.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", q.Pending())
	}
	q.Stop()
	if signal.IsSet() {
		t.Fatalf("IsSet() after second Stop = true, want false")
	}
	if q.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", q.Pending())
	}
	waitIdle(t, q)
}

func TestQueueStopHaltsMultiChunkPlayback(t *testing.T) {
	synth := newFakeSynth()
	synth.tempDir = t.TempDir()
	player := newFakePlayer()
	player.block = true
	q := NewQueue(synth, player, interrupt.New(), QueueOptions{MaxChunkChars: 8})
	q.Start(context.Background())
	defer q.Close()

	if n := q.Enqueue("First. Second. Third."); n != 3 {
		t.Fatalf("Enqueue() chunks = %d, want 3", n)
	}
	waitFor(t, player.playing, "First.")

	q.Stop()
	callsAtStop := len(synth.Calls())
	waitIdle(t, q)

	if got := len(synth.Calls()); got != callsAtStop || got != 1 {
		t.Fatalf("synth calls = %d (at stop %d), want 1", got, callsAtStop)
	}
	if got := player.Played(); len(got) != 0 {
		t.Fatalf("played = %q, want none completed", got)
	}
	player.mu.Lock()
	stops := player.stops
	player.mu.Unlock()
	if stops == 0 {
		t.Fatalf("player.Stop() not called")
	}
	assertClipsReleased(t, synth, 1)
}

func TestQueueContinuesAfterPlaybackError(t *testing.T) {
	synth := newFakeSynth()
	synth.tempDir = t.TempDir()
	player := newFakePlayer()
	player.fail["Two."] = errors.New("audio device lost")
	q := NewQueue(synth, player, interrupt.New(), QueueOptions{MaxChunkChars: 5})
	q.Start(context.Background())
	defer q.Close()

	q.Enqueue("One. Two. Six.")
	waitIdle(t, q)

	if got, want := player.Played(), []string{"One.", "Six."}; !reflect.DeepEqual(got, want) {
		t.Fatalf("played = %q, want %q", got, want)
	}
	assertClipsReleased(t, synth, 3)
}

func assertClipsReleased(t *testing.T, synth *fakeSynth, want int) {
	t.Helper()
	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.clips) != want {
		t.Fatalf("clips = %d, want %d", len(synth.clips), want)
	}
	for _, clip := range synth.clips {
		if _, err := os.Stat(clip.Path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("clip %s not released, stat err = %v", filepath.Base(clip.Path), err)
		}
	}
}

func TestQueueContinuesAfterSynthesisError(t *testing.T) {
	synth := newFakeSynth()
	synth.fail["Bad."] = ErrSynthesis
	synth.panics["Boom."] = true
	player := newFakePlayer()
	q := NewQueue(synth, player, interrupt.New(), QueueOptions{MaxChunkChars: 5})
	q.Start(context.Background())
	defer q.Close()

	q.Enqueue("Good. Bad. Boom. Fine.")
	waitIdle(t, q)

	if got, want := player.Played(), []string{"Good.", "Fine."}; !reflect.DeepEqual(got, want) {
		t.Fatalf("played = %q, want %q", got, want)
	}
}

func TestQueueSkipsUnspeakableChunks(t *testing.T) {
	synth := newFakeSynth()
	player := newFakePlayer()
	q := NewQueue(synth, player, interrupt.New(), QueueOptions{MaxChunkChars: 6})
	q.Start(context.Background())
	defer q.Close()

	q.Enqueue("✨✨! Hello.")
	waitIdle(t, q)

	if got, want := synth.Calls(), []string{"Hello."}; !reflect.DeepEqual(got, want) {
		t.Fatalf("synth calls = %q, want %q", got, want)
	}
}

func TestQueueEnqueueEmptyReply(t *testing.T) {
	q := NewQueue(newFakeSynth(), newFakePlayer(), interrupt.New(), QueueOptions{})
	if n := q.Enqueue("   "); n != 0 {
		t.Fatalf("Enqueue() chunks = %d, want 0", n)
	}
	waitIdle(t, q)
}
