package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics("speakstream_test")
	m.ObserveReply("chat", 40*time.Millisecond)
	m.ObserveSpeechChunk("played")
	m.ObservePreemption("stream")

	// A second instance must not collide on registration.
	_ = NewMetrics("speakstream_test")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`speakstream_test_replies_total{route="chat"} 1`,
		`speakstream_test_speech_chunks_total{outcome="played"} 1`,
		`speakstream_test_preemptions_total{kind="stream"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}

	snap := m.SnapshotLatency()
	if len(snap.Stages) != 1 || snap.Stages[0].Stage != StageReply {
		t.Fatalf("Stages = %+v, want single %q stage", snap.Stages, StageReply)
	}
}
