package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	window   *latencyWindow

	Replies          *prometheus.CounterVec
	Preemptions      *prometheus.CounterVec
	SpeechChunks     *prometheus.CounterVec
	StreamTokens     prometheus.Counter
	ProviderErrors   *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
	FirstAudio       prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		window:   newLatencyWindow(256),
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies handed to the output pipeline by route.",
		}, []string{"route"}),
		Preemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preemptions_total",
			Help:      "Output jobs superseded by a newer request or a stop, by kind.",
		}, []string{"kind"}),
		SpeechChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_chunks_total",
			Help:      "Speech chunks handled by the playback worker by outcome.",
		}, []string{"outcome"}),
		StreamTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_tokens_total",
			Help:      "Text tokens emitted to streaming consumers.",
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		SynthesisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Speech synthesis latency per chunk in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 800, 1200, 2000, 4000},
		}),
		FirstAudio: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency from enqueue to first played chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 4000},
		}),
	}
}

func (m *Metrics) ObserveReply(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(route).Inc()
	m.window.Observe(StageReply, durationMS(d))
}

func (m *Metrics) ObservePreemption(kind string) {
	if m == nil {
		return
	}
	m.Preemptions.WithLabelValues(kind).Inc()
	m.window.ObserveIndicator("preempted_" + kind)
}

func (m *Metrics) ObserveSpeechChunk(outcome string) {
	if m == nil {
		return
	}
	m.SpeechChunks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSynthesis(d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisLatency.Observe(durationMS(d))
	m.window.Observe(StageSynthesis, durationMS(d))
}

func (m *Metrics) ObserveFirstAudioLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.FirstAudio.Observe(durationMS(d))
	m.window.Observe(StageFirstAudio, durationMS(d))
}

func (m *Metrics) ObserveStreamToken() {
	if m == nil {
		return
	}
	m.StreamTokens.Inc()
}

func (m *Metrics) ObserveFirstToken(d time.Duration) {
	if m == nil {
		return
	}
	m.window.Observe(StageFirstToken, durationMS(d))
}

func (m *Metrics) ObserveProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

// SnapshotLatency returns rolling latency percentiles per pipeline stage.
func (m *Metrics) SnapshotLatency() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC(), Stages: []StageStats{}}
	}
	return m.window.Snapshot()
}

// Handler serves the metrics registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
