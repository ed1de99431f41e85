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
	stages   *stageWindow

	Requests          *prometheus.CounterVec
	CredentialRefresh *prometheus.CounterVec
	SynthesisCalls    *prometheus.CounterVec
	SynthesisInflight prometheus.Gauge
	ProviderErrors    *prometheus.CounterVec
	BatchDuration     prometheus.Histogram
	FirstAudioLatency prometheus.Histogram
	SynthesisLatency  prometheus.Histogram
	StreamWriteErrors prometheus.Counter
	SegmentedChunks   prometheus.Histogram
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
		stages:   newStageWindow(256),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_requests_total",
			Help:      "Speech requests by delivery mode and outcome code.",
		}, []string{"mode", "code"}),
		CredentialRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_refresh_total",
			Help:      "Backend credential refresh attempts by result.",
		}, []string{"result"}),
		SynthesisCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_calls_total",
			Help:      "Backend synthesis calls by result.",
		}, []string{"result"}),
		SynthesisInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synthesis_inflight",
			Help:      "Backend synthesis calls currently in flight.",
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_ms",
			Help:      "Wall time of one concurrent synthesis batch in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 3500, 5000, 8000, 15000},
		}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency to the first streamed audio bytes in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 3500, 5000, 8000},
		}),
		SynthesisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Latency of a single backend synthesis call in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 3500, 5000},
		}),
		StreamWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_write_errors_total",
			Help:      "Streaming responses aborted because the consumer stopped accepting bytes.",
		}),
		SegmentedChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segmented_chunks",
			Help:      "Number of chunks produced per speech request.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250},
		}),
	}
}

func (m *Metrics) ObserveRequest(mode, code string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(mode, code).Inc()
}

func (m *Metrics) ObserveRequestTotal(d time.Duration) {
	if m == nil {
		return
	}
	m.stages.Observe(StageRequestTotal, ms(d))
}

// ObserveCredentialRefresh records one refresh outcome: ok, failed or stale_fallback.
func (m *Metrics) ObserveCredentialRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.CredentialRefresh.WithLabelValues(result).Inc()
	m.stages.Observe(StageCredentialRefresh, ms(d))
	if result == "stale_fallback" {
		m.stages.ObserveIndicator("stale_credential")
	}
}

func (m *Metrics) SynthesisStarted() {
	if m == nil {
		return
	}
	m.SynthesisInflight.Inc()
}

func (m *Metrics) SynthesisFinished(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisInflight.Dec()
	m.SynthesisCalls.WithLabelValues(result).Inc()
	m.SynthesisLatency.Observe(ms(d))
	m.stages.Observe(StageChunkSynthesis, ms(d))
}

func (m *Metrics) ObserveProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(ms(d))
	m.stages.Observe(StageBatch, ms(d))
}

func (m *Metrics) ObserveFirstAudioLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.FirstAudioLatency.Observe(ms(d))
	m.stages.Observe(StageFirstAudio, ms(d))
}

func (m *Metrics) ObserveStreamWriteError() {
	if m == nil {
		return
	}
	m.StreamWriteErrors.Inc()
}

func (m *Metrics) ObserveSegmentation(chunks int) {
	if m == nil {
		return
	}
	m.SegmentedChunks.Observe(float64(chunks))
}

func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return newStageWindow(1).Snapshot()
	}
	return m.stages.Snapshot()
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
