package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the capture pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ChunksRead      prometheus.Counter
	DeviceOverflows prometheus.Counter

	PhrasesStarted   prometheus.Counter
	PhrasesEmitted   prometheus.Counter
	PhrasesDiscarded prometheus.Counter
	UtteranceSeconds prometheus.Histogram
	QueueDepth       prometheus.Gauge

	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	HandlerFailures prometheus.Counter

	SettingsRequests *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ChunksRead: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_audio_chunks_read_total",
			Help: "Total number of audio chunks read from the input device",
		}),
		DeviceOverflows: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_audio_overflows_total",
			Help: "Total number of device overflows replaced by silence",
		}),
		PhrasesStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_phrases_started_total",
			Help: "Total number of phrases whose capture started",
		}),
		PhrasesEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_phrases_emitted_total",
			Help: "Total number of complete utterances emitted by the segmenter",
		}),
		PhrasesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_phrases_discarded_total",
			Help: "Total number of in-flight phrases discarded on stop",
		}),
		UtteranceSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_utterance_duration_seconds",
			Help:    "Duration of emitted utterances including pre-roll",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "assistant_transcription_queue_depth",
			Help: "Utterances waiting for transcription",
		}),
		TranscriptionRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_transcription_requests_total",
			Help: "Total number of transcription requests",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
		HandlerFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "assistant_intent_handler_failures_total",
			Help: "Total number of recognized phrases the intent handler failed on",
		}),
		SettingsRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_settings_requests_total",
			Help: "Total number of settings API requests",
		}, []string{"method", "status_code"}),
	}
}

func (m *Metrics) RecordChunk(overflow bool) {
	if m == nil {
		return
	}
	m.ChunksRead.Inc()
	if overflow {
		m.DeviceOverflows.Inc()
	}
}

func (m *Metrics) RecordPhraseStarted() {
	if m == nil {
		return
	}
	m.PhrasesStarted.Inc()
}

func (m *Metrics) RecordPhraseEmitted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.PhrasesEmitted.Inc()
	m.UtteranceSeconds.Observe(durationSeconds)
}

func (m *Metrics) RecordPhraseDiscarded() {
	if m == nil {
		return
	}
	m.PhrasesDiscarded.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// RecordTranscription records one transcription attempt and its outcome.
func (m *Metrics) RecordTranscription(durationSeconds float64, failed bool) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
	if failed {
		m.TranscriptionFailures.Inc()
	}
}

func (m *Metrics) RecordHandlerFailure() {
	if m == nil {
		return
	}
	m.HandlerFailures.Inc()
}

func (m *Metrics) RecordSettingsRequest(method, statusCode string) {
	if m == nil {
		return
	}
	m.SettingsRequests.WithLabelValues(method, statusCode).Inc()
}
