package metrics

import (
	"babelgram/sources/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsService struct {
	log *tracing.Logger
}

var (
	feedsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_feeds_opened_total",
			Help: "Total number of upstream feed connections opened",
		},
		[]string{"key"},
	)

	feedsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_feeds_closed_total",
			Help: "Total number of upstream feed connections torn down",
		},
		[]string{"key"},
	)

	feedsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "babelgram_feeds_live",
			Help: "Number of currently open upstream feed connections",
		},
	)

	feedListeners = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_feed_listeners_attached_total",
			Help: "Total number of listeners attached to already-open feeds",
		},
		[]string{"key"},
	)

	feedFanouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_feed_fanouts_total",
			Help: "Total number of values fanned out to feed listeners",
		},
		[]string{"key"},
	)

	classifierVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_classifier_verdicts_total",
			Help: "Total number of classification verdicts by source and verdict",
		},
		[]string{"source", "verdict"},
	)

	classifierEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_classifier_escalations_total",
			Help: "Total number of escalations to the external language detector",
		},
		[]string{"status"},
	)

	translationCacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_translation_cache_reads_total",
			Help: "Total number of translation cache reads by tier and result",
		},
		[]string{"tier", "result"},
	)

	translationsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelgram_translations_issued_total",
			Help: "Total number of external translation calls by entry point and status",
		},
		[]string{"entrypoint", "status"},
	)

	translationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "babelgram_translation_request_duration_seconds",
			Help:    "Duration of external translation provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func NewMetricsService(log *tracing.Logger) *MetricsService {
	log.I("Metrics service initialized")
	return &MetricsService{log: log}
}

func (x *MetricsService) FeedOpened(key string) {
	if x == nil {
		return
	}
	feedsOpened.WithLabelValues(key).Inc()
	feedsLive.Inc()
}

func (x *MetricsService) FeedClosed(key string) {
	if x == nil {
		return
	}
	feedsClosed.WithLabelValues(key).Inc()
	feedsLive.Dec()
}

func (x *MetricsService) FeedListenerAttached(key string) {
	if x == nil {
		return
	}
	feedListeners.WithLabelValues(key).Inc()
}

func (x *MetricsService) FeedFanout(key string, listeners int) {
	if x == nil {
		return
	}
	feedFanouts.WithLabelValues(key).Add(float64(listeners))
}

func (x *MetricsService) ClassifierVerdict(source, verdict string) {
	if x == nil {
		return
	}
	classifierVerdicts.WithLabelValues(source, verdict).Inc()
}

func (x *MetricsService) ClassifierEscalation(status string) {
	if x == nil {
		return
	}
	classifierEscalations.WithLabelValues(status).Inc()
}

func (x *MetricsService) TranslationCacheRead(tier, result string) {
	if x == nil {
		return
	}
	translationCacheReads.WithLabelValues(tier, result).Inc()
}

func (x *MetricsService) TranslationIssued(entrypoint, status string) {
	if x == nil {
		return
	}
	translationsIssued.WithLabelValues(entrypoint, status).Inc()
}

func (x *MetricsService) TranslationObserved(provider string, seconds float64) {
	if x == nil {
		return
	}
	translationDuration.WithLabelValues(provider).Observe(seconds)
}
