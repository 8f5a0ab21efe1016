package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trendUpdates     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	trendScore       *prometheus.GaugeVec
	flashMarketsOpen prometheus.Gauge
	spikesDetected   prometheus.Counter
	inferenceResults *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		trendUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_trend_updates_total",
				Help: "Total number of trend score updates",
			},
			[]string{"priority", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		trendScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendpulse_trend_score",
				Help: "Last computed trend score for an item",
			},
			[]string{"item"},
		),
		flashMarketsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "trendpulse_flash_markets_open",
				Help: "Number of flash markets currently open",
			},
		),
		spikesDetected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trendpulse_velocity_spikes_total",
				Help: "Total number of velocity spikes detected",
			},
		),
		inferenceResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_inference_results_total",
				Help: "Inference outcomes by source (model or fallback)",
			},
			[]string{"source"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTrendUpdate records one completed trend update.
func (r *Recorder) RecordTrendUpdate(priority, result string) {
	r.trendUpdates.WithLabelValues(priority, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordTrendScore records the latest trend score for an item.
func (r *Recorder) RecordTrendScore(item string, score float64) {
	r.trendScore.WithLabelValues(item).Set(score)
}

// SetOpenFlashMarkets records the current number of open flash markets.
func (r *Recorder) SetOpenFlashMarkets(n int) {
	r.flashMarketsOpen.Set(float64(n))
}

// RecordSpike records a detected velocity spike.
func (r *Recorder) RecordSpike() {
	r.spikesDetected.Inc()
}

// RecordInferenceResult records whether a score came from the model or fallback.
func (r *Recorder) RecordInferenceResult(source string) {
	r.inferenceResults.WithLabelValues(source).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
