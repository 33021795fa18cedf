package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_frames_total",
		Help: "Frames received by the pipeline, by hand presence",
	}, []string{"hands"}) // hands: "none" or "present"

	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_classifications_total",
		Help: "Classifier invocations by outcome",
	}, []string{"outcome"}) // outcome: "accepted", "rejected" or "error"

	inferenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mudra_inference_latency_seconds",
		Help:    "Sign classifier latency in seconds",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_dropped_total",
		Help: "Frames or results discarded before reaching the session",
	}, []string{"reason"})

	symbolsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mudra_symbols_confirmed_total",
		Help: "Symbols appended to the sequence",
	})

	predictionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mudra_prediction_latency_seconds",
		Help:    "Word prediction latency in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	utterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_utterances_total",
		Help: "Speech requests by trigger and status",
	}, []string{"trigger", "status"})
)

// RecordFrame counts an incoming frame.
func RecordFrame(hasHands bool) {
	label := "none"
	if hasHands {
		label = "present"
	}
	framesTotal.WithLabelValues(label).Inc()
}

// RecordClassification records the outcome and latency of one classify call.
func RecordClassification(outcome string, elapsed time.Duration) {
	classificationsTotal.WithLabelValues(outcome).Inc()
	inferenceLatency.Observe(elapsed.Seconds())
}

// RecordDropped counts a discarded frame or result.
func RecordDropped(reason string) {
	droppedTotal.WithLabelValues(reason).Inc()
}

// RecordSymbol counts a confirmed symbol.
func RecordSymbol() {
	symbolsConfirmed.Inc()
}

// RecordPrediction observes one predictor call.
func RecordPrediction(elapsed time.Duration) {
	predictionLatency.Observe(elapsed.Seconds())
}

// RecordUtterance counts a speech request.
func RecordUtterance(trigger string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	utterancesTotal.WithLabelValues(trigger, status).Inc()
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
