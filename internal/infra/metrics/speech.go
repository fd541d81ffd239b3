package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(speechOps, speechOpLatency, tokenFetches, tokenIssued) }

var (
	speechOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_operations_total",
			Help: "Speech recognize/speak operations by outcome.",
		},
		[]string{"op", "result"},
	)

	speechOpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speech_operation_seconds",
			Help:    "Speech operation latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	tokenFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_token_fetches_total",
			Help: "Client-side fetches of the speech credential.",
		},
		[]string{"result"},
	)

	tokenIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_token_issued_total",
			Help: "Server-side speech token exchanges.",
		},
		[]string{"result"},
	)
)

// ObserveSpeechOp records op ("recognize"|"speak") with result ok|no_speech|busy|error.
func ObserveSpeechOp(op, result string, d time.Duration) {
	speechOps.WithLabelValues(norm(op), norm(result)).Inc()
	speechOpLatency.WithLabelValues(norm(op)).Observe(d.Seconds())
}

func IncTokenFetch(err error) {
	tokenFetches.WithLabelValues(outcome(err)).Inc()
}

func IncTokenIssued(result string) {
	tokenIssued.WithLabelValues(norm(result)).Inc()
}
