package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func init() {
	register(
		chatSends,
		chatSendLatency,
		controllerTransitions,
		staleResults,
		turnsTotal,
	)
}

var (
	chatSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sends_total",
			Help: "Chat backend calls by outcome.",
		},
		[]string{"result"},
	)

	chatSendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_send_seconds",
			Help:    "Chat backend round trip latency.",
			Buckets: prometheus.DefBuckets,
		},
	)

	controllerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_transitions_total",
			Help: "Controller state transitions.",
		},
		[]string{"from", "to"},
	)

	staleResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_stale_results_total",
			Help: "Async results discarded because the session was reset while they were in flight.",
		},
		[]string{"op"},
	)

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Turns appended to the history by role and origin.",
		},
		[]string{"role", "origin"},
	)
)

func ObserveChatSend(d time.Duration, err error) {
	chatSends.WithLabelValues(outcome(err)).Inc()
	chatSendLatency.Observe(d.Seconds())
}

func IncTransition(from, to string) {
	controllerTransitions.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncStaleResult(op string) {
	staleResults.WithLabelValues(norm(op)).Inc()
}

func IncTurn(role, origin string) {
	turnsTotal.WithLabelValues(norm(role), norm(origin)).Inc()
}

// TurnCount reads the current turn counter for one role and origin.
func TurnCount(role, origin string) float64 {
	var m dto.Metric
	if err := turnsTotal.WithLabelValues(norm(role), norm(origin)).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
