package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(uiClients, uiEvents) }

var (
	uiClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ui_bridge_clients",
		Help: "Connected UI websocket clients.",
	})
	uiEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ui_bridge_events_total",
			Help: "Inbound UI events by id and outcome.",
		},
		[]string{"event", "result"},
	)
)

func AddUIClients(delta int) { uiClients.Add(float64(delta)) }

func IncUIEvent(event string, err error) {
	uiEvents.WithLabelValues(norm(event), outcome(err)).Inc()
}
