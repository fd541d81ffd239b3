package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, conversationsStored) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	conversationsStored = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_stored",
			Help: "Server-side conversations currently held, per storage driver.",
		},
		[]string{"driver"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func SetConversationsStored(driver string, n int) {
	conversationsStored.WithLabelValues(norm(driver)).Set(float64(n))
}
