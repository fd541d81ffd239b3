package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A constant metric with labels for binary and version.",
	},
	[]string{"binary", "version"},
)

func SetBuildInfo(binary, version string) {
	buildInfo.WithLabelValues(binary, version).Set(1)
}
