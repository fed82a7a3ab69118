package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(storeOpLatency) }

var storeOpLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "store_op_latency_ms",
		Help:    "Document store operation latency distribution in milliseconds.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"op", "success"}, // op: 'find', 'upsert'
)

func ObserveStoreOp(op string, success bool, d time.Duration) {
	storeOpLatency.WithLabelValues(norm(op), strconv.FormatBool(success)).Observe(float64(d.Milliseconds()))
}
