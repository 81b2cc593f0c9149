package api

import "github.com/prometheus/client_golang/prometheus"

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nestkv",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Bucketed histogram of processing time (s) of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 18),
		}, []string{"method", "status"})

	rejectedRequestCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nestkv",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Counter of HTTP requests rejected by the rate limiter.",
		})
)

func init() {
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(rejectedRequestCounter)
}
