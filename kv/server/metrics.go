package server

import "github.com/prometheus/client_golang/prometheus"

var (
	txnCommandCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nestkv",
			Subsystem: "txn",
			Name:      "command_total",
			Help:      "Counter of key/value and transaction commands.",
		}, []string{"type", "result"})

	txnDepthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nestkv",
			Subsystem: "txn",
			Name:      "depth",
			Help:      "Number of open nested transactions.",
		})

	txnCommitFoldKeys = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nestkv",
			Subsystem: "txn",
			Name:      "commit_fold_keys",
			Help:      "Bucketed histogram of keys folded into the layer beneath by one commit.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		})

	storageKeysGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nestkv",
			Subsystem: "storage",
			Name:      "keys",
			Help:      "Number of keys in the committed store.",
		})
)

func init() {
	prometheus.MustRegister(txnCommandCounter)
	prometheus.MustRegister(txnDepthGauge)
	prometheus.MustRegister(txnCommitFoldKeys)
	prometheus.MustRegister(storageKeysGauge)
}
