package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tuneledger",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "JSON-RPC requests by method.",
	}, []string{"method"})

	rpcErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tuneledger",
		Subsystem: "rpc",
		Name:      "errors_total",
		Help:      "JSON-RPC error responses by code.",
	}, []string{"code"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tuneledger",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "JSON-RPC handler latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)
