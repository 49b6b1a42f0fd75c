package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session pool metrics, exported on /metrics and read by the
// monitor-connections command via Stats().
var (
	poolHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canopy",
		Subsystem: "session_pool",
		Name:      "hits_total",
		Help:      "Number of acquisitions served from the idle pool.",
	})
	poolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canopy",
		Subsystem: "session_pool",
		Name:      "misses_total",
		Help:      "Number of acquisitions that created a new session.",
	})
	poolEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canopy",
		Subsystem: "session_pool",
		Name:      "evictions_total",
		Help:      "Number of idle sessions evicted past the max idle age.",
	})
	poolDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canopy",
		Subsystem: "session_pool",
		Name:      "discards_total",
		Help:      "Number of sessions closed because the pool was full.",
	})
	poolIdleSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "canopy",
		Subsystem: "session_pool",
		Name:      "idle_sessions",
		Help:      "Current number of idle pooled sessions.",
	})
)
