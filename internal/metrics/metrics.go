// Package metrics exposes the watch engine's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterwatch_observations_total",
		Help: "Watch observations processed, per resource kind.",
	}, []string{"kind"})

	EventsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterwatch_events_emitted_total",
		Help: "Change events written to the sink, per resource kind.",
	}, []string{"kind"})

	WatchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterwatch_watch_failures_total",
		Help: "Transient watch failures, per resource kind.",
	}, []string{"kind"})

	ResyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterwatch_resyncs_total",
		Help: "Full resyncs forced by expired continuation tokens, per resource kind.",
	}, []string{"kind"})

	SessionsDegraded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clusterwatch_sessions_degraded",
		Help: "Sessions currently past the consecutive-failure threshold, per resource kind.",
	}, []string{"kind"})
)
