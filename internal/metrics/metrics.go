// Package metrics holds the process-level Prometheus collectors of the player
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "player"

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Playback sessions currently registered",
	})

	SurfacesConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "surfaces_connected",
		Help:      "UI surfaces currently attached, by kind",
	}, []string{"kind"})

	Intents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Surface intents routed, by kind and result",
	}, []string{"kind", "result"})

	MediaErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_errors_total",
		Help:      "Media primitive errors reported by hosts, by code",
	}, []string{"code"})

	PreviewOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preview_outcomes_total",
		Help:      "Scrub preview requests, by outcome",
	}, []string{"outcome"})

	QualityReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quality_reloads_total",
		Help:      "Rendition reloads, by outcome",
	}, []string{"outcome"})

	MessagesRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_messages_rate_limited_total",
		Help:      "Inbound websocket messages dropped by the per-connection limiter",
	}, []string{"role"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	LeasesLost = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "library_leases_lost_total",
		Help:      "Library scopes found taken over while their session was still running",
	})
)
