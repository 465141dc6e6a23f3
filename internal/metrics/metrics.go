// Package metrics exposes the Prometheus instruments for the game server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoundsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braingym_rounds_started_total",
		Help: "Rounds started, by game mode.",
	}, []string{"mode"})

	RoundsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braingym_rounds_finished_total",
		Help: "Rounds finished, by game mode and completion status.",
	}, []string{"mode", "status"})

	GuessesVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braingym_guesses_verified_total",
		Help: "Free-text guesses evaluated, by game mode.",
	}, []string{"mode"})

	Clicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braingym_clicks_total",
		Help: "Image clicks hit-tested, by outcome.",
	}, []string{"outcome"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braingym_provider_errors_total",
		Help: "Puzzle provider failures, by operation.",
	}, []string{"op"})
)
