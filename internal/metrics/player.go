// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_player_transitions_total",
		Help: "Player state machine transitions by event and edge",
	}, []string{"event", "from", "to"})

	playerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_player_rejections_total",
		Help: "Player transitions refused by a guard",
	}, []string{"reason"}) // reason=non_live_mini|illegal_transition|precondition

	activeLiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portald_active_live_streams",
		Help: "Live streams currently active across all viewer sessions",
	})

	watchStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_watch_started_total",
		Help: "Best-effort watch-started analytics calls by outcome",
	}, []string{"outcome"}) // outcome=success|failure|skipped
)

func IncPlayerTransition(event, from, to string) {
	playerTransitionsTotal.WithLabelValues(event, from, to).Inc()
}
func IncPlayerRejection(reason string) { playerRejectionsTotal.WithLabelValues(reason).Inc() }
func IncWatchStarted(outcome string)   { watchStartedTotal.WithLabelValues(outcome).Inc() }

// AddActiveLiveStreams moves the gauge by delta (+1 on activation, -1 on release).
func AddActiveLiveStreams(delta int) { activeLiveStreams.Add(float64(delta)) }
