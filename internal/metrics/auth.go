// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_auth_events_total",
		Help: "Auth provider change notifications by kind",
	}, []string{"kind"}) // kind=SIGNED_IN|SIGNED_OUT|ignored

	signInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_signins_total",
		Help: "Sign-in attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	forcedSignoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_forced_signouts_total",
		Help: "Fail-closed sign-outs by reason",
	}, []string{"reason"}) // reason=role_mismatch|admin_lookup_error

	profileCreatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portald_profile_creates_total",
		Help: "Profile rows created for users missing one",
	})

	bootstrapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portald_session_bootstrap_duration_seconds",
		Help:    "Time spent resolving the initial session",
		Buckets: prometheus.DefBuckets,
	})
)

func IncAuthEvent(kind string)       { authEventsTotal.WithLabelValues(kind).Inc() }
func IncSignIn(outcome string)       { signInsTotal.WithLabelValues(outcome).Inc() }
func IncForcedSignout(reason string) { forcedSignoutsTotal.WithLabelValues(reason).Inc() }
func IncProfileCreate()              { profileCreatesTotal.Inc() }

// ObserveBootstrapDuration records how long session bootstrap took.
func ObserveBootstrapDuration(d time.Duration) { bootstrapDuration.Observe(d.Seconds()) }
