// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit caps requests per client IP using sliding windows. rpm is the
// sustained requests per minute (values <= 0 fall back to a permissive
// default); burst additionally caps requests per second so a client cannot
// spend its whole minute budget at once. burst <= 0 disables the burst cap.
func RateLimit(rpm, burst int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		rpm = 600
	}

	sustained := limitPerWindow(rpm, time.Minute)
	if burst <= 0 {
		return sustained
	}
	spike := limitPerWindow(burst, time.Second)
	return func(next http.Handler) http.Handler {
		return sustained(spike(next))
	}
}

func limitPerWindow(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"too many requests, try again later"}`))
		}),
	)
}
