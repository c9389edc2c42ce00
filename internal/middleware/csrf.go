// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// CSRFProtection validates Origin/Referer on state-changing requests.
// Fail-closed policy:
//  1. Safe methods (GET, HEAD, OPTIONS) pass.
//  2. Unsafe methods require a valid Origin or Referer.
//  3. Without configured origins only strict same-origin (no proxy headers)
//     is trusted.
func CSRFProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	var originsMap map[string]bool
	if len(allowedOrigins) > 0 {
		originsMap = make(map[string]bool)
		for _, origin := range allowedOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				originsMap["*"] = true
				continue
			}
			if normalized, valid := normalizeOrigin(trimmed); valid {
				originsMap[normalized] = true
			}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			requestOrigin := getRequestOrigin(r)
			if requestOrigin == "" {
				writeCSRFError(w, "missing origin or referer header")
				return
			}
			if !isOriginAllowed(requestOrigin, originsMap, r) {
				writeCSRFError(w, "origin not trusted")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeCSRFError(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  "csrf_forbidden",
		"detail": detail,
	})
}

func getRequestOrigin(r *http.Request) string {
	if normalized, valid := normalizeOrigin(r.Header.Get("Origin")); valid {
		return normalized
	}

	referer := r.Header.Get("Referer")
	if referer == "" {
		return ""
	}
	refererURL, err := url.Parse(referer)
	if err != nil || refererURL.Scheme == "" || refererURL.Host == "" {
		return ""
	}
	normalized, valid := normalizeOrigin(refererURL.Scheme + "://" + refererURL.Host)
	if !valid {
		return ""
	}
	return normalized
}

func isOriginAllowed(requestOrigin string, allowed map[string]bool, r *http.Request) bool {
	if allowed != nil && (allowed["*"] || allowed[requestOrigin]) {
		return true
	}

	// Same-origin is only trusted when no proxy headers are present;
	// trusting them blindly without a trust boundary is a security bug.
	if hasProxyHeaders(r) {
		return false
	}
	return requestOrigin == strictSameOrigin(r)
}

func hasProxyHeaders(r *http.Request) bool {
	for _, h := range []string{
		"Forwarded",
		"X-Forwarded-For",
		"X-Forwarded-Host",
		"X-Forwarded-Proto",
		"X-Forwarded-Server",
	} {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}

func strictSameOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if r.Host == "" {
		return ""
	}
	origin, valid := normalizeOrigin(scheme + "://" + r.Host)
	if !valid {
		return ""
	}
	return origin
}

func normalizeOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()

	// Default ports are normalized away.
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return scheme + "://" + host + ":" + port, true
	}
	return scheme + "://" + host, true
}
