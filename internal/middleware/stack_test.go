// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	h := RequestID(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatal("expected generated request id header")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-supplied")
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "client-supplied" {
		t.Fatalf("expected client request id to be honored, got %q", got)
	}
}

func TestRecovererAnswers500JSON(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/crash", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestCSRFFailClosed(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		origin         string
		referer        string
		proxyHeader    bool
		allowedOrigins []string
		wantStatus     int
	}{
		{name: "safe method passes without origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "post without origin rejected", method: http.MethodPost, wantStatus: http.StatusForbidden},
		{name: "post same-origin passes", method: http.MethodPost, origin: "http://example.com", wantStatus: http.StatusOK},
		{name: "post cross-origin rejected", method: http.MethodPost, origin: "http://evil.test", wantStatus: http.StatusForbidden},
		{name: "allowed origin passes", method: http.MethodPost, origin: "https://portal.lumeo.tv", allowedOrigins: []string{"https://portal.lumeo.tv"}, wantStatus: http.StatusOK},
		{name: "referer fallback passes", method: http.MethodPost, referer: "http://example.com/watch/v1", wantStatus: http.StatusOK},
		{name: "proxy headers break same-origin trust", method: http.MethodPost, origin: "http://example.com", proxyHeader: true, wantStatus: http.StatusForbidden},
		{name: "default https port normalized", method: http.MethodPost, origin: "https://portal.lumeo.tv:443", allowedOrigins: []string{"https://portal.lumeo.tv"}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CSRFProtection(tt.allowedOrigins)(okHandler())

			req := httptest.NewRequest(tt.method, "http://example.com/api/auth/signin", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			if tt.proxyHeader {
				req.Header.Set("X-Forwarded-Host", "spoofed.test")
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	h := CORS([]string{"https://portal.lumeo.tv"}, true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://portal.lumeo.tv")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.lumeo.tv" {
		t.Fatalf("allow-origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials header")
	}

	// Unknown origin gets no allow header.
	req = httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be echoed")
	}

	// Preflight short-circuits with 204.
	req = httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "https://portal.lumeo.tv")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders("", nil)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("Content-Security-Policy") != DefaultCSP {
		t.Fatal("missing default CSP")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}
}

func TestSecurityHeadersHSTSFromTrustedProxy(t *testing.T) {
	proxies := ParseTrustedProxies([]string{"10.0.0.0/8"})
	h := SecurityHeaders("", proxies)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS when trusted proxy reports https")
	}

	// Untrusted source cannot force HSTS via the header.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4567"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("untrusted proxy must not trigger HSTS")
	}
}

func TestRateLimitReturns429(t *testing.T) {
	h := RateLimit(2, 0)(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitBurstCapsPerSecond(t *testing.T) {
	// Generous per-minute budget, tight per-second burst: the burst cap
	// must fire on the third back-to-back request.
	h := RateLimit(600, 2)(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
		req.RemoteAddr = "198.51.100.8:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if got := last.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("Retry-After = %q, want per-second window", got)
	}
}

func TestParseTrustedProxiesSkipsInvalid(t *testing.T) {
	nets := ParseTrustedProxies([]string{"10.0.0.0/8", "garbage", "192.168.0.0/16"})
	if len(nets) != 2 {
		t.Fatalf("got %d networks, want 2", len(nets))
	}
}
