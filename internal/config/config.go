// SPDX-License-Identifier: MIT

// Package config loads and validates the portald configuration with the
// precedence ENV > config file > defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AppConfig is the fully resolved runtime configuration of the daemon.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string

	ListenAddr     string
	MetricsEnabled bool
	MetricsAddr    string
	DataDir        string

	// APIToken guards the admin scope (catalog CRUD, config endpoints).
	// Empty disables admin authentication and is logged as a weak setup.
	APIToken string

	AllowedOrigins []string
	TrustedProxies string

	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int

	// TracingService enables distributed tracing when non-empty; the value
	// is used as the service name on the trace resource and spans.
	TracingService    string
	TracingExporter   string  // "http" or "grpc"
	TracingEndpoint   string  // OTLP collector endpoint, empty skips export
	TracingSampleRate float64 // head sampling rate in [0,1]

	Backend BackendConfig
	Catalog CatalogConfig
	Player  PlayerConfig
}

// BackendConfig describes the external backend-as-a-service that owns
// authentication, profiles and analytics.
type BackendConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	EventsPoll   time.Duration // long-poll interval for the auth event stream
	RequestsPerS float64       // outbound rate limit, 0 disables
}

// CatalogConfig describes the video catalog store and its cache front.
type CatalogConfig struct {
	SeedPath     string // optional JSON seed file, imported at startup
	WatchSeed    bool   // re-import the seed file when it changes
	CacheBackend string // "memory" or "redis"
	CacheTTL     time.Duration
	RedisAddr    string
	RedisPass    string
	RedisDB      int
}

// PlayerConfig describes the player session controller runtime.
type PlayerConfig struct {
	SnapshotDir string // BadgerDB directory for player session snapshots, empty disables persistence
	// VisibilityThreshold is the fraction of the main player element that must
	// be visible before a viewport re-entry is reported (0.3 in the web client).
	VisibilityThreshold float64
}

// Defaults returns the built-in configuration defaults.
func Defaults(version string) AppConfig {
	return AppConfig{
		Version:           version,
		LogLevel:          "info",
		LogService:        "portald",
		ListenAddr:        ":8080",
		MetricsEnabled:    true,
		MetricsAddr:       ":9090",
		DataDir:           "/tmp/portald",
		RateLimitEnabled:  true,
		RateLimitRPM:      600,
		RateLimitBurst:    100,
		TracingExporter:   "http",
		TracingSampleRate: 1.0,
		Backend: BackendConfig{
			Timeout:      30 * time.Second,
			EventsPoll:   5 * time.Second,
			RequestsPerS: 50,
		},
		Catalog: CatalogConfig{
			CacheBackend: "memory",
			CacheTTL:     30 * time.Second,
		},
		Player: PlayerConfig{
			VisibilityThreshold: 0.3,
		},
	}
}

// Validate checks the configuration for fatal mistakes. It is called once at
// startup so the daemon fails fast instead of limping along misconfigured.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend base URL is required (PORTALD_BACKEND_URL)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base URL %q is not a valid absolute URL", c.Backend.BaseURL)
	}
	switch c.Catalog.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown catalog cache backend %q (supported: memory, redis)", c.Catalog.CacheBackend)
	}
	if c.Catalog.CacheBackend == "redis" && strings.TrimSpace(c.Catalog.RedisAddr) == "" {
		return fmt.Errorf("catalog cache backend is redis but no redis address is configured")
	}
	if c.Player.VisibilityThreshold <= 0 || c.Player.VisibilityThreshold > 1 {
		return fmt.Errorf("player visibility threshold %v out of range (0,1]", c.Player.VisibilityThreshold)
	}
	if c.RateLimitRPM < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	switch c.TracingExporter {
	case "http", "grpc":
	default:
		return fmt.Errorf("unknown tracing exporter %q (supported: http, grpc)", c.TracingExporter)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate %v out of range [0,1]", c.TracingSampleRate)
	}
	return nil
}
