// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout of the optional config file. All fields
// are pointers so the merge step can distinguish "absent" from "zero".
type fileConfig struct {
	LogLevel   *string `yaml:"logLevel"`
	ListenAddr *string `yaml:"listenAddr"`
	Metrics    *struct {
		Enabled *bool   `yaml:"enabled"`
		Addr    *string `yaml:"addr"`
	} `yaml:"metrics"`
	DataDir        *string  `yaml:"dataDir"`
	APIToken       *string  `yaml:"apiToken"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	TrustedProxies *string  `yaml:"trustedProxies"`
	RateLimit      *struct {
		Enabled *bool `yaml:"enabled"`
		RPM     *int  `yaml:"rpm"`
		Burst   *int  `yaml:"burst"`
	} `yaml:"rateLimit"`
	Tracing *struct {
		Service    *string  `yaml:"service"`
		Exporter   *string  `yaml:"exporter"`
		Endpoint   *string  `yaml:"endpoint"`
		SampleRate *float64 `yaml:"sampleRate"`
	} `yaml:"tracing"`
	Backend *struct {
		BaseURL    *string        `yaml:"baseUrl"`
		APIKey     *string        `yaml:"apiKey"`
		Timeout    *time.Duration `yaml:"timeout"`
		EventsPoll *time.Duration `yaml:"eventsPoll"`
	} `yaml:"backend"`
	Catalog *struct {
		SeedPath     *string        `yaml:"seedPath"`
		WatchSeed    *bool          `yaml:"watchSeed"`
		CacheBackend *string        `yaml:"cacheBackend"`
		CacheTTL     *time.Duration `yaml:"cacheTtl"`
		RedisAddr    *string        `yaml:"redisAddr"`
		RedisPass    *string        `yaml:"redisPassword"`
		RedisDB      *int           `yaml:"redisDb"`
	} `yaml:"catalog"`
	Player *struct {
		SnapshotDir         *string  `yaml:"snapshotDir"`
		VisibilityThreshold *float64 `yaml:"visibilityThreshold"`
	} `yaml:"player"`
}

// Loader resolves the effective configuration.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a Loader for the given config file path (may be empty).
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load resolves the configuration with precedence ENV > file > defaults and
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults(l.version)

	if l.path != "" {
		if err := mergeFile(&cfg, l.path); err != nil {
			return AppConfig{}, err
		}
	}
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from operator flags
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.ListenAddr, fc.ListenAddr)
	if fc.Metrics != nil {
		setBool(&cfg.MetricsEnabled, fc.Metrics.Enabled)
		setString(&cfg.MetricsAddr, fc.Metrics.Addr)
	}
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.APIToken, fc.APIToken)
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	setString(&cfg.TrustedProxies, fc.TrustedProxies)
	if fc.RateLimit != nil {
		setBool(&cfg.RateLimitEnabled, fc.RateLimit.Enabled)
		setInt(&cfg.RateLimitRPM, fc.RateLimit.RPM)
		setInt(&cfg.RateLimitBurst, fc.RateLimit.Burst)
	}
	if fc.Tracing != nil {
		setString(&cfg.TracingService, fc.Tracing.Service)
		setString(&cfg.TracingExporter, fc.Tracing.Exporter)
		setString(&cfg.TracingEndpoint, fc.Tracing.Endpoint)
		setFloat(&cfg.TracingSampleRate, fc.Tracing.SampleRate)
	}
	if fc.Backend != nil {
		setString(&cfg.Backend.BaseURL, fc.Backend.BaseURL)
		setString(&cfg.Backend.APIKey, fc.Backend.APIKey)
		setDuration(&cfg.Backend.Timeout, fc.Backend.Timeout)
		setDuration(&cfg.Backend.EventsPoll, fc.Backend.EventsPoll)
	}
	if fc.Catalog != nil {
		setString(&cfg.Catalog.SeedPath, fc.Catalog.SeedPath)
		setBool(&cfg.Catalog.WatchSeed, fc.Catalog.WatchSeed)
		setString(&cfg.Catalog.CacheBackend, fc.Catalog.CacheBackend)
		setDuration(&cfg.Catalog.CacheTTL, fc.Catalog.CacheTTL)
		setString(&cfg.Catalog.RedisAddr, fc.Catalog.RedisAddr)
		setString(&cfg.Catalog.RedisPass, fc.Catalog.RedisPass)
		setInt(&cfg.Catalog.RedisDB, fc.Catalog.RedisDB)
	}
	if fc.Player != nil {
		setString(&cfg.Player.SnapshotDir, fc.Player.SnapshotDir)
		setFloat(&cfg.Player.VisibilityThreshold, fc.Player.VisibilityThreshold)
	}
	return nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = ParseString("PORTALD_LOG_LEVEL", cfg.LogLevel)
	cfg.ListenAddr = ParseString("PORTALD_LISTEN", cfg.ListenAddr)
	cfg.MetricsEnabled = ParseBool("PORTALD_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("PORTALD_METRICS_ADDR", cfg.MetricsAddr)
	cfg.DataDir = ParseString("PORTALD_DATA", cfg.DataDir)
	cfg.APIToken = ParseString("PORTALD_API_TOKEN", cfg.APIToken)
	cfg.AllowedOrigins = ParseStringSlice("PORTALD_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.TrustedProxies = ParseString("PORTALD_TRUSTED_PROXIES", cfg.TrustedProxies)
	cfg.RateLimitEnabled = ParseBool("PORTALD_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = ParseInt("PORTALD_RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.RateLimitBurst = ParseInt("PORTALD_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.TracingService = ParseString("PORTALD_TRACING_SERVICE", cfg.TracingService)
	cfg.TracingExporter = ParseString("PORTALD_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("PORTALD_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampleRate = ParseFloat("PORTALD_TRACING_SAMPLE_RATE", cfg.TracingSampleRate)

	cfg.Backend.BaseURL = ParseString("PORTALD_BACKEND_URL", cfg.Backend.BaseURL)
	cfg.Backend.APIKey = ParseString("PORTALD_BACKEND_API_KEY", cfg.Backend.APIKey)
	cfg.Backend.Timeout = ParseDuration("PORTALD_BACKEND_TIMEOUT", cfg.Backend.Timeout)
	cfg.Backend.EventsPoll = ParseDuration("PORTALD_BACKEND_EVENTS_POLL", cfg.Backend.EventsPoll)

	cfg.Catalog.SeedPath = ParseString("PORTALD_CATALOG_SEED", cfg.Catalog.SeedPath)
	cfg.Catalog.WatchSeed = ParseBool("PORTALD_CATALOG_WATCH_SEED", cfg.Catalog.WatchSeed)
	cfg.Catalog.CacheBackend = ParseString("PORTALD_CATALOG_CACHE", cfg.Catalog.CacheBackend)
	cfg.Catalog.CacheTTL = ParseDuration("PORTALD_CATALOG_CACHE_TTL", cfg.Catalog.CacheTTL)
	cfg.Catalog.RedisAddr = ParseString("PORTALD_REDIS_ADDR", cfg.Catalog.RedisAddr)
	cfg.Catalog.RedisPass = ParseString("PORTALD_REDIS_PASSWORD", cfg.Catalog.RedisPass)
	cfg.Catalog.RedisDB = ParseInt("PORTALD_REDIS_DB", cfg.Catalog.RedisDB)

	cfg.Player.SnapshotDir = ParseString("PORTALD_PLAYER_SNAPSHOT_DIR", cfg.Player.SnapshotDir)
	cfg.Player.VisibilityThreshold = ParseFloat("PORTALD_PLAYER_VISIBILITY_THRESHOLD", cfg.Player.VisibilityThreshold)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
