// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumeotv/portald/internal/log"
)

// ParseString reads a string environment variable with a default value.
func ParseString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		logEnv(key, "env")
		return v
	}
	return defaultValue
}

// ParseInt reads an integer environment variable with a default value.
// Invalid values fall back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			logEnv(key, "env")
			return i
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Int("default", defaultValue).
			Msg("invalid integer value, using default")
	}
	return defaultValue
}

// ParseBool reads a boolean environment variable with a default value.
func ParseBool(key string, defaultValue bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			logEnv(key, "env")
			return true
		case "0", "false", "no", "off":
			logEnv(key, "env")
			return false
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Bool("default", defaultValue).
			Msg("invalid boolean value, using default")
	}
	return defaultValue
}

// ParseFloat reads a float environment variable with a default value.
func ParseFloat(key string, defaultValue float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			logEnv(key, "env")
			return f
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Float64("default", defaultValue).
			Msg("invalid float value, using default")
	}
	return defaultValue
}

// ParseDuration reads a duration environment variable ("30s", "1m") with a default value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			logEnv(key, "env")
			return d
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Dur("default", defaultValue).
			Msg("invalid duration value, using default")
	}
	return defaultValue
}

// ParseStringSlice reads a comma-separated environment variable.
func ParseStringSlice(key string, defaultValue []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		logEnv(key, "env")
		return SplitCSVNonEmpty(v)
	}
	return defaultValue
}

// SplitCSVNonEmpty splits a comma-separated string, trimming whitespace and
// dropping empty entries.
func SplitCSVNonEmpty(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func logEnv(key, source string) {
	logger := log.WithComponent("config")
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "key") {
		// Never log sensitive values, only that they were set.
		logger.Debug().Str("key", key).Str("source", source).Msg("sensitive value set")
		return
	}
	logger.Debug().Str("key", key).Str("source", source).Msg("value resolved")
}
