// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/config"
	"github.com/lumeotv/portald/internal/log"
)

// PerformStartupChecks validates the environment before the daemon starts
// serving. Failing here is cheaper than failing on the first request.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkListenAddr(cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.MetricsEnabled {
		if err := checkListenAddr(cfg.MetricsAddr); err != nil {
			return err
		}
	}

	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base URL scheme must be http or https, got %q", u.Scheme)
	}
	logger.Info().Str("url", cfg.Backend.BaseURL).Msg("backend base URL is valid")

	if cfg.Catalog.SeedPath != "" {
		if !filepath.IsAbs(cfg.Catalog.SeedPath) {
			logger.Warn().Str("path", cfg.Catalog.SeedPath).Msg("seed path is relative; resolution depends on working directory")
		}
	}
	if cfg.APIToken == "" {
		logger.Warn().Msg("no API token configured; admin endpoints are disabled")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("cannot create data directory %s: %w", path, err)
	}

	// Probe writability with a temp file; Stat alone misses mount quirks.
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("data directory is not writable: %s: %w", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid port %q in listen address %q", port, addr)
	}
	return nil
}
