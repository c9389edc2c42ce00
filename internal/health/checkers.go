// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"

	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/catalog"
)

const checkTimeout = 3 * time.Second

// BackendChecker probes the auth backend with a session lookup. An absent
// session is healthy; the backend answered.
type BackendChecker struct {
	client *backend.Client
}

func NewBackendChecker(client *backend.Client) *BackendChecker {
	return &BackendChecker{client: client}
}

func (c *BackendChecker) Name() string { return "backend" }

func (c *BackendChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	_, err := c.client.GetCurrentSession(ctx)
	if err != nil && !backend.IsNotFound(err) {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "backend reachable"}
}

// CatalogChecker probes the video store with a live-streams query.
type CatalogChecker struct {
	service *catalog.Service
}

func NewCatalogChecker(service *catalog.Service) *CatalogChecker {
	return &CatalogChecker{service: service}
}

func (c *CatalogChecker) Name() string { return "catalog" }

func (c *CatalogChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	live, err := c.service.Live(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if len(live) == 0 {
		return CheckResult{Status: StatusDegraded, Message: "no live streams in catalog"}
	}
	return CheckResult{Status: StatusHealthy, Message: "catalog reachable"}
}
