// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/playerstore"
)

// Registry owns one controller per viewer session.
type Registry struct {
	catalog   *catalog.Service
	users     UserSource
	sink      AnalyticsSink
	snapshots *playerstore.Store
	threshold float64
	logger    zerolog.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

// RegistryOptions configures a registry.
type RegistryOptions struct {
	Catalog   *catalog.Service
	Users     UserSource
	Sink      AnalyticsSink
	Snapshots *playerstore.Store
	Threshold float64
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		catalog:     opts.Catalog,
		users:       opts.Users,
		sink:        opts.Sink,
		snapshots:   opts.Snapshots,
		threshold:   opts.Threshold,
		logger:      log.WithComponent("player-registry"),
		controllers: make(map[string]*Controller),
	}
}

// Get returns the viewer's controller, creating one on first use. New
// sessions start with the catalog's default live stream when one exists.
func (r *Registry) Get(ctx context.Context, viewerID string) *Controller {
	r.mu.Lock()
	if c, found := r.controllers[viewerID]; found {
		r.mu.Unlock()
		return c
	}
	r.mu.Unlock()

	// Resolve the default stream outside the lock; catalog reads can block.
	var defaultLive *catalog.Video
	if r.catalog != nil {
		v, err := r.catalog.DefaultLive(ctx)
		switch {
		case err == nil:
			defaultLive = v
		case errors.Is(err, catalog.ErrNotFound):
			// Empty catalog: sessions start idle.
		default:
			r.logger.Warn().Err(err).Msg("default live lookup failed, starting idle")
		}
	}

	c := NewController(Options{
		ViewerID:    viewerID,
		Threshold:   r.threshold,
		Users:       r.users,
		Sink:        r.sink,
		Snapshots:   r.snapshots,
		DefaultLive: defaultLive,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, found := r.controllers[viewerID]; found {
		// Lost the race; drop ours before it is observable.
		c.teardown()
		return existing
	}
	r.controllers[viewerID] = c
	r.logger.Debug().Str(log.FieldViewerID, viewerID).Msg("player session created")
	return c
}

// Lookup returns an existing controller without creating one.
func (r *Registry) Lookup(viewerID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, found := r.controllers[viewerID]
	return c, found
}

// Teardown removes the viewer's controller, closing its subscriptions and
// persisting a final snapshot. Idempotent.
func (r *Registry) Teardown(viewerID string) {
	r.mu.Lock()
	c, found := r.controllers[viewerID]
	delete(r.controllers, viewerID)
	r.mu.Unlock()

	if found {
		c.teardown()
		r.logger.Debug().Str(log.FieldViewerID, viewerID).Msg("player session torn down")
	}
}

// Close tears down every controller.
func (r *Registry) Close() {
	r.mu.Lock()
	controllers := r.controllers
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range controllers {
		c.teardown()
	}
}

// Size reports the number of live player sessions.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
