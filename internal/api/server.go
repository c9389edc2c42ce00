// SPDX-License-Identifier: MIT

// Package api exposes portald over HTTP: auth and session state, the video
// catalog, the per-viewer player controller, and analytics. Live updates are
// pushed over server-sent events.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/analytics"
	"github.com/lumeotv/portald/internal/auth"
	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/config"
	"github.com/lumeotv/portald/internal/health"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/middleware"
	"github.com/lumeotv/portald/internal/player"
	"github.com/lumeotv/portald/internal/session"
)

// Server wires the domain services behind the HTTP surface.
type Server struct {
	cfg       config.AppConfig
	logger    zerolog.Logger
	sessions  *session.Manager
	players   *player.Registry
	catalog   *catalog.Service
	analytics *analytics.Service
	health    *health.Manager
	hub       *Hub
}

// Deps are the services the server serves. All fields are required except
// Health.
type Deps struct {
	Sessions  *session.Manager
	Players   *player.Registry
	Catalog   *catalog.Service
	Analytics *analytics.Service
	Health    *health.Manager
	Hub       *Hub
}

func NewServer(cfg config.AppConfig, deps Deps) *Server {
	hub := deps.Hub
	if hub == nil {
		hub = NewHub()
	}
	return &Server{
		cfg:       cfg,
		logger:    log.WithComponent("api"),
		sessions:  deps.Sessions,
		players:   deps.Players,
		catalog:   deps.Catalog,
		analytics: deps.Analytics,
		health:    deps.Health,
		hub:       hub,
	}
}

// EventHub returns the hub session navigation pushes go through.
func (s *Server) EventHub() *Hub { return s.hub }

// Routes builds the full router including the middleware stack.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		CORSAllowCredentials:  true,
		EnableSecurityHeaders: true,
		TrustedProxies:        middleware.ParseTrustedProxies(splitProxies(s.cfg.TrustedProxies)),
		EnableMetrics:         s.cfg.MetricsEnabled,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		EnableRateLimit:       s.cfg.RateLimitEnabled,
		RateLimitRPM:          s.cfg.RateLimitRPM,
		RateLimitBurst:        s.cfg.RateLimitBurst,
	})

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.viewerSession)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", s.handleSignIn)
			r.Post("/signup", s.handleSignUp)
			r.Post("/magiclink", s.handleMagicLink)
			r.Post("/oauth", s.handleOAuth)
			r.Post("/signout", s.handleSignOut)
			r.Post("/reset", s.handleResetPassword)
		})
		r.Get("/session", s.handleSession)
		r.Patch("/profile", s.handleUpdateProfile)

		r.Get("/events", s.handleEvents)

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", s.handleListVideos)
			r.Get("/live", s.handleLiveVideos)
			r.Get("/{id}", s.handleGetVideo)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleSaveVideo)
				r.Put("/{id}", s.handleSaveVideo)
				r.Delete("/{id}", s.handleDeleteVideo)
			})
		})

		r.Route("/player", func(r chi.Router) {
			r.Get("/", s.handlePlayerState)
			r.Post("/select", s.handlePlayerSelect)
			r.Post("/visibility", s.handlePlayerVisibility)
			r.Post("/close-mini", s.playerAction(func(c *player.Controller) bool { return c.CloseMiniPlayer() }))
			r.Post("/reopen-mini", s.playerAction(func(c *player.Controller) bool { return c.ReopenMiniPlayer() }))
			r.Post("/minimize-main", s.playerAction(func(c *player.Controller) bool { return c.MinimizeMainPlayer() }))
			r.Post("/toggle-live", s.playerAction(func(c *player.Controller) bool { return c.ToggleLiveStream() }))
			r.Post("/maximize-mini", s.handlePlayerMaximize)
			r.Post("/toggle-sound", s.handlePlayerToggleSound)
			r.Post("/interacted", s.handlePlayerInteracted)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/save", s.handleAnalyticsSave)
			r.Get("/saved", s.handleAnalyticsSaved)
			r.Post("/progress", s.handleAnalyticsProgress)
			r.Get("/me", s.handleAnalyticsMe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/cache", s.handleCacheStats)
			r.Post("/seed/export", s.handleSeedExport)
		})
	})

	return r
}

// requireAdmin guards catalog mutation and admin endpoints with the static
// API token. No configured token disables the whole admin surface.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			writeError(w, r, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		if !auth.AuthorizeRequest(r, s.cfg.APIToken) {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func splitProxies(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
