// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/metrics"
)

// Manager owns the Session. All mutation goes through the bootstrap and
// event-handling paths; readers get copies via Snapshot.
type Manager struct {
	provider Provider
	nav      Navigator
	logger   zerolog.Logger

	mu      sync.Mutex
	session Session
	epoch   uint64
}

// NewManager creates a manager in the unauthenticated state. nav may be nil.
func NewManager(provider Provider, nav Navigator) *Manager {
	return &Manager{
		provider: provider,
		nav:      nav,
		logger:   log.WithComponent("session"),
	}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// beginEpoch supersedes all in-flight async work and applies fn to the
// session. It returns the new epoch; completions must present it to commit.
func (m *Manager) beginEpoch(fn func(*Session)) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	if fn != nil {
		fn(&m.session)
	}
	return m.epoch
}

// commit applies fn only if epoch is still current. Stale completions (a
// sign-out raced past an in-flight profile fetch) are discarded so they can
// never resurrect user or profile state.
func (m *Manager) commit(epoch uint64, fn func(*Session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return false
	}
	fn(&m.session)
	return true
}

// Bootstrap resolves the initial session once at startup. Every outcome ends
// with Loading=false; failures degrade to the unauthenticated state instead
// of propagating.
func (m *Manager) Bootstrap(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObserveBootstrapDuration(time.Since(start)) }()

	epoch := m.beginEpoch(func(s *Session) {
		s.Loading = true
	})

	info, err := m.provider.GetCurrentSession(ctx)
	if err != nil {
		if !backend.IsNotFound(err) {
			m.logger.Warn().Err(err).Msg("session bootstrap failed")
		}
		m.commit(epoch, func(s *Session) {
			*s = Session{}
		})
		return
	}

	user := info.User
	profile := m.ensureProfile(ctx, user)

	if !m.commit(epoch, func(s *Session) {
		s.User = &user
		s.Profile = profile
		s.IsAuthenticated = true
		s.Loading = false
	}) {
		m.logger.Debug().Uint64(log.FieldEpoch, epoch).Msg("stale bootstrap result discarded")
	}
}

// Run consumes auth change notifications until ctx is cancelled. Events are
// processed serially, in provider order.
func (m *Manager) Run(ctx context.Context) {
	for ev := range m.provider.SessionEvents(ctx) {
		m.handleEvent(ctx, ev)
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev backend.AuthEvent) {
	switch ev.Kind {
	case backend.EventSignedIn:
		metrics.IncAuthEvent(string(ev.Kind))
		m.handleSignedIn(ctx, ev)
	case backend.EventSignedOut:
		metrics.IncAuthEvent(string(ev.Kind))
		m.beginEpoch(func(s *Session) {
			*s = Session{}
		})
		m.logger.Info().Msg("signed out")
	default:
		metrics.IncAuthEvent("ignored")
	}
}

// handleSignedIn resolves the viewer's role with admin priority. An admin row
// whose role is not "admin", or an admin lookup failure, forces a sign-out:
// the ladder fails closed.
func (m *Manager) handleSignedIn(ctx context.Context, ev backend.AuthEvent) {
	if ev.Session == nil {
		m.logger.Warn().Msg("signed-in event without session payload, ignored")
		return
	}
	user := ev.Session.User

	epoch := m.beginEpoch(func(s *Session) {
		s.User = &user
		s.IsAuthenticated = true
		s.Loading = true
	})

	admin, err := m.provider.GetAdminProfile(ctx, user.ID)
	switch {
	case err == nil && admin.Role == backend.RoleAdmin:
		if m.commit(epoch, func(s *Session) {
			s.Profile = admin
			s.Loading = false
		}) {
			m.navigate("/admin")
		}

	case err == nil:
		// Admin row exists but carries another role. Integrity violation.
		m.logger.Warn().
			Str(log.FieldUserID, user.ID).
			Str(log.FieldRole, string(admin.Role)).
			Msg("admin profile with non-admin role, forcing sign-out")
		m.forceSignOut(ctx, epoch, "role_mismatch")

	case backend.IsNotFound(err):
		// Expected for normal users.
		profile := m.ensureProfile(ctx, user)
		if m.commit(epoch, func(s *Session) {
			s.Profile = profile
			s.Loading = false
		}) {
			m.navigate("/")
		}

	default:
		m.logger.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("admin profile lookup failed, forcing sign-out")
		m.forceSignOut(ctx, epoch, "admin_lookup_error")
	}
}

func (m *Manager) forceSignOut(ctx context.Context, epoch uint64, reason string) {
	metrics.IncForcedSignout(reason)
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("provider sign-out failed during forced sign-out")
	}
	m.commit(epoch, func(s *Session) {
		*s = Session{}
	})
}

// ensureProfile fetches the user's profile, creating the row at most once if
// it is missing. A nil return is a degraded but non-fatal state.
func (m *Manager) ensureProfile(ctx context.Context, user backend.User) *backend.Profile {
	p, err := m.provider.GetProfile(ctx, user.ID)
	if err == nil {
		return p
	}
	if !backend.IsNotFound(err) {
		m.logger.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("profile fetch failed")
		return nil
	}

	if _, err := m.provider.CreateProfile(ctx, user); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("profile creation failed")
		return nil
	}
	metrics.IncProfileCreate()

	p, err = m.provider.GetProfile(ctx, user.ID)
	if err != nil {
		m.logger.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("profile refetch after create failed")
		return nil
	}
	return p
}

func (m *Manager) navigate(path string) {
	if m.nav == nil {
		return
	}
	m.logger.Debug().Str(log.FieldPath, path).Msg("navigate")
	m.nav.NavigateTo(path)
}
