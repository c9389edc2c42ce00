// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"

	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/metrics"
)

// errMessage maps provider failures to the string surfaced in Result. Raw
// integrity details never reach the caller.
func errMessage(err error) string {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return "invalid credentials"
	case backend.IsNotFound(err):
		return "not found"
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "provider unavailable"
	}
}

// SignIn authenticates with email/password. Success does not populate the
// profile or navigate; that happens when the provider's signed-in
// notification is processed.
func (m *Manager) SignIn(ctx context.Context, email, password string) Result {
	u, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		metrics.IncSignIn("failure")
		m.logger.Warn().Err(err).Msg("sign-in failed")
		return fail(errMessage(err))
	}
	metrics.IncSignIn("success")
	return ok(u)
}

// SignUp registers a new user.
func (m *Manager) SignUp(ctx context.Context, email, password string, fields map[string]string) Result {
	u, err := m.provider.SignUp(ctx, email, password, fields)
	if err != nil {
		m.logger.Warn().Err(err).Msg("sign-up failed")
		return fail(errMessage(err))
	}
	return ok(u)
}

// SignInWithMagicLink requests a passwordless sign-in mail.
func (m *Manager) SignInWithMagicLink(ctx context.Context, email string) Result {
	if err := m.provider.SignInWithMagicLink(ctx, email); err != nil {
		m.logger.Warn().Err(err).Msg("magic link request failed")
		return fail(errMessage(err))
	}
	return ok(map[string]string{"message": "magic link sent"})
}

// SignInWithOAuth starts an OAuth flow with the named provider.
func (m *Manager) SignInWithOAuth(ctx context.Context, provider string) Result {
	data, err := m.provider.SignInWithOAuth(ctx, provider)
	if err != nil {
		m.logger.Warn().Err(err).Msg("oauth start failed")
		return fail(errMessage(err))
	}
	return ok(data)
}

// SignOut terminates the session at the provider. Local state is cleared by
// the signed-out notification.
func (m *Manager) SignOut(ctx context.Context) Result {
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("sign-out failed")
		return fail(errMessage(err))
	}
	return ok(nil)
}

// UpdateProfile patches user-owned fields at the provider and merges them
// into the cached profile on success.
func (m *Manager) UpdateProfile(ctx context.Context, fields map[string]string) Result {
	data, err := m.provider.UpdateUser(ctx, fields)
	if err != nil {
		m.logger.Warn().Err(err).Msg("profile update failed")
		return fail(errMessage(err))
	}

	// Copy-on-write so snapshots handed out earlier stay immutable.
	m.mu.Lock()
	if m.session.Profile != nil {
		p := applyProfileFields(*m.session.Profile, fields)
		m.session.Profile = &p
	}
	m.mu.Unlock()

	return ok(data)
}

// applyProfileFields merges the patched keys that live on the profile row.
// Everything else (passwords, user metadata) belongs to the user record at
// the provider and only shows up locally after the next profile fetch.
func applyProfileFields(p backend.Profile, fields map[string]string) backend.Profile {
	if v, okField := fields["full_name"]; okField {
		p.FullName = v
	}
	if v, okField := fields["email"]; okField {
		p.Email = v
	}
	return p
}

// ResetPassword triggers a password recovery mail.
func (m *Manager) ResetPassword(ctx context.Context, email string) Result {
	if err := m.provider.ResetPassword(ctx, email); err != nil {
		m.logger.Warn().Err(err).Msg("password reset failed")
		return fail(errMessage(err))
	}
	return ok(map[string]string{"message": "recovery mail sent"})
}

// AuthenticatedUser returns the current user, or nil for guests.
func (m *Manager) AuthenticatedUser() *backend.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsAuthenticated {
		return nil
	}
	return m.session.User
}
