// SPDX-License-Identifier: MIT

package session

import (
	"context"

	"github.com/lumeotv/portald/internal/backend"
)

// Provider is the auth/profile surface the manager depends on.
// *backend.Client satisfies it.
type Provider interface {
	GetCurrentSession(ctx context.Context) (*backend.SessionInfo, error)
	SignIn(ctx context.Context, email, password string) (*backend.User, error)
	SignUp(ctx context.Context, email, password string, fields map[string]string) (*backend.User, error)
	SignInWithMagicLink(ctx context.Context, email string) error
	SignInWithOAuth(ctx context.Context, provider string) (map[string]any, error)
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, fields map[string]string) (map[string]any, error)
	ResetPassword(ctx context.Context, email string) error

	GetProfile(ctx context.Context, userID string) (*backend.Profile, error)
	GetAdminProfile(ctx context.Context, userID string) (*backend.Profile, error)
	CreateProfile(ctx context.Context, user backend.User) (*backend.Profile, error)

	SessionEvents(ctx context.Context) <-chan backend.AuthEvent
}

// Navigator receives navigation side effects. The API layer pushes them to
// connected viewers; a nil navigator is a no-op.
type Navigator interface {
	NavigateTo(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) NavigateTo(path string) { f(path) }
