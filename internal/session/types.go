// SPDX-License-Identifier: MIT

// Package session owns the authentication state lifecycle: it bootstraps the
// current session, consumes the provider's change notifications, resolves the
// viewer's role and triggers navigation side effects.
package session

import "github.com/lumeotv/portald/internal/backend"

// Session is the authenticated-identity-plus-role view exposed to the rest of
// the daemon. Invariant: IsAuthenticated == (User != nil). Profile must not be
// treated as final while Loading is true.
type Session struct {
	User            *backend.User    `json:"user"`
	Profile         *backend.Profile `json:"profile"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	Loading         bool             `json:"loading"`
}

// Result is the normalized outcome of every public operation. Errors never
// propagate past the manager's boundary.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) Result     { return Result{Success: true, Data: data} }
func fail(msg string) Result { return Result{Success: false, Error: msg} }
