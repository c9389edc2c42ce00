// SPDX-License-Identifier: MIT

package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Principal is the authenticated identity of an API caller.
type Principal struct {
	// ID is a stable identifier: the configured name, or a token hash.
	ID string

	// Scopes are the permissions granted to this principal.
	Scopes []string

	// Name is the human-readable operator name if configured.
	Name string
}

// NewPrincipal builds a Principal from a token and optional name/scopes.
// The raw token is never stored.
func NewPrincipal(token, name string, scopes []string) *Principal {
	id := name
	if id == "" {
		hash := sha256.Sum256([]byte(token))
		id = "t_" + hex.EncodeToString(hash[:])[:16]
	}
	return &Principal{ID: id, Scopes: scopes, Name: name}
}
