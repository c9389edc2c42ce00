// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
)

// ErrNotFound marks expected absence (no session, no profile row). Callers
// treat it as a fallback trigger, not a failure.
var ErrNotFound = errors.New("backend: not found")

// ErrUnauthorized marks rejected credentials or an expired session.
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a provider-side failure that is neither absence nor an auth
// rejection (network faults are returned as-is, not wrapped in APIError).
type APIError struct {
	Status  int
	Op      string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s failed with status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s failed with status %d", e.Op, e.Status)
}

// IsNotFound reports whether err marks expected absence.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
