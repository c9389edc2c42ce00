// SPDX-License-Identifier: MIT

// Package backend implements the client for the managed backend service that
// owns authentication, profiles and viewer analytics.
package backend

import "time"

// Role is the access role carried by a profile.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks whether the role is one of the defined values.
func (r Role) IsValid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the opaque identity record issued by the auth provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionInfo is the provider's view of an authenticated session.
type SessionInfo struct {
	User User `json:"user"`
}

// Profile is the role/metadata record stored alongside a user identity.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind tags an auth change notification.
type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventSignedOut EventKind = "SIGNED_OUT"
)

// AuthEvent is a single auth change notification from the provider.
// Kinds other than SIGNED_IN/SIGNED_OUT are delivered as-is and ignored
// downstream.
type AuthEvent struct {
	ID      uint64       `json:"id"`
	Kind    EventKind    `json:"type"`
	Session *SessionInfo `json:"session,omitempty"`
}

// SavedVideo is one entry of a viewer's saved list.
type SavedVideo struct {
	VideoID string    `json:"video_id"`
	SavedAt time.Time `json:"saved_at"`
}

// WatchProgress records playback position for one user/video pair.
type WatchProgress struct {
	UserID   string  `json:"user_id"`
	VideoID  string  `json:"video_id"`
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration"`
}

// UserAnalytics is the aggregate the backend keeps per viewer.
type UserAnalytics struct {
	UserID        string    `json:"user_id"`
	VideosWatched int       `json:"videos_watched"`
	VideosSaved   int       `json:"videos_saved"`
	WatchSeconds  float64   `json:"watch_seconds"`
	LastActive    time.Time `json:"last_active"`
}
