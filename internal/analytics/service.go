// SPDX-License-Identifier: MIT

// Package analytics guards the viewer-data side channel: saved videos, watch
// progress and per-viewer aggregates. Operations are best-effort and never
// block a player transition.
package analytics

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/session"
)

// ErrNotAuthenticated short-circuits every operation for guests; the backend
// is never called.
var ErrNotAuthenticated = errors.New("analytics: user not authenticated")

// Backend is the analytics surface of the provider client.
type Backend interface {
	SaveVideo(ctx context.Context, userID, videoID string) error
	SavedVideos(ctx context.Context, userID string) ([]backend.SavedVideo, error)
	UpdateWatchProgress(ctx context.Context, p backend.WatchProgress) error
	UserAnalytics(ctx context.Context, userID string) (*backend.UserAnalytics, error)
}

// Users reports the authenticated user, nil for guests.
type Users interface {
	AuthenticatedUser() *backend.User
}

// Service normalizes analytics operations to Result values.
type Service struct {
	backend Backend
	users   Users
	logger  zerolog.Logger
}

// NewService creates the analytics service.
func NewService(b Backend, users Users) *Service {
	return &Service{
		backend: b,
		users:   users,
		logger:  log.WithComponent("analytics"),
	}
}

func (s *Service) currentUser() (*backend.User, error) {
	if s.users == nil {
		return nil, ErrNotAuthenticated
	}
	u := s.users.AuthenticatedUser()
	if u == nil {
		return nil, ErrNotAuthenticated
	}
	return u, nil
}

func failResult(err error) session.Result {
	if errors.Is(err, ErrNotAuthenticated) {
		return session.Result{Success: false, Error: "user not authenticated"}
	}
	return session.Result{Success: false, Error: "provider unavailable"}
}

// SaveVideo adds a video to the viewer's saved list.
func (s *Service) SaveVideo(ctx context.Context, videoID string) session.Result {
	u, err := s.currentUser()
	if err != nil {
		return failResult(err)
	}
	if err := s.backend.SaveVideo(ctx, u.ID, videoID); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldVideoID, videoID).Msg("save video failed")
		return failResult(err)
	}
	return session.Result{Success: true}
}

// SavedVideos lists the viewer's saved videos.
func (s *Service) SavedVideos(ctx context.Context) session.Result {
	u, err := s.currentUser()
	if err != nil {
		return failResult(err)
	}
	saved, err := s.backend.SavedVideos(ctx, u.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("saved videos fetch failed")
		return failResult(err)
	}
	return session.Result{Success: true, Data: saved}
}

// UpdateWatchProgress upserts playback progress for a video.
func (s *Service) UpdateWatchProgress(ctx context.Context, videoID string, progress, duration float64) session.Result {
	u, err := s.currentUser()
	if err != nil {
		return failResult(err)
	}
	p := backend.WatchProgress{
		UserID:   u.ID,
		VideoID:  videoID,
		Progress: progress,
		Duration: duration,
	}
	if err := s.backend.UpdateWatchProgress(ctx, p); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldVideoID, videoID).Msg("watch progress update failed")
		return failResult(err)
	}
	return session.Result{Success: true}
}

// UserAnalytics returns the viewer's aggregates.
func (s *Service) UserAnalytics(ctx context.Context) session.Result {
	u, err := s.currentUser()
	if err != nil {
		return failResult(err)
	}
	a, err := s.backend.UserAnalytics(ctx, u.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("user analytics fetch failed")
		return failResult(err)
	}
	return session.Result{Success: true, Data: a}
}

// WatchStarted records that playback of an on-demand video began. It is the
// player controller's fire-and-forget sink (progress 0 of 0).
func (s *Service) WatchStarted(ctx context.Context, userID, videoID string) error {
	return s.backend.UpdateWatchProgress(ctx, backend.WatchProgress{
		UserID:  userID,
		VideoID: videoID,
	})
}
