// SPDX-License-Identifier: MIT

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lumeotv/portald/internal/config"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/metrics"
)

// Client talks to the backend's REST surface. It is safe for concurrent use.
type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	poll    time.Duration
	logger  zerolog.Logger
}

// New creates a backend client from configuration.
func New(cfg config.BackendConfig) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerS), int(cfg.RequestsPerS)+1)
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		poll:    cfg.EventsPoll,
		logger:  log.WithComponent("backend"),
	}
}

// envelope is the provider's uniform response body.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveBackendRequest(op, outcomeOf(err), time.Since(start))
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound, res.StatusCode == http.StatusNoContent:
		return ErrNotFound
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case res.StatusCode < 200 || res.StatusCode >= 300:
		msg := readErrorMessage(res.Body)
		return &APIError{Status: res.StatusCode, Op: op, Message: msg}
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	if env.Error != "" {
		return &APIError{Status: res.StatusCode, Op: op, Message: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", op, err)
		}
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

func readErrorMessage(body io.Reader) string {
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return ""
	}
	return env.Error
}

// GetCurrentSession queries the provider for the current session.
// Returns ErrNotFound when no session exists.
func (c *Client) GetCurrentSession(ctx context.Context) (*SessionInfo, error) {
	var s SessionInfo
	if err := c.do(ctx, "get_session", http.MethodGet, "/auth/v1/session", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignIn authenticates with email/password credentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	var u User
	req := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "signin", http.MethodPost, "/auth/v1/signin", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignUp registers a new user with optional profile fields.
func (c *Client) SignUp(ctx context.Context, email, password string, fields map[string]string) (*User, error) {
	var u User
	req := map[string]any{"email": email, "password": password, "fields": fields}
	if err := c.do(ctx, "signup", http.MethodPost, "/auth/v1/signup", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignInWithMagicLink requests a passwordless sign-in mail.
func (c *Client) SignInWithMagicLink(ctx context.Context, email string) error {
	req := map[string]string{"email": email}
	return c.do(ctx, "magiclink", http.MethodPost, "/auth/v1/magiclink", req, nil)
}

// SignInWithOAuth starts an OAuth flow with the named provider and returns the
// redirect payload.
func (c *Client) SignInWithOAuth(ctx context.Context, provider string) (map[string]any, error) {
	var data map[string]any
	req := map[string]string{"provider": provider}
	if err := c.do(ctx, "oauth", http.MethodPost, "/auth/v1/oauth", req, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// SignOut terminates the current session at the provider.
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, "signout", http.MethodPost, "/auth/v1/signout", nil, nil)
}

// UpdateUser patches user-owned profile fields at the provider.
func (c *Client) UpdateUser(ctx context.Context, fields map[string]string) (map[string]any, error) {
	var data map[string]any
	if err := c.do(ctx, "update_user", http.MethodPatch, "/auth/v1/user", fields, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// ResetPassword triggers a password recovery mail.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	req := map[string]string{"email": email}
	return c.do(ctx, "reset_password", http.MethodPost, "/auth/v1/recover", req, nil)
}

// GetProfile fetches the standard profile row for a user id.
// Returns ErrNotFound when no row exists.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	path := "/rest/v1/profiles/" + url.PathEscape(userID)
	if err := c.do(ctx, "get_profile", http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAdminProfile fetches the admin-scoped profile row for a user id.
// Returns ErrNotFound when the user has no admin row (the expected case).
func (c *Client) GetAdminProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	path := "/rest/v1/admin_profiles/" + url.PathEscape(userID)
	if err := c.do(ctx, "get_admin_profile", http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfile inserts a standard profile row for the user.
func (c *Client) CreateProfile(ctx context.Context, user User) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, "create_profile", http.MethodPost, "/rest/v1/profiles", user, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveVideo adds a video to the user's saved list.
func (c *Client) SaveVideo(ctx context.Context, userID, videoID string) error {
	req := map[string]string{"user_id": userID, "video_id": videoID}
	return c.do(ctx, "save_video", http.MethodPost, "/rest/v1/saved_videos", req, nil)
}

// SavedVideos lists the user's saved videos.
func (c *Client) SavedVideos(ctx context.Context, userID string) ([]SavedVideo, error) {
	var out []SavedVideo
	path := "/rest/v1/saved_videos?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, "saved_videos", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWatchProgress upserts playback progress for a user/video pair.
func (c *Client) UpdateWatchProgress(ctx context.Context, p WatchProgress) error {
	return c.do(ctx, "watch_progress", http.MethodPost, "/rest/v1/watch_progress", p, nil)
}

// UserAnalytics fetches the per-viewer aggregates.
func (c *Client) UserAnalytics(ctx context.Context, userID string) (*UserAnalytics, error) {
	var a UserAnalytics
	path := "/rest/v1/analytics/" + url.PathEscape(userID)
	if err := c.do(ctx, "user_analytics", http.MethodGet, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
