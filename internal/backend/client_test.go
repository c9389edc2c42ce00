// SPDX-License-Identifier: MIT

package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lumeotv/portald/internal/config"
)

func newTestClient(t *testing.T) (*Client, *MockServer) {
	t.Helper()
	mock := NewMockServer()
	t.Cleanup(mock.Close)

	c := New(config.BackendConfig{
		BaseURL:    mock.URL,
		Timeout:    5 * time.Second,
		EventsPoll: 10 * time.Millisecond,
	})
	return c, mock
}

func TestSignIn(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddUser("ana@example.com", "secret", "u-1")

	u, err := c.SignIn(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.ID != "u-1" || u.Email != "ana@example.com" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddUser("ana@example.com", "secret", "u-1")

	_, err := c.SignIn(context.Background(), "ana@example.com", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestGetCurrentSessionAbsent(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetCurrentSession(context.Background())
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetProfileNotFoundVsProviderError(t *testing.T) {
	c, mock := newTestClient(t)

	// 404 is expected absence.
	_, err := c.GetProfile(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// 5xx is a provider error, never conflated with absence.
	mock.FailWith("/rest/v1/profiles", http.StatusInternalServerError)
	_, err = c.GetProfile(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apiErr.Status)
	}
	if IsNotFound(err) {
		t.Error("provider error must not look like absence")
	}
}

func TestCreateProfileRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)

	p, err := c.CreateProfile(context.Background(), User{ID: "u-7", Email: "u7@example.com"})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if p.UserID != "u-7" || p.Role != RoleUser {
		t.Errorf("unexpected profile: %+v", p)
	}

	got, err := c.GetProfile(context.Background(), "u-7")
	if err != nil {
		t.Fatalf("GetProfile after create: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("profile id = %q, want %q", got.ID, p.ID)
	}
}

func TestSessionEventsDeliveredInOrder(t *testing.T) {
	c, mock := newTestClient(t)

	session := &SessionInfo{User: User{ID: "u-1", Email: "ana@example.com"}}
	mock.PushEvent(EventSignedIn, session)
	mock.PushEvent(EventSignedOut, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events := c.SessionEvents(ctx)

	first := <-events
	if first.Kind != EventSignedIn || first.Session == nil || first.Session.User.ID != "u-1" {
		t.Fatalf("first event = %+v, want SIGNED_IN for u-1", first)
	}
	second := <-events
	if second.Kind != EventSignedOut {
		t.Fatalf("second event = %+v, want SIGNED_OUT", second)
	}

	cancel()
	// Channel must close after cancellation.
	for range events { //nolint:revive // drain until closed
	}
}

func TestWatchProgressRecorded(t *testing.T) {
	c, mock := newTestClient(t)

	err := c.UpdateWatchProgress(context.Background(), WatchProgress{
		UserID: "u-1", VideoID: "v-1", Progress: 12.5, Duration: 300,
	})
	if err != nil {
		t.Fatalf("UpdateWatchProgress: %v", err)
	}
	p, ok := mock.Progress("u-1", "v-1")
	if !ok || p.Progress != 12.5 {
		t.Errorf("progress not recorded: %+v ok=%v", p, ok)
	}
}
