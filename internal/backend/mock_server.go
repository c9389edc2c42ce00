// SPDX-License-Identifier: MIT

package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockServer provides a configurable backend mock for testing. It implements
// the REST surface the Client expects and counts calls so tests can assert
// at-most-once semantics.
type MockServer struct {
	*httptest.Server
	mu sync.RWMutex

	session       *SessionInfo
	users         map[string]string // email -> password
	profiles      map[string]Profile
	adminProfiles map[string]Profile
	saved         map[string][]SavedVideo
	progress      map[string]WatchProgress
	events        []AuthEvent
	nextEventID   uint64

	failures map[string]int // path prefix -> HTTP status forced on next calls
	calls    map[string]int // op name -> invocation count
}

// NewMockServer creates a backend mock with empty state.
func NewMockServer() *MockServer {
	m := &MockServer{
		users:         make(map[string]string),
		profiles:      make(map[string]Profile),
		adminProfiles: make(map[string]Profile),
		saved:         make(map[string][]SavedVideo),
		progress:      make(map[string]WatchProgress),
		failures:      make(map[string]int),
		calls:         make(map[string]int),
		nextEventID:   1,
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.route))
	return m
}

// SetSession sets the session returned by /auth/v1/session.
func (m *MockServer) SetSession(s *SessionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
}

// AddUser registers credentials accepted by /auth/v1/signin.
func (m *MockServer) AddUser(email, password, id string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email] = password + "|" + id
	return User{ID: id, Email: email}
}

// SetProfile seeds a standard profile row.
func (m *MockServer) SetProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

// SetAdminProfile seeds an admin-scoped profile row.
func (m *MockServer) SetAdminProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminProfiles[p.UserID] = p
}

// PushEvent appends an auth event to the event feed.
func (m *MockServer) PushEvent(kind EventKind, session *SessionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, AuthEvent{ID: m.nextEventID, Kind: kind, Session: session})
	m.nextEventID++
}

// FailWith forces all requests whose path starts with prefix to answer with
// the given status code.
func (m *MockServer) FailWith(prefix string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[prefix] = status
}

// ClearFailures removes all forced failures.
func (m *MockServer) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]int)
}

// Calls returns how often the named operation was invoked.
func (m *MockServer) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

func (m *MockServer) count(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *MockServer) forcedFailure(path string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for prefix, status := range m.failures {
		if strings.HasPrefix(path, prefix) {
			return status, true
		}
	}
	return 0, false
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

func (m *MockServer) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if status, ok := m.forcedFailure(path); ok {
		writeError(w, status, "forced failure")
		return
	}

	switch {
	case path == "/auth/v1/session":
		m.handleSession(w, r)
	case path == "/auth/v1/signin":
		m.handleSignIn(w, r)
	case path == "/auth/v1/signup":
		m.handleSignUp(w, r)
	case path == "/auth/v1/magiclink":
		m.count("magiclink")
		writeData(w, map[string]string{"message": "magic link sent"})
	case path == "/auth/v1/oauth":
		m.count("oauth")
		writeData(w, map[string]string{"url": "https://oauth.example/authorize"})
	case path == "/auth/v1/signout":
		m.handleSignOut(w, r)
	case path == "/auth/v1/user":
		m.count("update_user")
		writeData(w, map[string]string{"status": "updated"})
	case path == "/auth/v1/recover":
		m.count("reset_password")
		writeData(w, map[string]string{"message": "recovery mail sent"})
	case path == "/auth/v1/events":
		m.handleEvents(w, r)
	case strings.HasPrefix(path, "/rest/v1/profiles"):
		m.handleProfiles(w, r)
	case strings.HasPrefix(path, "/rest/v1/admin_profiles/"):
		m.handleAdminProfile(w, r)
	case path == "/rest/v1/saved_videos":
		m.handleSavedVideos(w, r)
	case path == "/rest/v1/watch_progress":
		m.handleWatchProgress(w, r)
	case strings.HasPrefix(path, "/rest/v1/analytics/"):
		m.handleAnalytics(w, r)
	default:
		writeError(w, http.StatusNotFound, "unknown endpoint")
	}
}

func (m *MockServer) handleSession(w http.ResponseWriter, _ *http.Request) {
	m.count("get_session")
	m.mu.RLock()
	s := m.session
	m.mu.RUnlock()
	if s == nil {
		writeError(w, http.StatusNotFound, "no session")
		return
	}
	writeData(w, s)
}

func (m *MockServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	m.count("signin")
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	m.mu.RLock()
	stored, ok := m.users[req.Email]
	m.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	parts := strings.SplitN(stored, "|", 2)
	if parts[0] != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeData(w, User{ID: parts[1], Email: req.Email})
}

func (m *MockServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	m.count("signup")
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	id := "u-" + strconv.Itoa(len(m.users)+1)
	m.mu.Lock()
	m.users[req.Email] = req.Password + "|" + id
	m.mu.Unlock()
	writeData(w, User{ID: id, Email: req.Email})
}

func (m *MockServer) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	m.count("signout")
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	writeData(w, map[string]string{"status": "signed out"})
}

func (m *MockServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	m.count("events")
	cursor, _ := strconv.ParseUint(r.URL.Query().Get("cursor"), 10, 64)
	m.mu.RLock()
	var pending []AuthEvent
	for _, ev := range m.events {
		if ev.ID > cursor {
			pending = append(pending, ev)
		}
	}
	next := m.nextEventID - 1
	m.mu.RUnlock()
	writeData(w, eventsPage{Events: pending, Cursor: next})
}

func (m *MockServer) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		m.count("create_profile")
		var u User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		p := Profile{
			ID:        "p-" + u.ID,
			UserID:    u.ID,
			Email:     u.Email,
			Role:      RoleUser,
			CreatedAt: time.Now().UTC(),
		}
		m.mu.Lock()
		m.profiles[u.ID] = p
		m.mu.Unlock()
		writeData(w, p)
		return
	}

	m.count("get_profile")
	userID := strings.TrimPrefix(r.URL.Path, "/rest/v1/profiles/")
	m.mu.RLock()
	p, ok := m.profiles[userID]
	m.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no profile")
		return
	}
	writeData(w, p)
}

func (m *MockServer) handleAdminProfile(w http.ResponseWriter, r *http.Request) {
	m.count("get_admin_profile")
	userID := strings.TrimPrefix(r.URL.Path, "/rest/v1/admin_profiles/")
	m.mu.RLock()
	p, ok := m.adminProfiles[userID]
	m.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no admin profile")
		return
	}
	writeData(w, p)
}

func (m *MockServer) handleSavedVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		m.count("save_video")
		var req struct {
			UserID  string `json:"user_id"`
			VideoID string `json:"video_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		m.mu.Lock()
		m.saved[req.UserID] = append(m.saved[req.UserID], SavedVideo{VideoID: req.VideoID, SavedAt: time.Now().UTC()})
		m.mu.Unlock()
		writeData(w, map[string]string{"status": "saved"})
		return
	}

	m.count("saved_videos")
	userID := r.URL.Query().Get("user_id")
	m.mu.RLock()
	list := append([]SavedVideo(nil), m.saved[userID]...)
	m.mu.RUnlock()
	writeData(w, list)
}

func (m *MockServer) handleWatchProgress(w http.ResponseWriter, r *http.Request) {
	m.count("watch_progress")
	var p WatchProgress
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	m.mu.Lock()
	m.progress[p.UserID+"/"+p.VideoID] = p
	m.mu.Unlock()
	writeData(w, map[string]string{"status": "recorded"})
}

func (m *MockServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	m.count("user_analytics")
	userID := strings.TrimPrefix(r.URL.Path, "/rest/v1/analytics/")
	m.mu.RLock()
	watched := 0
	var seconds float64
	for key, p := range m.progress {
		if strings.HasPrefix(key, userID+"/") {
			watched++
			seconds += p.Progress
		}
	}
	savedCount := len(m.saved[userID])
	m.mu.RUnlock()
	writeData(w, UserAnalytics{
		UserID:        userID,
		VideosWatched: watched,
		VideosSaved:   savedCount,
		WatchSeconds:  seconds,
		LastActive:    time.Now().UTC(),
	})
}

// Progress returns the recorded watch progress for a user/video pair.
func (m *MockServer) Progress(userID, videoID string) (WatchProgress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[userID+"/"+videoID]
	return p, ok
}
