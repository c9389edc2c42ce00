// SPDX-License-Identifier: MIT

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lumeotv/portald/internal/analytics"
	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/config"
	"github.com/lumeotv/portald/internal/player"
	"github.com/lumeotv/portald/internal/playerstore"
	"github.com/lumeotv/portald/internal/session"
)

type testEnv struct {
	ts       *httptest.Server
	mock     *backend.MockServer
	sessions *session.Manager
	catalog  *catalog.Service
	client   *http.Client
}

func newTestEnv(t *testing.T, videos ...catalog.Video) *testEnv {
	t.Helper()

	mock := backend.NewMockServer()
	t.Cleanup(mock.Close)

	client := backend.New(config.BackendConfig{
		BaseURL:    mock.URL,
		Timeout:    5 * time.Second,
		EventsPoll: 10 * time.Millisecond,
	})

	store, err := catalog.NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc := catalog.NewService(store, nil, time.Minute)
	for _, v := range videos {
		if err := store.Upsert(context.Background(), v); err != nil {
			t.Fatal(err)
		}
	}

	snapshots, err := playerstore.Open("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = snapshots.Close() })

	hub := NewHub()
	mgr := session.NewManager(client, hub)
	an := analytics.NewService(client, mgr)
	registry := player.NewRegistry(player.RegistryOptions{
		Catalog:   svc,
		Users:     mgr,
		Sink:      an,
		Snapshots: snapshots,
		Threshold: 0.3,
	})
	t.Cleanup(registry.Close)

	cfg := config.Defaults("test")
	cfg.Backend.BaseURL = mock.URL
	cfg.APIToken = "admin-secret"
	cfg.RateLimitEnabled = false
	cfg.MetricsEnabled = false
	cfg.DataDir = t.TempDir()

	srv := NewServer(cfg, Deps{
		Sessions:  mgr,
		Players:   registry,
		Catalog:   svc,
		Analytics: an,
		Hub:       hub,
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	jar := newCookieClient()
	return &testEnv{ts: ts, mock: mock, sessions: mgr, catalog: svc, client: jar}
}

// newCookieClient keeps the viewer cookie across requests like a browser.
func newCookieClient() *http.Client {
	return &http.Client{
		Transport: &cookieTransport{cookies: map[string]string{}},
		Timeout:   10 * time.Second,
	}
}

type cookieTransport struct {
	cookies map[string]string
}

func (c *cookieTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	for name, value := range c.cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := http.DefaultTransport.RoundTrip(r)
	if err == nil {
		for _, ck := range resp.Cookies() {
			c.cookies[ck.Name] = ck.Value
		}
	}
	return resp, err
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Same-origin request, satisfies the CSRF check.
	req.Header.Set("Origin", e.ts.URL)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, out.Bytes()
}

func liveVideo(id string) catalog.Video {
	return catalog.Video{ID: id, Title: "Live " + id, IsLive: true, StreamURL: "https://cdn.test/" + id + ".m3u8"}
}

func vodVideo(id string) catalog.Video {
	return catalog.Video{ID: id, Title: "VOD " + id, Category: "docs", StreamURL: "https://cdn.test/" + id + ".mp4"}
}

func TestSessionEndpointGuest(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/session", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var s session.Session
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.IsAuthenticated {
		t.Fatal("fresh session must be unauthenticated")
	}
}

func TestSignInEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.mock.AddUser("alice@example.com", "pw", "u-1")

	resp, body := env.do(t, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": "alice@example.com", "password": "pw"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var res session.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("signin failed: %s", res.Error)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": "alice@example.com", "password": "wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d, want 401", resp.StatusCode)
	}
}

func TestSignedInEventUpdatesSession(t *testing.T) {
	env := newTestEnv(t)
	u := env.mock.AddUser("bob@example.com", "pw", "u-7")
	env.mock.SetProfile(backend.Profile{ID: "p-7", UserID: "u-7", Email: u.Email, Role: backend.RoleUser})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.sessions.Run(ctx)

	env.mock.PushEvent(backend.EventSignedIn, &backend.SessionInfo{User: u})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.sessions.Snapshot().IsAuthenticated {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, body := env.do(t, http.MethodGet, "/api/session", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var s session.Session
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if !s.IsAuthenticated || s.User == nil || s.User.ID != "u-7" {
		t.Fatalf("session not authenticated after push event: %s", body)
	}
}

func TestCSRFRejectsCrossOriginPost(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{"email": "x", "password": "y"})
	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/api/auth/signin", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.test")

	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, liveVideo("live-1"), vodVideo("vod-1"), vodVideo("vod-2"))

	resp, body := env.do(t, http.MethodGet, "/api/videos/", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list struct {
		Videos []catalog.Video `json:"videos"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Videos) != 3 {
		t.Fatalf("got %d videos, want 3", len(list.Videos))
	}

	resp, body = env.do(t, http.MethodGet, "/api/videos/live", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("live status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Videos) != 1 || list.Videos[0].ID != "live-1" {
		t.Fatalf("unexpected live list: %s", body)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/videos/missing", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing video status = %d, want 404", resp.StatusCode)
	}
}

func TestCatalogMutationRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	v := vodVideo("vod-new")

	resp, _ := env.do(t, http.MethodPost, "/api/videos/", v, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tokenless status = %d, want 401", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/videos/", v, map[string]string{"X-API-Token": "admin-secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin create status = %d, want 200", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/videos/vod-new", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatal("created video must be readable")
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/videos/vod-new", nil, map[string]string{"X-API-Token": "admin-secret"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
}

func TestPlayerFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t, liveVideo("live-1"), vodVideo("vod-1"))

	resp, body := env.do(t, http.MethodGet, "/api/player/", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("player state status = %d", resp.StatusCode)
	}
	var view struct {
		Phase string `json:"phase"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.Phase != "main_playing" {
		t.Fatalf("initial phase = %q, want main_playing", view.Phase)
	}

	// Send the live stream into the mini player.
	resp, body = env.do(t, http.MethodPost, "/api/player/minimize-main", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("minimize status = %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.Phase != "minimized" {
		t.Fatalf("phase after minimize = %q, want minimized", view.Phase)
	}

	resp, body = env.do(t, http.MethodPost, "/api/player/close-mini", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close-mini status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.Phase != "closed_with_recall" {
		t.Fatalf("phase after close = %q, want closed_with_recall", view.Phase)
	}

	// Closing again has no visible mini player and is refused.
	resp, _ = env.do(t, http.MethodPost, "/api/player/close-mini", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double close status = %d, want 409", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/api/player/reopen-mini", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reopen status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.Phase != "minimized" {
		t.Fatalf("phase after reopen = %q, want minimized", view.Phase)
	}
}

func TestPlayerSelectVodDemotesLive(t *testing.T) {
	env := newTestEnv(t, liveVideo("live-1"), vodVideo("vod-1"))

	resp, body := env.do(t, http.MethodPost, "/api/player/select", map[string]string{"videoId": "vod-1"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status = %d: %s", resp.StatusCode, body)
	}
	var view struct {
		Phase     string         `json:"phase"`
		MainVideo *catalog.Video `json:"mainVideo"`
		MiniVideo *catalog.Video `json:"miniPlayerVideo"`
		MiniShown bool           `json:"miniPlayerVisible"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.MainVideo == nil || view.MainVideo.ID != "vod-1" {
		t.Fatalf("main = %+v, want vod-1", view.MainVideo)
	}
	if !view.MiniShown || view.MiniVideo == nil || view.MiniVideo.ID != "live-1" {
		t.Fatalf("mini = %+v shown=%v, want live-1 visible", view.MiniVideo, view.MiniShown)
	}
	if view.Phase != "main_playing" {
		t.Fatalf("phase = %q, want main_playing", view.Phase)
	}
}

func TestPlayerSelectUnknownVideo(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/player/select", map[string]string{"videoId": "ghost"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestVisibilityValidation(t *testing.T) {
	env := newTestEnv(t, liveVideo("live-1"))

	resp, _ := env.do(t, http.MethodPost, "/api/player/visibility", map[string]float64{"ratio": 1.5}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/player/visibility", map[string]float64{"ratio": 0.1}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAnalyticsRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/analytics/save", map[string]string{"videoId": "vod-1"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("guest save status = %d, want 401: %s", resp.StatusCode, body)
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	// Rebuild a server without an API token.
	cfg := config.Defaults("test")
	cfg.Backend.BaseURL = env.mock.URL
	cfg.APIToken = ""
	cfg.RateLimitEnabled = false
	srv := NewServer(cfg, Deps{
		Sessions:  env.sessions,
		Players:   player.NewRegistry(player.RegistryOptions{Catalog: env.catalog, Users: env.sessions, Threshold: 0.3}),
		Catalog:   env.catalog,
		Analytics: analytics.NewService(backend.New(config.BackendConfig{BaseURL: env.mock.URL, Timeout: time.Second, EventsPoll: time.Second}), env.sessions),
	})
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(vodVideo("x"))
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/videos/", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", ts.URL)
	req.Header.Set("X-API-Token", "anything")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestEventsStreamInitialSnapshot(t *testing.T) {
	env := newTestEnv(t, liveVideo("live-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	var sawSession, sawPlayer bool
	for i := 0; i < 12 && !(sawSession && sawPlayer); i++ {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if strings.HasPrefix(line, "event: session") {
			sawSession = true
		}
		if strings.HasPrefix(line, "event: player") {
			sawPlayer = true
		}
	}
	if !sawSession || !sawPlayer {
		t.Fatalf("initial snapshot incomplete: session=%v player=%v", sawSession, sawPlayer)
	}
	cancel()
}

func TestHubNavigateBroadcast(t *testing.T) {
	hub := NewHub()
	id, ch := hub.subscribe()
	defer hub.unsubscribe(id)

	hub.NavigateTo("/admin")

	select {
	case ev := <-ch:
		if ev.name != "navigate" {
			t.Fatalf("event = %q, want navigate", ev.name)
		}
		data, _ := ev.data.(map[string]string)
		if data["path"] != "/admin" {
			t.Fatalf("path = %q", data["path"])
		}
	case <-time.After(time.Second):
		t.Fatal("navigate event not delivered")
	}
}

func TestSeedExportEndpoint(t *testing.T) {
	env := newTestEnv(t, vodVideo("vod-1"))

	resp, body := env.do(t, http.MethodPost, "/api/admin/seed/export", nil, map[string]string{"X-API-Token": "admin-secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out["path"] == "" {
		t.Fatal("expected export path in response")
	}
}
