// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lumeotv/portald/internal/metrics"
	"github.com/lumeotv/portald/internal/player"
	"github.com/lumeotv/portald/internal/session"
)

type sseEvent struct {
	name string
	data any
}

// Hub fans session-level events out to every connected SSE client. It is the
// navigation target of the session manager; a navigate push replaces the
// in-browser redirect of a classic web app.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan sseEvent
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan sseEvent)}
}

// NavigateTo broadcasts a navigation instruction to all clients.
func (h *Hub) NavigateTo(path string) {
	h.broadcast(sseEvent{name: "navigate", data: map[string]string{"path": path}})
}

// BroadcastSession pushes a fresh session snapshot to all clients.
func (h *Hub) BroadcastSession(s session.Session) {
	h.broadcast(sseEvent{name: "session", data: s})
}

func (h *Hub) broadcast(ev sseEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow clients miss broadcasts rather than block the hub.
		}
	}
}

func (h *Hub) subscribe() (int, <-chan sseEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan sseEvent, 16)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// playerView pairs the raw state with its derived phase so clients never
// re-derive it.
type playerView struct {
	player.State
	Phase player.Phase `json:"phase"`
}

func viewOf(st player.State) playerView {
	return playerView{State: st, Phase: st.Phase()}
}

// handleEvents streams session and player updates over SSE. The initial
// snapshot is sent immediately so clients render without a second request.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctrl := s.players.Get(r.Context(), viewerID(r))
	sub := ctrl.Subscribe()
	defer sub.Close()

	hubID, hubCh := s.hub.subscribe()
	defer s.hub.unsubscribe(hubID)

	metrics.IncSSEClients()
	defer metrics.DecSSEClients()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "session", s.sessions.Snapshot())
	writeSSE(w, "player", viewOf(ctrl.Snapshot()))
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-hubCh:
			if !ok {
				return
			}
			writeSSE(w, ev.name, ev.data)
			flusher.Flush()
		case st, ok := <-sub.C:
			if !ok {
				return
			}
			writeSSE(w, "player", viewOf(st))
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}
