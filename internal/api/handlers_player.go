// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/player"
)

type playerResponse struct {
	Accepted bool `json:"accepted"`
	playerView
}

func (s *Server) respondPlayer(w http.ResponseWriter, r *http.Request, c *player.Controller, accepted bool) {
	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	writeJSON(w, r, status, playerResponse{Accepted: accepted, playerView: viewOf(c.Snapshot())})
}

func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	c := s.players.Get(r.Context(), viewerID(r))
	writeJSON(w, r, http.StatusOK, viewOf(c.Snapshot()))
}

func (s *Server) handlePlayerSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoID string `json:"videoId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := s.catalog.VideoByID(r.Context(), req.VideoID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "video not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	c := s.players.Get(r.Context(), viewerID(r))
	s.respondPlayer(w, r, c, c.SelectVideo(r.Context(), *v))
}

func (s *Server) handlePlayerVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ratio float64 `json:"ratio"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Ratio < 0 || req.Ratio > 1 {
		writeError(w, r, http.StatusBadRequest, "ratio must be within [0,1]")
		return
	}
	c := s.players.Get(r.Context(), viewerID(r))
	c.ObserveVisibility(req.Ratio)
	writeJSON(w, r, http.StatusOK, viewOf(c.Snapshot()))
}

// playerAction adapts a guard-checked controller transition to a handler.
func (s *Server) playerAction(fn func(*player.Controller) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := s.players.Get(r.Context(), viewerID(r))
		s.respondPlayer(w, r, c, fn(c))
	}
}

func (s *Server) handlePlayerMaximize(w http.ResponseWriter, r *http.Request) {
	c := s.players.Get(r.Context(), viewerID(r))
	s.respondPlayer(w, r, c, c.MaximizeMiniPlayer(r.Context()))
}

func (s *Server) handlePlayerToggleSound(w http.ResponseWriter, r *http.Request) {
	c := s.players.Get(r.Context(), viewerID(r))
	c.ToggleSound()
	writeJSON(w, r, http.StatusOK, viewOf(c.Snapshot()))
}

func (s *Server) handlePlayerInteracted(w http.ResponseWriter, r *http.Request) {
	c := s.players.Get(r.Context(), viewerID(r))
	c.MarkInteracted()
	writeJSON(w, r, http.StatusOK, viewOf(c.Snapshot()))
}
