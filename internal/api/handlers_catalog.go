// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/lumeotv/portald/internal/catalog"
)

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"videos": videos})
}

func (s *Server) handleLiveVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.Live(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"videos": videos})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	v, err := s.catalog.VideoByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "video not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleSaveVideo(w http.ResponseWriter, r *http.Request) {
	var v catalog.Video
	if !decodeJSON(w, r, &v) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		v.ID = id
	}
	if v.ID == "" {
		writeError(w, r, http.StatusBadRequest, "video id is required")
		return
	}
	if err := s.catalog.Save(r.Context(), v); err != nil {
		writeError(w, r, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.catalog.CacheStats())
}

func (s *Server) handleSeedExport(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.Catalog.SeedPath
	if path == "" {
		path = filepath.Join(s.cfg.DataDir, "catalog-seed.json")
	}
	if err := s.catalog.ExportSeed(r.Context(), path); err != nil {
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"path": path})
}
