// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
)

func (s *Server) handleAnalyticsSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoID string `json:"videoId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, s.analytics.SaveVideo(r.Context(), req.VideoID))
}

func (s *Server) handleAnalyticsSaved(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.analytics.SavedVideos(r.Context()))
}

func (s *Server) handleAnalyticsProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoID  string  `json:"videoId"`
		Progress float64 `json:"progress"`
		Duration float64 `json:"duration"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, s.analytics.UpdateWatchProgress(r.Context(), req.VideoID, req.Progress, req.Duration))
}

func (s *Server) handleAnalyticsMe(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.analytics.UserAnalytics(r.Context()))
}
