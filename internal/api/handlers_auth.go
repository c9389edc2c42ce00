// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
)

type credentialsRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := s.sessions.SignIn(r.Context(), req.Email, req.Password)
	if res.Success {
		s.hub.BroadcastSession(s.sessions.Snapshot())
	}
	writeResult(w, r, res)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, s.sessions.SignUp(r.Context(), req.Email, req.Password, req.Fields))
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, s.sessions.SignInWithMagicLink(r.Context(), req.Email))
}

func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, s.sessions.SignInWithOAuth(r.Context(), req.Provider))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	res := s.sessions.SignOut(r.Context())
	if res.Success {
		s.hub.BroadcastSession(s.sessions.Snapshot())
	}
	writeResult(w, r, res)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, r, s.sessions.ResetPassword(r.Context(), req.Email))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.sessions.Snapshot())
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decodeJSON(w, r, &fields) {
		return
	}
	res := s.sessions.UpdateProfile(r.Context(), fields)
	if res.Success {
		s.hub.BroadcastSession(s.sessions.Snapshot())
	}
	writeResult(w, r, res)
}
