// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lumeotv/portald/internal/log"
)

// ViewerCookie identifies a browser across requests so the player session
// survives page reloads.
const ViewerCookie = "portald_viewer"

type viewerKey struct{}

// viewerSession assigns a stable viewer id via cookie. The id keys the
// player controller registry and the log context.
func (s *Server) viewerSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(ViewerCookie); err == nil && c.Value != "" {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     ViewerCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), viewerKey{}, id)
		ctx = log.ContextWithViewerID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func viewerID(r *http.Request) string {
	id, _ := r.Context().Value(viewerKey{}).(string)
	return id
}
