package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/trackboard/trackboard/internal/creds"
)

type contextKey string

const sessionKey contextKey = "session"

// sessionFrom returns the session stored by the gate middleware. Only
// reachable behind requireSession/requireSessionJSON, so never nil there.
func sessionFrom(ctx context.Context) *creds.Session {
	s, _ := ctx.Value(sessionKey).(*creds.Session)
	return s
}

// requireSession gates browser routes: without a cached API key the user is
// sent to the key-entry page.
func (h *Handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(r)
		if err != nil {
			h.logger.Error("session lookup failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if s == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

// requireSessionJSON gates API routes with a 401 instead of a redirect
func (h *Handlers) requireSessionJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(r)
		if err != nil {
			h.logger.Error("session lookup failed", "error", err)
			h.sendError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if s == nil {
			h.sendError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

// loggingMiddleware logs HTTP requests
func (h *Handlers) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
