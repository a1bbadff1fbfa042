// Package audit records administrative mutations as structured log entries.
package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/obs"
)

// Recorder logs one "audit" entry per admin write once the handler returns.
type Recorder struct {
	Logger zerolog.Logger
}

// Middleware wraps an admin route. action names the operation, e.g.
// "order.status"; resourceParam is the chi URL param holding the target id.
func (a Recorder) Middleware(action, resourceParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			rec := obs.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			logger := obs.Logger(r.Context(), a.Logger)
			evt := logger.Info()
			if rec.Status() >= http.StatusBadRequest {
				evt = logger.Warn()
			}
			evt = evt.Str("audit", action).
				Str("method", r.Method).
				Int("status", rec.Status()).
				Str("role", common.Role(r.Context()))
			if user, ok := common.UserID(r.Context()); ok {
				evt = evt.Str("actor_id", user.String())
			}
			if resourceParam != "" {
				evt = evt.Str("resource_id", chi.URLParam(r, resourceParam))
			}
			evt.Msg("admin action")
		})
	}
}
