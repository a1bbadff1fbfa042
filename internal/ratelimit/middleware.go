package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-storefront/internal/common"
)

// Handler enforces a limit before delegating to the next handler.
type Handler struct {
	Limiter *limiter.Limiter
	// Scope namespaces keys so separate endpoints keep separate budgets.
	Scope string
	// Key derives the caller key; ByUser is used when nil.
	Key     func(*http.Request) string
	OnError func(error)
	now     func() time.Time
}

// ByUser keys authenticated callers by user id and anonymous ones by client IP.
func ByUser(r *http.Request) string {
	if user, ok := common.UserID(r.Context()); ok {
		return "user:" + user.String()
	}
	return "ip:" + common.ClientIP(r)
}

// Middleware implements the http.Handler middleware interface. Store errors
// let the request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	keyFn := h.Key
	if keyFn == nil {
		keyFn = ByUser
	}
	now := h.now
	if now == nil {
		now = time.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		res, err := h.Limiter.Get(r.Context(), h.Scope+":"+keyFn(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

		if res.Reached {
			retryAfter := res.Reset - now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
