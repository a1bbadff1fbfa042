package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem provides an Idempotency-Key middleware backed by Redis. Completed
// responses are stored and replayed for repeated keys from the same caller.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}

func idemKey(r *http.Request, header string) string {
	scope := "anonymous"
	if id, ok := UserID(r.Context()); ok {
		scope = id.String()
	}
	return "idem:" + Sha256Hex(scope, r.Method, r.URL.Path, header)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := idemKey(r, header)

		if replayed, err := i.replay(ctx, w, key); err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		} else if replayed {
			return
		}

		ok, err := i.R.SetNX(ctx, key+":lock", "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "request with this key is in progress", nil)
			return
		}

		rec := &recorder{ResponseWriter: w}
		completed := false
		defer func() {
			// a failed or panicking request releases the key so the client may retry
			if !completed || rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(context.Background(), key+":lock").Err()
				return
			}
			payload, err := json.Marshal(storedResponse{Status: rec.status, Body: rec.buf.Bytes()})
			if err != nil {
				return
			}
			_ = i.R.Set(context.Background(), key+":resp", payload, i.TTL).Err()
		}()
		next.ServeHTTP(rec, r)
		completed = true
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) (bool, error) {
	raw, err := i.R.Get(ctx, key+":resp").Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return false, nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return true, nil
}
