package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/config"
)

func newTokens(t *testing.T) *Tokens {
	t.Helper()
	tokens, err := NewTokens(config.AuthConfig{JWTSecret: "test-secret", Issuer: "storefront", AccessTokenTTL: time.Minute})
	require.NoError(t, err)
	return tokens
}

func TestIssueAndParse(t *testing.T) {
	tokens := newTokens(t)
	user := uuid.New()

	signed, expiresAt, err := tokens.Issue(user, common.RoleAdmin)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, user, claims.UserID)
	require.Equal(t, common.RoleAdmin, claims.Role)
}

func TestParseRejectsBadTokens(t *testing.T) {
	tokens := newTokens(t)
	user := uuid.New()

	expired := newTokens(t)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Issue(user, "")
	require.NoError(t, err)

	otherIssuer, err := NewTokens(config.AuthConfig{JWTSecret: "test-secret", Issuer: "elsewhere"})
	require.NoError(t, err)
	foreign, _, err := otherIssuer.Issue(user, "")
	require.NoError(t, err)

	otherKey, err := NewTokens(config.AuthConfig{JWTSecret: "another-secret", Issuer: "storefront"})
	require.NoError(t, err)
	forged, _, err := otherKey.Issue(user, common.RoleAdmin)
	require.NoError(t, err)

	raw, err := jwt.NewBuilder().Subject("not-a-uuid").Issuer("storefront").Expiration(time.Now().Add(time.Minute)).Build()
	require.NoError(t, err)
	badSubject, err := jwt.Sign(raw, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	require.NoError(t, err)

	unsigned, err := jwt.Sign(raw, jwt.WithInsecureNoSignature())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "abc.def.ghi",
		"expired":   old,
		"issuer":    foreign,
		"signature": forged,
		"subject":   string(badSubject),
		"alg none":  string(unsigned),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(token)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
		})
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	_, err := NewTokens(config.AuthConfig{})
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	tokens := newTokens(t)
	m := Middleware{Tokens: tokens}
	user := uuid.New()
	customer, _, err := tokens.Issue(user, "customer")
	require.NoError(t, err)
	admin, _, err := tokens.Issue(user, common.RoleAdmin)
	require.NoError(t, err)

	var seen uuid.UUID
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	serve := func(h http.Handler, token string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusUnauthorized, serve(m.RequireAuth(ok), ""))
	require.Equal(t, http.StatusUnauthorized, serve(m.RequireAuth(ok), "nope"))
	require.Equal(t, http.StatusNoContent, serve(m.RequireAuth(ok), customer))
	require.Equal(t, user, seen)

	adminOnly := m.RequireAuth(RequireRole(common.RoleAdmin)(ok))
	require.Equal(t, http.StatusForbidden, serve(adminOnly, customer))
	require.Equal(t, http.StatusNoContent, serve(adminOnly, admin))

	seen = uuid.Nil
	require.Equal(t, http.StatusNoContent, serve(m.Authenticate(ok), ""))
	require.Equal(t, uuid.Nil, seen)
	require.Equal(t, http.StatusNoContent, serve(m.Authenticate(ok), "nope"))
}
