// Package auth verifies bearer tokens and scopes requests to a user and role.
// Tokens are HS256 JWTs carrying the user id in sub and the role in a
// private claim; login itself lives outside this service.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/config"
)

const roleClaim = "role"

// Claims are the verified contents of an access token.
type Claims struct {
	UserID    uuid.UUID
	Role      string
	ExpiresAt time.Time
}

// Tokens issues and verifies access tokens.
type Tokens struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

// NewTokens builds a Tokens from configuration.
func NewTokens(cfg config.AuthConfig) (*Tokens, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Tokens{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		ttl:       ttl,
		clockSkew: 30 * time.Second,
		now:       time.Now,
	}, nil
}

// Issue signs a token for user with role.
func (t *Tokens) Issue(user uuid.UUID, role string) (string, time.Time, error) {
	if user == uuid.Nil {
		return "", time.Time{}, errors.New("auth: user id is required")
	}
	now := t.now()
	expiresAt := now.Add(t.ttl)
	builder := jwt.NewBuilder().
		Subject(user.String()).
		IssuedAt(now).
		NotBefore(now.Add(-t.clockSkew)).
		Expiration(expiresAt)
	if t.issuer != "" {
		builder = builder.Issuer(t.issuer)
	}
	if role != "" {
		builder = builder.Claim(roleClaim, role)
	}
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func unauthorized(err error) error {
	return common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
}

// Parse verifies the signature and registered claims of token.
func (t *Tokens) Parse(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := tokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, unauthorized(err)
	}
	if algorithm != jwa.HS256 {
		return Claims{}, unauthorized(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, t.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(t.now)),
		jwt.WithAcceptableSkew(t.clockSkew),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseString(trimmed, opts...)
	if err != nil {
		return Claims{}, unauthorized(err)
	}
	user, err := uuid.Parse(parsed.Subject())
	if err != nil || user == uuid.Nil {
		return Claims{}, unauthorized(errors.New("auth: subject is not a user id"))
	}
	claims := Claims{UserID: user, ExpiresAt: parsed.Expiration()}
	if v, ok := parsed.Get(roleClaim); ok {
		role, _ := v.(string)
		claims.Role = role
	}
	return claims, nil
}

// tokenAlgorithm reads the alg header, rejecting unsigned and mixed tokens.
func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		switch {
		case alg == "":
			return "", errors.New("auth: token missing algorithm")
		case alg == jwa.NoSignature:
			return "", errors.New("auth: token uses none algorithm")
		case algorithm != "" && algorithm != alg:
			return "", errors.New("auth: mixed token algorithms detected")
		}
		algorithm = alg
	}
	return algorithm, nil
}
