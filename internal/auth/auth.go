// Package auth issues and verifies HS256 bearer tokens and guards HTTP
// routes with them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie that carries the token for browser clients.
const CookieName = "token"

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 1000 * time.Hour

var (
	ErrMissingSecret = errors.New("JWT secret is required")

	// ErrUnauthorized is wrapped by every token failure.
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingToken = fmt.Errorf("%w: missing token", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
)

// Claims is the token payload.
type Claims struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl selects DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for the user.
func (i *Issuer) Issue(userID uint, username string) (string, error) {
	now := i.now()
	claims := Claims{
		ID:       userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its claims. Any failure wraps ErrInvalidToken.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

// NewCookie returns the httpOnly cookie that carries token.
func (i *Issuer) NewCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(time.Hour.Seconds()),
	}
}

type contextKey string

const claimsContextKey contextKey = "stickynotes_auth_claims"

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// FromContext returns the claims stored by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok && c != nil
}

// DenyFunc writes the response for a rejected request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

// Middleware requires a valid token on every request. The token is read from
// "Authorization: Bearer <token>", then from the token cookie. A missing
// token is answered with 401 and an invalid one with 403. A nil deny writes
// the plain status text.
func Middleware(issuer *Issuer, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, _ error) {
			http.Error(w, http.StatusText(status), status)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				deny(w, r, http.StatusUnauthorized, ErrMissingToken)
				return
			}
			claims, err := issuer.Verify(token)
			if err != nil {
				deny(w, r, http.StatusForbidden, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
