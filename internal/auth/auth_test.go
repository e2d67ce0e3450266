package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-bytes-long-xxxxx"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return iss
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	iss, err := NewIssuer("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, iss.ttl)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	iss := newTestIssuer(t)

	token, err := iss.Issue(7, "alice")
	require.NoError(t, err)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.ID)
	assert.Equal(t, "alice", claims.Username)
	require.NotNil(t, claims.ExpiresAt)
}

func TestVerifyRejects(t *testing.T) {
	iss := newTestIssuer(t)
	good, err := iss.Issue(1, "a")
	require.NoError(t, err)

	other, err := NewIssuer("another-secret", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue(1, "a")
	require.NoError(t, err)

	expired := newTestIssuer(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue(1, "a")
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "a",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"id":  1,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not-a-token"},
		{"Tampered", good + "x"},
		{"Wrong secret", foreign},
		{"Expired", stale},
		{"No expiry", noExp},
		{"No user id", noID},
		{"Other algorithm", hs512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMiddleware(t *testing.T) {
	iss := newTestIssuer(t)
	token, err := iss.Issue(3, "carol")
	require.NoError(t, err)

	var seen *Claims
	protected := Middleware(iss, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		status  int
	}{
		{"No token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"Non-bearer scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized},
		{"Invalid bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusForbidden},
		{"Valid bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"Lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, http.StatusOK},
		{"Cookie fallback", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/notes/list", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, uint(3), seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestMiddlewareCustomDeny(t *testing.T) {
	iss := newTestIssuer(t)
	var gotErr error
	deny := func(w http.ResponseWriter, _ *http.Request, status int, err error) {
		gotErr = err
		w.WriteHeader(status)
	}
	h := Middleware(iss, deny)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.ErrorIs(t, gotErr, ErrMissingToken)
}

func TestFromContextEmpty(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestNewCookie(t *testing.T) {
	c := newTestIssuer(t).NewCookie("tok", true)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}
