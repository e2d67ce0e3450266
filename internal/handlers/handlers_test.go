package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nlstn/go-stickynotes/internal/auth"
	"github.com/nlstn/go-stickynotes/internal/filter"
	"github.com/nlstn/go-stickynotes/internal/notes"
	"github.com/nlstn/go-stickynotes/internal/users"
)

type testServer struct {
	router http.Handler
	issuer *auth.Issuer
	token  string
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	notesStore := notes.NewStore(db)
	usersStore := users.NewStore(db, users.WithCost(bcrypt.MinCost))
	require.NoError(t, notesStore.Migrate(context.Background()))
	require.NoError(t, usersStore.Migrate(context.Background()))

	issuer, err := auth.NewIssuer("handler-test-secret", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue(1, "alice")
	require.NoError(t, err)

	return &testServer{
		router: New(notesStore, usersStore, issuer, opts...).Router(),
		issuer: issuer,
		token:  token,
	}
}

// do sends a request, authenticated when token is non-empty.
func (s *testServer) do(t *testing.T, method, target, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (s *testServer) createNote(t *testing.T, in notes.NoteInput) uint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/notes", s.token, in, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint(decodeBody(t, rec)["noteId"].(float64))
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/test", "", nil, map[string]string{RequestIDHeader: "req-42"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "req-42", body["requestId"])

	rec = s.do(t, http.MethodGet, "/test", "", nil, nil)
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, decodeBody(t, rec)["requestId"])
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"username": "bob", "password": "hunter2"}

	rec := s.do(t, http.MethodPost, "/auth/signup", "", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "User created successfully", body["message"])
	assert.NotEmpty(t, body["token"])

	rec = s.do(t, http.MethodPost, "/auth/signup", "", creds, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"username": "carol"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "bob", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/auth/login", "", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, "Logged in successfully", body["message"])
	assert.Equal(t, "bob", body["username"])

	token, _ := body["token"].(string)
	claims, err := s.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignupMalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/auth/signup", "", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/notes/list", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["requestId"])

	rec = s.do(t, http.MethodGet, "/notes/list", "garbage", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotesCookieAuth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/notes/list", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: s.token})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoteLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, notes.NoteInput{Title: "Groceries", Category: "Work"})
	path := fmt.Sprintf("/notes/%d", id)

	rec := s.do(t, http.MethodGet, path, s.token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(tag, `W/"`), tag)
	body := decodeBody(t, rec)
	assert.Equal(t, "Groceries", body["title"])
	assert.Equal(t, "Work", body["category"])
	assert.NotEmpty(t, body["requestId"])
	assert.NotContains(t, body, "userId")

	rec = s.do(t, http.MethodGet, path, s.token, nil, map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	update := fmt.Sprintf("/notes/update/%d", id)
	rec = s.do(t, http.MethodPut, update, s.token, map[string]interface{}{"content": "milk"},
		map[string]string{"If-Match": `W/"stale"`})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = s.do(t, http.MethodPut, update, s.token, map[string]interface{}{"content": "milk", "pinned": true},
		map[string]string{"If-Match": tag})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Note updated successfully", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPut, update, s.token, map[string]interface{}{"category": "Nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, path, s.token, nil, nil)
	body = decodeBody(t, rec)
	assert.Equal(t, "milk", body["content"])
	assert.Equal(t, true, body["pinned"])
	assert.Equal(t, "Groceries", body["title"])

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/notes/delete/%d", id), s.token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Note deleted successfully", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/notes/delete/%d", id), s.token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Note not found", decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodGet, path, s.token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotesAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, notes.NoteInput{Title: "Private"})

	other, err := s.issuer.Issue(2, "mallory")
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/notes/%d", id), other, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/notes/delete/%d", id), other, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidNoteID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/notes/abc", s.token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/notes/delete/0", s.token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotes(t *testing.T) {
	s := newTestServer(t)
	s.createNote(t, notes.NoteInput{Title: "Groceries", Category: "Personal"})
	s.createNote(t, notes.NoteInput{Title: "Roadmap", Category: "Work"})
	s.createNote(t, notes.NoteInput{Title: "Standup", Category: "Work"})

	rec := s.do(t, http.MethodGet, "/notes/list?page=1&limit=2", s.token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Len(t, body["notes"], 2)
	assert.Equal(t, float64(1), body["currentPage"])
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Equal(t, float64(3), body["totalNotes"])
	assert.Equal(t, true, body["hasMore"])

	q := url.Values{"$filter": {"category eq 'Work' and contains(title, 'map')"}}
	rec = s.do(t, http.MethodGet, "/notes/list?"+q.Encode(), s.token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	require.Len(t, body["notes"], 1)
	assert.Equal(t, "Roadmap", body["notes"].([]interface{})[0].(map[string]interface{})["title"])
	assert.Equal(t, false, body["hasMore"])
}

func TestListNotesInvalidFilter(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		filter string
	}{
		{"incomplete comparison", "title eq"},
		{"unterminated string", "title eq 'abc"},
		{"unknown property", "password eq 'x'"},
		{"unsupported function", "substringof(title, 'x')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{"$filter": {tt.filter}}
			rec := s.do(t, http.MethodGet, "/notes/list?"+q.Encode(), s.token, nil, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, "Invalid OData filter", body["message"])
			assert.Equal(t, tt.filter, body["filter"])
			assert.Contains(t, body["error"], "filter parsing failed")
		})
	}
}

func TestBatchUpdate(t *testing.T) {
	s := newTestServer(t)
	a := s.createNote(t, notes.NoteInput{Title: "A"})
	b := s.createNote(t, notes.NoteInput{Title: "B"})

	payload := map[string]interface{}{
		"updates": []map[string]interface{}{
			{"noteId": a, "position": map[string]int{"x": 10, "y": 20}},
			{"noteId": b, "category": "Invalid"},
			{"noteId": 999, "title": "ghost"},
			{"title": "no id"},
		},
	}
	rec := s.do(t, http.MethodPost, "/notes/batch-update", s.token, payload, nil)
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Batch update processed", body["message"])
	assert.Equal(t, float64(4), body["totalUpdates"])
	assert.Equal(t, []interface{}{float64(a)}, body["successfulNotes"])
	assert.Len(t, body["failedNotes"], 3)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/notes/%d", a), s.token, nil, nil)
	pos := decodeBody(t, rec)["position"].(map[string]interface{})
	assert.Equal(t, float64(10), pos["x"])
	assert.Equal(t, float64(20), pos["y"])
}

func TestBatchUpdateRejectsNonArray(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		body     string
		received string
	}{
		{`{}`, "undefined"},
		{`{"updates": null}`, "object"},
		{`{"updates": {"noteId": 1}}`, "object"},
		{`{"updates": "all"}`, "string"},
		{`{"updates": 3}`, "number"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/notes/batch-update", s.token, tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, "Invalid batch format - expected array of updates", body["message"])
			assert.Equal(t, tt.received, body["received"])
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["requestId"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, WithCORSOrigins("http://localhost:3000"))
	req := httptest.NewRequest(http.MethodOptions, "/notes/list", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{&filter.FilterError{Filter: "x", Err: errors.New("bad")}, http.StatusBadRequest, "Invalid OData filter"},
		{fmt.Errorf("wrap: %w", notes.ErrNotFound), http.StatusNotFound, "Note not found"},
		{notes.ErrInvalidCategory, http.StatusBadRequest, "Invalid category"},
		{users.ErrUserExists, http.StatusBadRequest, "User already exists"},
		{users.ErrMissingCredentials, http.StatusBadRequest, "Please provide username and password"},
		{users.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{auth.ErrMissingToken, http.StatusUnauthorized, "Unauthorized"},
		{auth.ErrInvalidToken, http.StatusForbidden, "Forbidden"},
		{errors.New("disk full"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		status, message := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.message, message, tt.err.Error())
	}
}

func TestJSONKind(t *testing.T) {
	tests := map[string]string{
		"":        "undefined",
		"  [1]":   "array",
		"{}":      "object",
		"null":    "object",
		`"s"`:     "string",
		"true":    "boolean",
		"false":   "boolean",
		"-1.5":    "number",
		"\n\t 42": "number",
	}
	for in, want := range tests {
		assert.Equal(t, want, jsonKind(json.RawMessage(in)), in)
	}
}
