package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Write(rec, http.StatusCreated, "req-1", Body{"noteId": 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := decode(t, rec)
	if body["requestId"] != "req-1" {
		t.Errorf("expected requestId req-1, got %v", body["requestId"])
	}
	if body["noteId"] != float64(5) {
		t.Errorf("expected noteId 5, got %v", body["noteId"])
	}
}

func TestWriteNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Write(rec, http.StatusOK, "req-2", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decode(t, rec)["requestId"] != "req-2" {
		t.Error("expected requestId in body")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		detail    string
		wantError bool
	}{
		{"With detail", "boom", true},
		{"Without detail", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, http.StatusInternalServerError, "r", "Failed to get notes", tt.detail); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			body := decode(t, rec)
			if body["message"] != "Failed to get notes" {
				t.Errorf("unexpected message %v", body["message"])
			}
			_, has := body["error"]
			if has != tt.wantError {
				t.Errorf("error field present = %v, want %v", has, tt.wantError)
			}
		})
	}
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteMessage(rec, http.StatusNotFound, "r", "Note not found"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if decode(t, rec)["message"] != "Note not found" {
		t.Error("unexpected message")
	}
}
