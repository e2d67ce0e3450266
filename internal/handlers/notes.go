package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nlstn/go-stickynotes/internal/auth"
	"github.com/nlstn/go-stickynotes/internal/etag"
	"github.com/nlstn/go-stickynotes/internal/notes"
	"github.com/nlstn/go-stickynotes/internal/response"
)

// userID returns the authenticated user. Routes under /notes always run
// behind auth.Middleware, so the claims are present.
func userID(r *http.Request) uint {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.ID
}

func noteID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidNoteID, raw)
	}
	return uint(id), nil
}

// queryInt parses a positive integer query parameter. Missing or malformed
// values yield 0 so the store applies its default.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	var in notes.NoteInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err, "Error creating note")
		return
	}
	note, err := h.notes.Create(r.Context(), userID(r), in)
	if err != nil {
		h.fail(w, r, err, "Error creating note")
		return
	}
	w.Header().Set("ETag", etag.Generate(note.ID, note.UpdatedAt))
	h.write(w, r, http.StatusCreated, response.Body{
		"message": "Note created successfully",
		"noteId":  note.ID,
	})
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	page, err := h.notes.List(r.Context(), userID(r), notes.ListOptions{
		Filter: r.URL.Query().Get("$filter"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err, "Error fetching notes")
		return
	}
	h.write(w, r, http.StatusOK, response.Body{
		"notes":       page.Notes,
		"currentPage": page.CurrentPage,
		"totalPages":  page.TotalPages,
		"totalNotes":  page.TotalNotes,
		"hasMore":     page.HasMore,
	})
}

type noteResponse struct {
	RequestID string `json:"requestId"`
	*notes.Note
}

func (h *Handler) getNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		h.fail(w, r, err, "Error fetching note")
		return
	}
	note, err := h.notes.Get(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err, "Error fetching note")
		return
	}

	tag := etag.Generate(note.ID, note.UpdatedAt)
	w.Header().Set("ETag", tag)
	if !etag.NoneMatch(r.Header.Get("If-None-Match"), tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if err := response.WriteJSON(w, http.StatusOK, noteResponse{
		RequestID: RequestIDFromContext(r.Context()),
		Note:      note,
	}); err != nil {
		h.checkWrite(r, err)
	}
}

func (h *Handler) updateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		h.fail(w, r, err, "Error updating note")
		return
	}
	var patch notes.NotePatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, r, err, "Error updating note")
		return
	}

	uid := userID(r)
	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		current, err := h.notes.Get(r.Context(), uid, id)
		if err != nil {
			h.fail(w, r, err, "Error updating note")
			return
		}
		if !etag.Match(ifMatch, etag.Generate(current.ID, current.UpdatedAt)) {
			h.message(w, r, http.StatusPreconditionFailed, "Note was modified")
			return
		}
	}

	note, err := h.notes.Update(r.Context(), uid, id, patch)
	if err != nil {
		h.fail(w, r, err, "Error updating note")
		return
	}
	w.Header().Set("ETag", etag.Generate(note.ID, note.UpdatedAt))
	h.message(w, r, http.StatusOK, "Note updated successfully")
}

func (h *Handler) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		h.fail(w, r, err, "Error deleting note")
		return
	}
	if err := h.notes.Delete(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err, "Error deleting note")
		return
	}
	h.message(w, r, http.StatusOK, "Note deleted successfully")
}

type batchRequest struct {
	Updates json.RawMessage `json:"updates"`
}

func (h *Handler) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err, "Error processing batch update")
		return
	}

	var items []notes.BatchItem
	if kind := jsonKind(req.Updates); kind != "array" {
		h.write(w, r, http.StatusBadRequest, response.Body{
			"message":  "Invalid batch format - expected array of updates",
			"received": kind,
		})
		return
	}
	if err := json.Unmarshal(req.Updates, &items); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errMalformedBody, err), "Error processing batch update")
		return
	}

	result, err := h.notes.BatchUpdate(r.Context(), userID(r), items)
	if err != nil {
		h.fail(w, r, err, "Error processing batch update")
		return
	}
	h.write(w, r, http.StatusMultiStatus, response.Body{
		"message":         "Batch update processed",
		"totalUpdates":    len(items),
		"successfulNotes": result.Successful,
		"failedNotes":     result.Failed,
	})
}

// jsonKind names the JSON type of raw the way JavaScript's typeof would,
// with arrays reported as "array".
func jsonKind(raw json.RawMessage) string {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return "array"
		case '{', 'n':
			return "object"
		case '"':
			return "string"
		case 't', 'f':
			return "boolean"
		default:
			return "number"
		}
	}
	return "undefined"
}
