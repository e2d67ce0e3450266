package handlers

import (
	"errors"
	"net/http"

	"github.com/nlstn/go-stickynotes/internal/auth"
	"github.com/nlstn/go-stickynotes/internal/filter"
	"github.com/nlstn/go-stickynotes/internal/notes"
	"github.com/nlstn/go-stickynotes/internal/observability"
	"github.com/nlstn/go-stickynotes/internal/response"
	"github.com/nlstn/go-stickynotes/internal/users"
)

var (
	errMalformedBody = errors.New("malformed request body")
	errInvalidNoteID = errors.New("invalid note id")
)

// clientErrors maps sentinel errors to a status and the message sent to clients.
var clientErrors = []struct {
	target  error
	status  int
	message string
}{
	{notes.ErrNotFound, http.StatusNotFound, "Note not found"},
	{notes.ErrInvalidCategory, http.StatusBadRequest, "Invalid category"},
	{users.ErrNotFound, http.StatusNotFound, "User not found"},
	{users.ErrUserExists, http.StatusBadRequest, "User already exists"},
	{users.ErrMissingCredentials, http.StatusBadRequest, "Please provide username and password"},
	{users.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{auth.ErrMissingToken, http.StatusUnauthorized, "Unauthorized"},
	{auth.ErrInvalidToken, http.StatusForbidden, "Forbidden"},
	{errMalformedBody, http.StatusBadRequest, "Malformed request body"},
	{errInvalidNoteID, http.StatusBadRequest, "Invalid note id"},
}

// statusFor maps err to an HTTP status code and client message.
func statusFor(err error) (int, string) {
	var fe *filter.FilterError
	if errors.As(err, &fe) {
		return http.StatusBadRequest, "Invalid OData filter"
	}
	for _, ce := range clientErrors {
		if errors.Is(err, ce.target) {
			return ce.status, ce.message
		}
	}
	return http.StatusInternalServerError, ""
}

// fail writes the response for err. Server errors are logged and reported
// with fallback as the message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, message := statusFor(err)

	var fe *filter.FilterError
	switch {
	case errors.As(err, &fe):
		h.log(r).Debug("invalid filter", observability.LogFieldFilter, fe.Filter, observability.LogFieldError, err)
		h.write(w, r, status, response.Body{
			"message": message,
			"error":   err.Error(),
			"filter":  fe.Filter,
		})
	case status == http.StatusInternalServerError:
		h.log(r).Error(fallback, observability.LogFieldError, err)
		h.checkWrite(r, response.WriteError(w, status, RequestIDFromContext(r.Context()), fallback, err.Error()))
	default:
		h.message(w, r, status, message)
	}
}
