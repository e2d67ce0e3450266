package stickynotes

import (
	"github.com/nlstn/go-stickynotes/internal/auth"
	"github.com/nlstn/go-stickynotes/internal/filter"
	"github.com/nlstn/go-stickynotes/internal/notes"
	"github.com/nlstn/go-stickynotes/internal/users"
)

// Sentinel errors returned by the service. They can be used with errors.Is().
var (
	// ErrNoteNotFound indicates the note does not exist or belongs to
	// another user. Maps to HTTP 404 Not Found.
	ErrNoteNotFound = notes.ErrNotFound

	// ErrInvalidFilter matches every *FilterError. Maps to HTTP 400 Bad Request.
	ErrInvalidFilter = filter.ErrInvalidFilter

	// ErrInvalidCategory indicates a category outside Categories.
	// Maps to HTTP 400 Bad Request.
	ErrInvalidCategory = notes.ErrInvalidCategory

	// ErrUnauthorized indicates a missing or invalid token.
	// Maps to HTTP 401 Unauthorized or 403 Forbidden.
	ErrUnauthorized = auth.ErrUnauthorized

	// ErrUserExists indicates the username is taken. Maps to HTTP 400 Bad Request.
	ErrUserExists = users.ErrUserExists

	// ErrInvalidCredentials indicates a wrong username or password.
	// Maps to HTTP 401 Unauthorized.
	ErrInvalidCredentials = users.ErrInvalidCredentials
)

// Categories lists the categories a note may carry.
var Categories = notes.Categories
