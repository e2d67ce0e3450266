package notes

import "errors"

var (
	// ErrNotFound is returned when a note does not exist or belongs to another user.
	ErrNotFound = errors.New("note not found")

	// ErrInvalidCategory is returned when a category is not one of Categories.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrUnknownProperty is returned when a $filter names a property that is
	// not a filterable note column.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrMissingNoteID marks a batch item without a noteId.
	ErrMissingNoteID = errors.New("missing noteId in batch update")
)
