package notes

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nlstn/go-stickynotes/internal/observability"
)

// BatchItem is one entry of a batch update: a note ID plus the patch for it.
type BatchItem struct {
	NoteID uint `json:"noteId"`
	NotePatch
}

// BatchFailure describes a batch item that was not applied. NoteID is nil
// when the item did not name a note.
type BatchFailure struct {
	NoteID *uint  `json:"noteId"`
	Error  string `json:"error"`
}

// BatchResult reports the outcome of every item of a batch update.
type BatchResult struct {
	Successful []uint         `json:"successfulNotes"`
	Failed     []BatchFailure `json:"failedNotes"`
}

// BatchUpdate applies items inside a single transaction. Items fail on their
// own (missing ID, unknown note, invalid category) without aborting the rest.
// A database error rolls back the whole batch and is returned.
func (s *Store) BatchUpdate(ctx context.Context, userID uint, items []BatchItem) (*BatchResult, error) {
	ctx, span := s.tracer.StartNotesOperation(ctx, observability.OpBatchUpdate, userID)
	defer span.End()
	span.SetAttributes(observability.BatchSizeAttr(len(items)))
	s.metrics.RecordBatchSize(ctx, len(items))

	result := &BatchResult{
		Successful: []uint{},
		Failed:     []BatchFailure{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if item.NoteID == 0 {
				result.Failed = append(result.Failed, BatchFailure{Error: ErrMissingNoteID.Error()})
				continue
			}
			id := item.NoteID
			if err := item.validate(); err != nil {
				result.Failed = append(result.Failed, BatchFailure{NoteID: &id, Error: err.Error()})
				continue
			}
			if _, err := updateOwned(tx, userID, id, item.NotePatch); err != nil {
				if !errors.Is(err, ErrNotFound) {
					return err
				}
				result.Failed = append(result.Failed, BatchFailure{NoteID: &id, Error: err.Error()})
				continue
			}
			result.Successful = append(result.Successful, id)
		}
		return nil
	})
	if err != nil {
		s.tracer.RecordError(span, err)
		s.metrics.RecordError(ctx, observability.OpBatchUpdate, "db")
		return nil, err
	}

	span.SetAttributes(observability.ResultCountAttr(int64(len(result.Successful))))
	if len(result.Failed) > 0 {
		s.logger.Debug("batch update had failures",
			observability.LogFieldUserID, userID,
			"failed", len(result.Failed))
	}
	return result, nil
}
