// Package notes stores sticky notes in a SQL database through gorm and
// answers $filter queries by translating them with the filter engine.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/nlstn/go-stickynotes/internal/observability"
)

// Store reads and writes notes. All operations are scoped to one owner.
type Store struct {
	db      *gorm.DB
	obs     *observability.Config
	tracer  *observability.Tracer
	metrics *observability.Metrics
	logger  *slog.Logger
	maxPage int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithObservability attaches tracing and metrics to store operations.
func WithObservability(cfg *observability.Config) StoreOption {
	return func(s *Store) {
		s.obs = cfg
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxLimit caps the page size accepted by List.
func WithMaxLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxPage = n
		}
	}
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:      db,
		logger:  slog.Default(),
		maxPage: MaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = s.obs.Tracer()
	s.metrics = s.obs.Metrics()
	return s
}

// Migrate creates or updates the notes table.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Note{})
}

// Create inserts a new note for userID, filling defaults for empty fields.
func (s *Store) Create(ctx context.Context, userID uint, in NoteInput) (*Note, error) {
	ctx, span := s.tracer.StartNotesOperation(ctx, observability.OpCreateNote, userID)
	defer span.End()

	note, err := newNote(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		s.tracer.RecordError(span, err)
		s.metrics.RecordError(ctx, observability.OpCreateNote, "db")
		return nil, fmt.Errorf("create note: %w", err)
	}
	span.SetAttributes(observability.NoteIDAttr(note.ID))
	return note, nil
}

// Get returns the note id if it belongs to userID.
func (s *Store) Get(ctx context.Context, userID, id uint) (*Note, error) {
	ctx, span := s.tracer.StartNotesOperation(ctx, observability.OpGetNote, userID)
	defer span.End()
	span.SetAttributes(observability.NoteIDAttr(id))

	note, err := findOwned(s.db.WithContext(ctx), userID, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.tracer.RecordError(span, err)
	}
	return note, err
}

// Update merges patch into the note id owned by userID and returns the result.
func (s *Store) Update(ctx context.Context, userID, id uint, patch NotePatch) (*Note, error) {
	ctx, span := s.tracer.StartNotesOperation(ctx, observability.OpUpdateNote, userID)
	defer span.End()
	span.SetAttributes(observability.NoteIDAttr(id))

	if err := patch.validate(); err != nil {
		return nil, err
	}

	var note *Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		note, err = updateOwned(tx, userID, id, patch)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.tracer.RecordError(span, err)
		}
		return nil, err
	}
	return note, nil
}

// Delete removes the note id owned by userID.
func (s *Store) Delete(ctx context.Context, userID, id uint) error {
	ctx, span := s.tracer.StartNotesOperation(ctx, observability.OpDeleteNote, userID)
	defer span.End()
	span.SetAttributes(observability.NoteIDAttr(id))

	res := s.db.WithContext(ctx).Where("id = ? AND userid = ?", id, userID).Delete(&Note{})
	if res.Error != nil {
		s.tracer.RecordError(span, res.Error)
		return fmt.Errorf("delete note %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func findOwned(tx *gorm.DB, userID, id uint) (*Note, error) {
	var note Note
	err := tx.Where("id = ? AND userid = ?", id, userID).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}
	return &note, nil
}

func updateOwned(tx *gorm.DB, userID, id uint, patch NotePatch) (*Note, error) {
	note, err := findOwned(tx, userID, id)
	if err != nil {
		return nil, err
	}
	patch.apply(note)
	if err := tx.Save(note).Error; err != nil {
		return nil, fmt.Errorf("update note %d: %w", id, err)
	}
	return note, nil
}
