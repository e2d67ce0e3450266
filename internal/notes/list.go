package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nlstn/go-stickynotes/internal/filter"
	"github.com/nlstn/go-stickynotes/internal/observability"
)

// Paging defaults for List.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

const filterPrefix = "$filter="

// filterable lists the note columns a $filter may reference, keyed by the
// lowercased property name.
var filterable = map[string]struct{}{
	"id":        {},
	"title":     {},
	"category":  {},
	"content":   {},
	"color":     {},
	"pinned":    {},
	"textcolor": {},
	"width":     {},
	"height":    {},
	"createdat": {},
	"updatedat": {},
}

// ListOptions selects one page of a user's notes.
type ListOptions struct {
	Filter string
	Page   int
	Limit  int
}

// Page is one page of notes plus the paging totals.
type Page struct {
	Notes       []Note `json:"notes"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalNotes  int64  `json:"totalNotes"`
	HasMore     bool   `json:"hasMore"`
}

// List returns one page of notes owned by userID, newest first with pinned
// notes on top. A non-empty opts.Filter is translated to a parameterized
// WHERE clause; filter failures are returned as *filter.FilterError.
func (s *Store) List(ctx context.Context, userID uint, opts ListOptions) (*Page, error) {
	ctx, span := s.tracer.StartNotesOperation(ctx, observability.OpListNotes, userID)
	defer span.End()

	page, limit := opts.Page, opts.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}

	where, args, err := s.whereClause(ctx, userID, opts.Filter)
	if err != nil {
		s.tracer.RecordError(span, err)
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&Note{}).Where(where, args...).Count(&total).Error; err != nil {
		s.tracer.RecordError(span, err)
		return nil, fmt.Errorf("count notes: %w", err)
	}

	notes := make([]Note, 0, limit)
	err = db.Where(where, args...).
		Order("pinned DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		s.tracer.RecordError(span, err)
		return nil, fmt.Errorf("list notes: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	span.SetAttributes(observability.ResultCountAttr(int64(len(notes))))
	s.metrics.RecordResultCount(ctx, int64(len(notes)))

	return &Page{
		Notes:       notes,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalNotes:  total,
		HasMore:     page < totalPages,
	}, nil
}

// whereClause builds the owner condition, ANDed with the translated filter
// when one is given.
func (s *Store) whereClause(ctx context.Context, userID uint, filterText string) (string, []interface{}, error) {
	owner := sql.Named("owner", userID)

	filterText = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(filterText), filterPrefix))
	if filterText == "" {
		return "userid = @owner", []interface{}{owner}, nil
	}

	res, err := s.translateFilter(ctx, filterText)
	if err != nil {
		return "", nil, err
	}
	return "userid = @owner AND (" + res.Where + ")", append(res.NamedArgs(), owner), nil
}

// translateFilter parses text, checks every property against the filterable
// columns and translates the tree for an ANSI database.
func (s *Store) translateFilter(ctx context.Context, text string) (*filter.Result, error) {
	ctx, span := s.tracer.StartFilterTranslate(ctx, text, s.obs.FilterTracingEnabled())
	defer span.End()
	timing := observability.StartServerTiming(ctx, "filter")
	defer timing.Stop()

	res, err := translateOwned(text)
	if err != nil {
		s.tracer.RecordError(span, err)
		s.metrics.RecordFilterTranslate(ctx, 0, filterErrorKind(err))
		observability.LoggerWithTrace(ctx, s.logger).Debug("rejected filter",
			observability.LogFieldFilter, text,
			observability.LogFieldError, err)
		return nil, err
	}
	span.SetAttributes(observability.FilterParamCountAttr(len(res.Parameters)))
	s.metrics.RecordFilterTranslate(ctx, len(res.Parameters), "")
	return res, nil
}

func translateOwned(text string) (*filter.Result, error) {
	node, err := filter.Parse(text)
	if err != nil {
		return nil, asFilterError(text, err)
	}
	for _, name := range filter.Properties(node) {
		if _, ok := filterable[strings.ToLower(name)]; !ok {
			return nil, &filter.FilterError{Filter: text, Err: fmt.Errorf("%w: %s", ErrUnknownProperty, name)}
		}
	}
	res, err := filter.TranslateNode(node, filter.WithDialect(filter.DialectANSI), filter.WithLikeEscape())
	if err != nil {
		return nil, asFilterError(text, err)
	}
	return res, nil
}

// asFilterError makes sure err is a *filter.FilterError carrying text.
func asFilterError(text string, err error) error {
	var fe *filter.FilterError
	if errors.As(err, &fe) {
		if fe.Filter == "" {
			fe.Filter = text
		}
		return fe
	}
	return &filter.FilterError{Filter: text, Err: err}
}

func filterErrorKind(err error) string {
	var (
		lexErr   *filter.LexError
		parseErr *filter.ParseError
		trErr    *filter.TranslationError
	)
	switch {
	case errors.As(err, &lexErr):
		return "lex"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &trErr):
		return "translate"
	case errors.Is(err, ErrUnknownProperty):
		return "unknown_property"
	default:
		return "other"
	}
}
