package stickynotes

import "github.com/nlstn/go-stickynotes/internal/filter"

type (
	// FilterError is returned for any $filter that cannot be translated.
	// Filter holds the offending text.
	FilterError = filter.FilterError
	// FilterResult is a translated filter: a WHERE fragment with @pN
	// placeholders and the values bound to them.
	FilterResult = filter.Result
	// FilterParameter is one bound value of a FilterResult.
	FilterParameter = filter.Parameter
	// FilterOption configures TranslateFilter.
	FilterOption = filter.Option
	// Dialect selects the string concatenation syntax of LIKE patterns.
	Dialect = filter.Dialect
	// SQLType is the database type a parameter is bound as.
	SQLType = filter.SQLType
)

// Parameter types.
const (
	SQLTypeNVarChar = filter.SQLTypeNVarChar
	SQLTypeInt      = filter.SQLTypeInt
	SQLTypeBit      = filter.SQLTypeBit
	SQLTypeDecimal  = filter.SQLTypeDecimal
)

// Dialects supported by TranslateFilter.
const (
	DialectSQLServer = filter.DialectSQLServer
	DialectANSI      = filter.DialectANSI
)

// WithDialect selects the SQL dialect. The default is DialectSQLServer.
func WithDialect(d Dialect) FilterOption { return filter.WithDialect(d) }

// WithLikeEscape escapes %, _ and \ in string-function arguments and adds an
// ESCAPE clause to the generated LIKE.
func WithLikeEscape() FilterOption { return filter.WithLikeEscape() }

// WithMaxDepth bounds expression nesting.
func WithMaxDepth(n int) FilterOption { return filter.WithMaxDepth(n) }

// TranslateFilter turns an OData-style $filter expression into a
// parameterized SQL WHERE fragment. Property names are emitted as written;
// callers that expose the result to untrusted input should check them
// against the columns they allow.
func TranslateFilter(text string, opts ...FilterOption) (*FilterResult, error) {
	return filter.Translate(text, opts...)
}
