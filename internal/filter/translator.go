package filter

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SQLType is the database type a parameter is bound as
type SQLType int

const (
	SQLTypeNVarChar SQLType = iota
	SQLTypeInt
	SQLTypeBit
	SQLTypeDecimal
)

func (t SQLType) String() string {
	switch t {
	case SQLTypeInt:
		return "Int"
	case SQLTypeBit:
		return "Bit"
	case SQLTypeDecimal:
		return "Decimal"
	default:
		return "NVarChar"
	}
}

// Parameter is one bound literal of a translated filter
type Parameter struct {
	Name  string
	Type  SQLType
	Value interface{}
}

// Result is a translated filter: a boolean SQL expression and the ordered
// parameters it references as @p1, @p2, ...
type Result struct {
	Where      string
	Parameters []Parameter
}

// Lookup returns the parameter with the given name (without the @ prefix).
func (r *Result) Lookup(name string) (Parameter, bool) {
	for _, p := range r.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// NamedArgs returns the parameters as sql.NamedArg values, ready to pass to
// database/sql or gorm alongside Where.
func (r *Result) NamedArgs() []interface{} {
	args := make([]interface{}, len(r.Parameters))
	for i, p := range r.Parameters {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

// Dialect selects the string concatenation syntax used in LIKE patterns
type Dialect int

const (
	// DialectSQLServer concatenates with +
	DialectSQLServer Dialect = iota
	// DialectANSI concatenates with || (SQLite, PostgreSQL)
	DialectANSI
)

func (d Dialect) concat() string {
	if d == DialectANSI {
		return "||"
	}
	return "+"
}

// Config controls translation
type Config struct {
	Dialect    Dialect
	LikeEscape bool
	MaxDepth   int
}

// Option is a functional option for configuring translation.
type Option func(*Config)

// WithDialect sets the SQL dialect.
func WithDialect(d Dialect) Option {
	return func(c *Config) {
		c.Dialect = d
	}
}

// WithLikeEscape escapes LIKE wildcards in pattern values so that
// contains(title,'50%') matches a literal percent sign.
func WithLikeEscape() Option {
	return func(c *Config) {
		c.LikeEscape = true
	}
}

// WithMaxDepth bounds NOT and parenthesis nesting during parsing.
func WithMaxDepth(n int) Option {
	return func(c *Config) {
		c.MaxDepth = n
	}
}

func newConfig(opts []Option) Config {
	cfg := Config{MaxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

var sqlComparisonOps = map[CompareOp]string{
	OpEq: "=",
	OpNe: "<>",
	OpGt: ">",
	OpLt: "<",
	OpGe: ">=",
	OpLe: "<=",
}

// Translate parses filterText and translates it to a parameterized SQL
// boolean expression. Empty filter text yields an empty Result. Any failure
// is returned as a *FilterError and no partial result is produced.
//
// Property names are emitted verbatim. Callers must restrict which names may
// reach Translate (see Properties).
func Translate(filterText string, opts ...Option) (*Result, error) {
	if filterText == "" {
		return &Result{}, nil
	}
	cfg := newConfig(opts)

	node, err := parse(filterText, cfg.MaxDepth)
	if err != nil {
		return nil, wrapFilterError(filterText, err)
	}

	res, err := translateNode(node, cfg)
	if err != nil {
		return nil, wrapFilterError(filterText, err)
	}
	return res, nil
}

// TranslateNode translates an already parsed AST.
func TranslateNode(node Node, opts ...Option) (*Result, error) {
	if node == nil {
		return &Result{}, nil
	}
	res, err := translateNode(node, newConfig(opts))
	if err != nil {
		return nil, wrapFilterError("", err)
	}
	return res, nil
}

func translateNode(node Node, cfg Config) (*Result, error) {
	tr := &translator{cfg: cfg}
	where, err := tr.translate(node)
	if err != nil {
		return nil, err
	}
	return &Result{Where: where, Parameters: tr.params}, nil
}

// translator holds the state of one translation call. The parameter
// counter lives here so that names are unique across the whole walk.
type translator struct {
	cfg    Config
	params []Parameter
}

func (tr *translator) translate(node Node) (string, error) {
	switch n := node.(type) {
	case *ComparisonExpr:
		return tr.comparison(n)
	case *LogicalExpr:
		left, err := tr.translate(n.Left)
		if err != nil {
			return "", err
		}
		right, err := tr.translate(n.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + strings.ToUpper(string(n.Op)) + " " + right + ")", nil
	case *NotExpr:
		source, err := tr.translate(n.Source)
		if err != nil {
			return "", err
		}
		return "NOT (" + source + ")", nil
	case *FunctionCallExpr:
		return tr.functionCall(n)
	case *PropertyExpr:
		return n.Name, nil
	case *LiteralExpr:
		return tr.bind(n.Value, inferSQLType(n.Value)), nil
	}
	return "", &TranslationError{Msg: fmt.Sprintf("cannot translate %T", node), Err: errUnsupportedNodeType}
}

func (tr *translator) comparison(n *ComparisonExpr) (string, error) {
	op, ok := sqlComparisonOps[n.Op]
	if !ok {
		return "", &TranslationError{Msg: "unsupported operator: " + string(n.Op)}
	}
	left, err := tr.translate(n.Left)
	if err != nil {
		return "", err
	}
	right, err := tr.translate(n.Right)
	if err != nil {
		return "", err
	}
	return "(" + left + " " + op + " " + right + ")", nil
}

func (tr *translator) functionCall(n *FunctionCallExpr) (string, error) {
	name := strings.ToLower(n.Func)
	switch name {
	case "contains", "startswith", "endswith":
		if len(n.Args) != 2 {
			return "", arityError(n.Func, 2, len(n.Args))
		}
		field, err := tr.translate(n.Args[0])
		if err != nil {
			return "", err
		}
		pattern, escaped, err := tr.likeOperand(n.Args[1])
		if err != nil {
			return "", err
		}
		return tr.like(field, pattern, escaped, name != "startswith", name != "endswith"), nil
	case "tolower", "toupper":
		if len(n.Args) != 1 {
			return "", arityError(n.Func, 1, len(n.Args))
		}
		field, err := tr.translate(n.Args[0])
		if err != nil {
			return "", err
		}
		if name == "tolower" {
			return "LOWER(" + field + ")", nil
		}
		return "UPPER(" + field + ")", nil
	}
	return "", &TranslationError{Msg: "unsupported function: " + n.Func}
}

// likeOperand translates the pattern argument of a LIKE function. Literal
// patterns are always bound as text. escaped reports whether the bound
// value had its wildcards escaped; property operands never do.
func (tr *translator) likeOperand(arg Node) (expr string, escaped bool, err error) {
	lit, ok := arg.(*LiteralExpr)
	if !ok {
		expr, err = tr.translate(arg)
		return expr, false, err
	}
	value := literalText(lit.Value)
	if tr.cfg.LikeEscape {
		value = escapeLikePattern(value)
	}
	return tr.bind(value, SQLTypeNVarChar), tr.cfg.LikeEscape, nil
}

func (tr *translator) like(field, pattern string, escaped, prefixWildcard, suffixWildcard bool) string {
	concat := " " + tr.cfg.Dialect.concat() + " "
	expr := pattern
	if prefixWildcard {
		expr = "'%'" + concat + expr
	}
	if suffixWildcard {
		expr = expr + concat + "'%'"
	}
	clause := field + " LIKE " + expr
	if escaped {
		clause += " " + likeEscapeClause
	}
	return "(" + clause + ")"
}

// bind records value as the next parameter and returns its placeholder
func (tr *translator) bind(value interface{}, typ SQLType) string {
	name := "p" + strconv.Itoa(len(tr.params)+1)
	tr.params = append(tr.params, Parameter{Name: name, Type: typ, Value: value})
	return "@" + name
}

func inferSQLType(value interface{}) SQLType {
	switch v := value.(type) {
	case int64:
		return SQLTypeInt
	case decimal.Decimal:
		return SQLTypeDecimal
	case bool:
		return SQLTypeBit
	case string:
		if v == "true" || v == "false" {
			return SQLTypeBit
		}
	}
	return SQLTypeNVarChar
}

func literalText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func arityError(fn string, want, got int) *TranslationError {
	return &TranslationError{Msg: fmt.Sprintf("function %s requires %d argument(s), got %d", fn, want, got)}
}
