package filter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TokenKind represents the lexical class of a token
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenKeyword
	TokenOperator
	TokenFunction
	TokenIdentifier
	TokenString
	TokenNumber
	TokenBoolean
	TokenOpenParen
	TokenCloseParen
	TokenComma
)

var tokenKindNames = [...]string{
	TokenEOF:        "EOF",
	TokenKeyword:    "KEYWORD",
	TokenOperator:   "OPERATOR",
	TokenFunction:   "FUNCTION",
	TokenIdentifier: "IDENTIFIER",
	TokenString:     "STRING",
	TokenNumber:     "NUMBER",
	TokenBoolean:    "BOOLEAN",
	TokenOpenParen:  "OPEN_PAREN",
	TokenCloseParen: "CLOSE_PAREN",
	TokenComma:      "COMMA",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexeme of a filter expression.
//
// Value holds the token text: the upper-cased keyword (AND, OR, NOT), the
// operator (eq, ne, ...), the raw function or identifier name, the unescaped
// string contents, the number text, or "true"/"false" for booleans. Number is
// only set for TokenNumber.
type Token struct {
	Kind   TokenKind
	Value  string
	Number decimal.Decimal
	Pos    int
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("%s '%s'", t.Kind, t.Value)
	default:
		return fmt.Sprintf("%s %q", t.Kind, t.Value)
	}
}

// comparisonOperators are matched ahead of identifier scanning.
var comparisonOperators = [...]string{"eq", "ne", "gt", "lt", "ge", "le"}

// Tokenizer produces tokens from a filter string one at a time
type Tokenizer struct {
	input string
	pos   int
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{input: input}
}

// Pos returns the cursor offset into the input.
func (t *Tokenizer) Pos() int {
	return t.pos
}

func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.input) {
		switch t.input[t.pos] {
		case ' ', '\t', '\r', '\n':
			t.pos++
		default:
			return
		}
	}
}

// NextToken returns the next token. Once the input is exhausted it returns
// a TokenEOF token on every call.
func (t *Tokenizer) NextToken() (Token, error) {
	t.skipWhitespace()

	if t.pos >= len(t.input) {
		return Token{Kind: TokenEOF, Pos: t.pos}, nil
	}

	ch := t.input[t.pos]

	if op, ok := t.matchOperator(); ok {
		tok := Token{Kind: TokenOperator, Value: op, Pos: t.pos}
		t.pos += len(op)
		return tok, nil
	}

	switch {
	case isLetter(ch):
		return t.readIdentifierOrKeyword(), nil
	case isDigit(ch) || ch == '-':
		return t.readNumber()
	case ch == '\'':
		return t.readString()
	case ch == '(':
		t.pos++
		return Token{Kind: TokenOpenParen, Value: "(", Pos: t.pos - 1}, nil
	case ch == ')':
		t.pos++
		return Token{Kind: TokenCloseParen, Value: ")", Pos: t.pos - 1}, nil
	case ch == ',':
		t.pos++
		return Token{Kind: TokenComma, Value: ",", Pos: t.pos - 1}, nil
	}

	r, _ := utf8.DecodeRuneInString(t.input[t.pos:])
	return Token{}, newLexError(t.pos, fmt.Sprintf("unexpected character '%c'", r))
}

// matchOperator reports whether a comparison operator starts at the cursor
// and is not the prefix of a longer word (eq must not match "equipment").
func (t *Tokenizer) matchOperator() (string, bool) {
	rest := t.input[t.pos:]
	for _, op := range comparisonOperators {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		if len(rest) > len(op) && isWordChar(rest[len(op)]) {
			continue
		}
		return op, true
	}
	return "", false
}

func (t *Tokenizer) readIdentifierOrKeyword() Token {
	start := t.pos
	for t.pos < len(t.input) && isWordChar(t.input[t.pos]) {
		t.pos++
	}
	value := t.input[start:t.pos]

	switch upper := strings.ToUpper(value); upper {
	case "AND", "OR", "NOT":
		return Token{Kind: TokenKeyword, Value: upper, Pos: start}
	case "TRUE", "FALSE":
		return Token{Kind: TokenBoolean, Value: strings.ToLower(upper), Pos: start}
	}

	if t.pos < len(t.input) && t.input[t.pos] == '(' {
		return Token{Kind: TokenFunction, Value: value, Pos: start}
	}
	return Token{Kind: TokenIdentifier, Value: value, Pos: start}
}

func (t *Tokenizer) readNumber() (Token, error) {
	start := t.pos
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		if !isDigit(ch) && ch != '.' && ch != '-' {
			break
		}
		t.pos++
	}
	value := t.input[start:t.pos]

	if value == "-" {
		return Token{}, newLexError(start, "invalid number format: lone minus sign")
	}
	// Only a single leading sign is allowed; decimal accepts the rest.
	if strings.LastIndexByte(value, '-') > 0 {
		return Token{}, newLexError(start, "invalid number format: "+value)
	}
	n, err := decimal.NewFromString(value)
	if err != nil {
		return Token{}, newLexError(start, "invalid number format: "+value)
	}

	return Token{Kind: TokenNumber, Value: value, Number: n, Pos: start}, nil
}

// readString reads a single-quoted literal. A doubled quote ('') inside the
// literal is an escaped quote.
func (t *Tokenizer) readString() (Token, error) {
	start := t.pos
	t.pos++ // opening quote

	var b strings.Builder
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		if ch != '\'' {
			b.WriteByte(ch)
			t.pos++
			continue
		}
		if t.pos+1 < len(t.input) && t.input[t.pos+1] == '\'' {
			b.WriteByte('\'')
			t.pos += 2
			continue
		}
		t.pos++ // closing quote
		return Token{Kind: TokenString, Value: b.String(), Pos: start}, nil
	}

	return Token{}, newLexError(start, "unterminated string literal")
}

// TokenizeAll returns all tokens from the input, ending with TokenEOF
func (t *Tokenizer) TokenizeAll() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := t.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_'
}
