package filter

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds how deeply NOT and parenthesised groups may nest.
const DefaultMaxDepth = 64

// Parser is a recursive-descent parser over a Tokenizer. It holds exactly
// one token of lookahead.
type Parser struct {
	tokenizer *Tokenizer
	token     Token
	depth     int
	maxDepth  int
}

// NewParser creates a parser for input and primes the lookahead token
func NewParser(input string, maxDepth int) (*Parser, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	p := &Parser{
		tokenizer: NewTokenizer(input),
		maxDepth:  maxDepth,
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses a filter string into an AST. The whole input must form one
// expression.
func Parse(input string) (Node, error) {
	return parse(input, DefaultMaxDepth)
}

func parse(input string, maxDepth int) (Node, error) {
	p, err := NewParser(input, maxDepth)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// Parse parses the token stream into an AST
func (p *Parser) Parse() (Node, error) {
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.token.Kind != TokenEOF {
		return nil, p.unexpected("end of input")
	}

	return node, nil
}

// advance replaces the lookahead with the next token from the tokenizer
func (p *Parser) advance() error {
	tok, err := p.tokenizer.NextToken()
	if err != nil {
		return err
	}
	p.token = tok
	return nil
}

// expect checks the lookahead kind and consumes it
func (p *Parser) expect(kind TokenKind, what string) error {
	if p.token.Kind != kind {
		return p.unexpected(what)
	}
	return p.advance()
}

func (p *Parser) unexpected(expected string) *ParseError {
	return &ParseError{
		Pos:      p.token.Pos,
		Expected: expected,
		Found:    p.token.String(),
	}
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return &ParseError{Pos: p.token.Pos, Err: errNestingTooDeep}
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// parseExpression handles AND/OR chains. Both operators share one
// precedence level and fold left: a and b or c is ((a and b) or c).
func (p *Parser) parseExpression() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.token.Kind == TokenKeyword && (p.token.Value == "AND" || p.token.Value == "OR") {
		op := LogicalOp(strings.ToLower(p.token.Value))
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseUnary handles NOT, grouping, function calls and comparisons
func (p *Parser) parseUnary() (Node, error) {
	switch p.token.Kind {
	case TokenKeyword:
		if p.token.Value == "NOT" {
			return p.parseNot()
		}
	case TokenOpenParen:
		return p.parseGroup()
	case TokenFunction:
		return p.parseFunctionCall()
	case TokenIdentifier:
		return p.parseComparison()
	}
	return nil, p.unexpected("NOT, '(', function call or property")
}

func (p *Parser) parseNot() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if err := p.advance(); err != nil {
		return nil, err
	}
	source, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &NotExpr{Source: source}, nil
}

func (p *Parser) parseGroup() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenCloseParen, "')'"); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseFunctionCall parses name(arg, ...). Arguments are properties or
// string/number literals; calls do not nest.
func (p *Parser) parseFunctionCall() (Node, error) {
	call := &FunctionCallExpr{Func: p.token.Value}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenOpenParen, fmt.Sprintf("'(' after function %s", call.Func)); err != nil {
		return nil, err
	}

	if p.token.Kind == TokenCloseParen {
		return call, p.advance()
	}

	for {
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		switch p.token.Kind {
		case TokenComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case TokenCloseParen:
			return call, p.advance()
		default:
			return nil, p.unexpected("',' or ')' after function argument")
		}
	}
}

func (p *Parser) parseArgument() (Node, error) {
	var node Node
	switch p.token.Kind {
	case TokenIdentifier:
		node = &PropertyExpr{Name: p.token.Value}
	case TokenString, TokenNumber:
		node = literalFromToken(p.token)
	default:
		return nil, p.unexpected("property, string or number argument")
	}
	return node, p.advance()
}

// parseComparison parses Identifier OPERATOR Literal
func (p *Parser) parseComparison() (Node, error) {
	property := &PropertyExpr{Name: p.token.Value}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.token.Kind != TokenOperator {
		return nil, p.unexpected(fmt.Sprintf("operator after %s", property.Name))
	}
	op := CompareOp(p.token.Value)
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.token.Kind {
	case TokenString, TokenNumber, TokenBoolean:
	default:
		return nil, p.unexpected("string, number, or boolean literal after operator")
	}
	literal := literalFromToken(p.token)
	if err := p.advance(); err != nil {
		return nil, err
	}

	return &ComparisonExpr{Op: op, Left: property, Right: literal}, nil
}

// literalFromToken converts a literal token into its typed value: numbers
// with no fractional part become int64, other numbers stay decimal.
func literalFromToken(tok Token) *LiteralExpr {
	switch tok.Kind {
	case TokenNumber:
		if tok.Number.IsInteger() && tok.Number.BigInt().IsInt64() {
			return &LiteralExpr{Value: tok.Number.IntPart()}
		}
		return &LiteralExpr{Value: tok.Number}
	case TokenBoolean:
		return &LiteralExpr{Value: tok.Value == "true"}
	default:
		return &LiteralExpr{Value: tok.Value}
	}
}
