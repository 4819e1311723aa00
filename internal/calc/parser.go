package calc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"zus_chatbot/pkg"
)

// Limits for parsing
const (
	MaxExpressionLength = 1000
	MaxNestingDepth     = 100
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenOperator
	tokenLParen
	tokenRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

// Node is a parsed arithmetic expression
type Node interface {
	node()
}

// Number is a numeric literal
type Number struct {
	Value float64
}

// Unary applies a prefix operator to its operand
type Unary struct {
	Op      string
	Operand Node
}

// Binary applies an infix operator to two operands
type Binary struct {
	Op          string
	Left, Right Node
}

func (Number) node() {}
func (Unary) node()  {}
func (Binary) node() {}

// Parse converts expr into an expression tree. Anything outside numeric literals,
// parentheses and the whitelisted operators is rejected here, before evaluation.
func Parse(expr string) (Node, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: expression cannot be empty", pkg.ErrInvalidRequest)
	}
	if len(expr) > MaxExpressionLength {
		return nil, fmt.Errorf("%w: expression too long: %d characters (max: %d)", pkg.ErrInvalidExpression, len(expr), MaxExpressionLength)
	}
	if !utf8.ValidString(expr) {
		return nil, fmt.Errorf("%w: expression contains invalid UTF-8 characters", pkg.ErrInvalidExpression)
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, unexpected(tok)
	}
	return root, nil
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			start := i
			for i < len(expr) && (isDigit(expr[i]) || expr[i] == '.') {
				i++
			}
			// optional exponent: 1e3, 2.5E-4
			if i < len(expr) && (expr[i] == 'e' || expr[i] == 'E') {
				j := i + 1
				if j < len(expr) && (expr[j] == '+' || expr[j] == '-') {
					j++
				}
				if j < len(expr) && isDigit(expr[j]) {
					for j < len(expr) && isDigit(expr[j]) {
						j++
					}
					i = j
				}
			}
			text := expr[start:i]
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid number %q at position %d", pkg.ErrInvalidExpression, text, start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, value: value, pos: start})
		case c == '*' && i+1 < len(expr) && expr[i+1] == '*':
			tokens = append(tokens, token{kind: tokenOperator, text: "**", pos: i})
			i += 2
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			tokens = append(tokens, token{kind: tokenOperator, text: string(c), pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		default:
			r, _ := utf8.DecodeRuneInString(expr[i:])
			return nil, fmt.Errorf("%w: unsupported character %q at position %d", pkg.ErrInvalidExpression, r, i)
		}
	}
	return append(tokens, token{kind: tokenEOF, pos: len(expr)}), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// parser is a recursive-descent parser over the grammar
//
//	expr    := term (("+" | "-") term)*
//	term    := unary (("*" | "/" | "%") unary)*
//	unary   := ("-" | "+") unary | power
//	power   := primary ("**" unary)?
//	primary := NUMBER | "(" expr ")"
type parser struct {
	tokens []token
	pos    int
	depth  int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOperator(ops ...string) bool {
	tok := p.peek()
	if tok.kind != tokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.text == op {
			return true
		}
	}
	return false
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxNestingDepth {
		return fmt.Errorf("%w: expression nested too deeply (max: %d)", pkg.ErrInvalidExpression, MaxNestingDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOperator("+", "-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOperator("*", "/", "%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.isOperator("-", "+") {
		op := p.next().text
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			return operand, nil
		}
		return Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isOperator("**") {
		p.next()
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: "**", Left: base, Right: exponent}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		return Number{Value: tok.value}, nil
	case tokenLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, unexpected(closing)
		}
		return inner, nil
	default:
		return nil, unexpected(tok)
	}
}

func unexpected(tok token) error {
	if tok.kind == tokenEOF {
		return fmt.Errorf("%w: unexpected end of expression", pkg.ErrInvalidExpression)
	}
	return fmt.Errorf("%w: unexpected %q at position %d", pkg.ErrInvalidExpression, tok.text, tok.pos)
}
