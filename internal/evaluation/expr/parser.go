package expr

import (
	"errors"
	"fmt"
)

// ErrInvalidExpression marks parse-time rejection; the factor fails closed.
var ErrInvalidExpression = errors.New("invalid expression")

// ErrEvaluation marks run-time failure (unknown field, type mismatch,
// division by zero); the factor fails closed.
var ErrEvaluation = errors.New("expression evaluation failed")

// maxDepth bounds expression nesting so recursive descent cannot be driven
// into stack exhaustion by hostile configuration.
const maxDepth = 32

type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeBool
	nodeField
	nodeCall
	nodeUnary
	nodeBinary
)

type node struct {
	kind nodeKind

	num   float64
	boolV bool
	name  string // field name or function name

	op    tokenKind
	left  *node
	right *node // nil for unary
	args  []*node
}

// allowedFuncs is the complete function namespace. Anything else is
// rejected at parse time.
var allowedFuncs = map[string]struct {
	minArgs int
	maxArgs int
}{
	"min": {2, 2},
	"max": {2, 2},
	"abs": {1, 1},
}

// Compiled is a parsed expression ready for repeated evaluation. It is
// immutable and safe for concurrent use.
type Compiled struct {
	root   *node
	source string
}

// Source returns the original expression text.
func (c *Compiled) Source() string { return c.source }

// Parse compiles the restricted grammar. Any token, identifier structure,
// or call outside the grammar returns ErrInvalidExpression.
func Parse(src string) (*Compiled, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("%w: unexpected trailing input at offset %d", ErrInvalidExpression, p.peek().pos)
	}
	return &Compiled{root: root, source: src}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.peek().kind != kind {
		return fmt.Errorf("%w: expected %s at offset %d", ErrInvalidExpression, what, p.peek().pos)
	}
	p.next()
	return nil
}

func (p *parser) parseOr(depth int) (*node, error) {
	left, err := p.parseAnd(depth + 1)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOr {
		p.next()
		right, err := p.parseAnd(depth + 1)
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: tokenOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd(depth int) (*node, error) {
	left, err := p.parseNot(depth + 1)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenAnd {
		p.next()
		right, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: tokenAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot(depth int) (*node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: expression nested too deeply", ErrInvalidExpression)
	}
	if p.peek().kind == tokenNot {
		p.next()
		operand, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, op: tokenNot, left: operand}, nil
	}
	return p.parseComparison(depth + 1)
}

func (p *parser) parseComparison(depth int) (*node, error) {
	left, err := p.parseAdditive(depth + 1)
	if err != nil {
		return nil, err
	}
	switch op := p.peek().kind; op {
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
		p.next()
		right, err := p.parseAdditive(depth + 1)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeBinary, op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive(depth int) (*node, error) {
	left, err := p.parseMultiplicative(depth + 1)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokenPlus && op != tokenMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative(depth + 1)
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative(depth int) (*node, error) {
	left, err := p.parseUnary(depth + 1)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokenStar && op != tokenSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary(depth int) (*node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: expression nested too deeply", ErrInvalidExpression)
	}
	if p.peek().kind == tokenMinus {
		p.next()
		operand, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, op: tokenMinus, left: operand}, nil
	}
	return p.parsePrimary(depth + 1)
}

func (p *parser) parsePrimary(depth int) (*node, error) {
	switch t := p.peek(); t.kind {
	case tokenNumber:
		p.next()
		return &node{kind: nodeNumber, num: t.num}, nil
	case tokenTrue:
		p.next()
		return &node{kind: nodeBool, boolV: true}, nil
	case tokenFalse:
		p.next()
		return &node{kind: nodeBool, boolV: false}, nil
	case tokenLParen:
		p.next()
		inner, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenIdent:
		p.next()
		if p.peek().kind == tokenLParen {
			return p.parseCall(t, depth)
		}
		// Bare identifiers bind only to applicant data fields; resolution
		// happens at evaluation time against the closed field namespace.
		return &node{kind: nodeField, name: t.text}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected token at offset %d", ErrInvalidExpression, t.pos)
	}
}

func (p *parser) parseCall(name token, depth int) (*node, error) {
	spec, ok := allowedFuncs[name.text]
	if !ok {
		return nil, fmt.Errorf("%w: function %q is not allowed", ErrInvalidExpression, name.text)
	}
	p.next() // consume '('

	var args []*node
	if p.peek().kind != tokenRParen {
		for {
			arg, err := p.parseOr(depth + 1)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokenComma {
				break
			}
			p.next()
		}
	}
	if err := p.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}
	if len(args) < spec.minArgs || len(args) > spec.maxArgs {
		return nil, fmt.Errorf("%w: function %q takes %d argument(s)", ErrInvalidExpression, name.text, spec.maxArgs)
	}
	return &node{kind: nodeCall, name: name.text, args: args}, nil
}
