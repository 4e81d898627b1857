// Package expr implements the restricted expression grammar used by
// expression rules. The grammar is deliberately closed: numbers, booleans,
// applicant-field identifiers, arithmetic, comparisons, and/or/not, and an
// allow-listed function set. There is no attribute access, no indexing, no
// string literals, no assignment, and no identifier resolution outside the
// applicant data record. Institution-supplied text is parsed and
// interpreted here and nowhere else; it never reaches a general-purpose
// evaluator, so malformed or hostile input can at worst fail a single
// factor closed.
package expr

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
	tokenComma
	tokenEq  // ==
	tokenNeq // !=
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenTrue
	tokenFalse
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// maxSourceLen bounds rule text so a pathological configuration cannot
// consume unbounded parse time or memory.
const maxSourceLen = 1024

var keywords = map[string]tokenKind{
	"and":   tokenAnd,
	"or":    tokenOr,
	"not":   tokenNot,
	"true":  tokenTrue,
	"false": tokenFalse,
}

func lex(src string) ([]token, error) {
	if len(src) > maxSourceLen {
		return nil, fmt.Errorf("%w: expression exceeds %d bytes", ErrInvalidExpression, maxSourceLen)
	}

	var tokens []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			tokens = append(tokens, token{kind: tokenPlus, pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokenMinus, pos: i})
			i++
		case c == '*':
			tokens = append(tokens, token{kind: tokenStar, pos: i})
			i++
		case c == '/':
			tokens = append(tokens, token{kind: tokenSlash, pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokenComma, pos: i})
			i++
		case c == '=':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenEq, pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: assignment is not allowed at offset %d", ErrInvalidExpression, i)
			}
		case c == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenNeq, pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: unexpected '!' at offset %d", ErrInvalidExpression, i)
			}
		case c == '<':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenLte, pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenLt, pos: i})
				i++
			}
		case c == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenGte, pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenGt, pos: i})
				i++
			}
		case unicode.IsDigit(c):
			start := i
			for i < len(src) && (unicode.IsDigit(rune(src[i])) || src[i] == '.') {
				i++
			}
			value, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed number %q", ErrInvalidExpression, src[start:i])
			}
			tokens = append(tokens, token{kind: tokenNumber, num: value, pos: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(src) && (unicode.IsLetter(rune(src[i])) || unicode.IsDigit(rune(src[i])) || src[i] == '_') {
				i++
			}
			word := src[start:i]
			if kind, ok := keywords[word]; ok {
				tokens = append(tokens, token{kind: kind, text: word, pos: start})
			} else {
				tokens = append(tokens, token{kind: tokenIdent, text: word, pos: start})
			}
		default:
			// Everything else (dots, brackets, quotes, semicolons) is outside
			// the grammar. Rejecting here is what keeps attribute traversal
			// and imports unrepresentable.
			return nil, fmt.Errorf("%w: illegal character %q at offset %d", ErrInvalidExpression, c, i)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(src)})
	return tokens, nil
}
