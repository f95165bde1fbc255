// Package condition implements the boolean expression language used for
// cadence auto-assignment: equality and membership tests over customer fields
// and dotted metadata paths, combined with "and"/"or". Evaluation fails closed;
// a malformed expression never matches and never raises.
package condition

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenIn
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case '[':
		l.pos++
		return token{kind: tokenLBracket, text: "[", pos: start}, nil
	case ']':
		l.pos++
		return token{kind: tokenRBracket, text: "]", pos: start}, nil
	case ',':
		l.pos++
		return token{kind: tokenComma, text: ",", pos: start}, nil
	case '=':
		if strings.HasPrefix(l.input[l.pos:], "==") {
			l.pos += 2
			return token{kind: tokenEq, text: "==", pos: start}, nil
		}
		return token{}, fmt.Errorf("unexpected %q at %d", ch, start)
	case '!':
		if strings.HasPrefix(l.input[l.pos:], "!=") {
			l.pos += 2
			return token{kind: tokenNeq, text: "!=", pos: start}, nil
		}
		return token{}, fmt.Errorf("unexpected %q at %d", ch, start)
	case '\'', '"':
		return l.lexString(ch)
	}

	if isDigit(ch) || ch == '-' {
		return l.lexNumber()
	}
	if isIdentStart(ch) {
		return l.lexIdent()
	}
	return token{}, fmt.Errorf("unexpected %q at %d", ch, start)
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var builder strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			l.pos++
			return token{kind: tokenString, text: builder.String(), pos: start}, nil
		}
		builder.WriteByte(ch)
		l.pos++
	}
	return token{}, fmt.Errorf("unterminated string at %d", start)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	seenDigit := false
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		if isDigit(l.input[l.pos]) {
			seenDigit = true
		}
		l.pos++
	}
	if !seenDigit {
		return token{}, fmt.Errorf("malformed number at %d", start)
	}
	return token{kind: tokenNumber, text: l.input[start:l.pos], pos: start}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && (isIdentPart(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	text := l.input[start:l.pos]
	switch text {
	case "and":
		return token{kind: tokenAnd, text: text, pos: start}, nil
	case "or":
		return token{kind: tokenOr, text: text, pos: start}, nil
	case "in":
		return token{kind: tokenIn, text: text, pos: start}, nil
	}
	return token{kind: tokenIdent, text: text, pos: start}, nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
