package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Program is a compiled condition expression. Compile once, evaluate many.
type Program struct {
	root node
}

type node interface {
	eval(view map[string]any) bool
}

type andNode struct{ left, right node }
type orNode struct{ left, right node }

type compareNode struct {
	path   []string
	negate bool
	value  literal
}

type memberNode struct {
	path   []string
	values []literal
}

type literal struct {
	str     string
	num     float64
	boolean bool
	kind    literalKind
}

type literalKind int

const (
	literalString literalKind = iota
	literalNumber
	literalBool
)

type parser struct {
	lexer   *lexer
	current token
}

// Compile parses the expression into an executable program.
func Compile(input string) (*Program, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	p := &parser{lexer: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected %q at %d", p.current.text, p.current.pos)
	}
	return &Program{root: root}, nil
}

func (p *parser) advance() error {
	tok, err := p.lexer.next()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current.kind == tokenOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current.kind == tokenAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.current.kind == tokenLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.kind != tokenRParen {
			return nil, fmt.Errorf("expected ) at %d", p.current.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	if p.current.kind != tokenIdent {
		return nil, fmt.Errorf("expected field path at %d", p.current.pos)
	}
	path := strings.Split(p.current.text, ".")
	for _, segment := range path {
		if segment == "" {
			return nil, fmt.Errorf("malformed path %q", p.current.text)
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.current.kind {
	case tokenEq, tokenNeq:
		negate := p.current.kind == tokenNeq
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return compareNode{path: path, negate: negate, value: value}, nil
	case tokenIn:
		if err := p.advance(); err != nil {
			return nil, err
		}
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return memberNode{path: path, values: values}, nil
	default:
		return nil, fmt.Errorf("expected comparison at %d", p.current.pos)
	}
}

func (p *parser) parseList() ([]literal, error) {
	if p.current.kind != tokenLBracket {
		return nil, fmt.Errorf("expected [ at %d", p.current.pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var values []literal
	for p.current.kind != tokenRBracket {
		value, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		if p.current.kind == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.current.kind != tokenRBracket {
			return nil, fmt.Errorf("expected , or ] at %d", p.current.pos)
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty membership list")
	}
	return values, nil
}

func (p *parser) parseLiteral() (literal, error) {
	switch p.current.kind {
	case tokenString:
		value := literal{kind: literalString, str: p.current.text}
		return value, p.advance()
	case tokenNumber:
		parsed, err := strconv.ParseFloat(p.current.text, 64)
		if err != nil {
			return literal{}, fmt.Errorf("malformed number %q", p.current.text)
		}
		return literal{kind: literalNumber, num: parsed}, p.advance()
	case tokenIdent:
		switch p.current.text {
		case "true":
			return literal{kind: literalBool, boolean: true}, p.advance()
		case "false":
			return literal{kind: literalBool, boolean: false}, p.advance()
		}
		return literal{}, fmt.Errorf("unexpected identifier %q in value position", p.current.text)
	default:
		return literal{}, fmt.Errorf("expected value at %d", p.current.pos)
	}
}
