/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Gridmodel Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package expr

import (
	"fmt"
	"strconv"
)

// Precedence (low to high):
// 1. or
// 2. and
// 3. not (prefix)
// 4. ==, !=, <, >, <=, >=, in, not in
// 5. +, -
// 6. *, /, %
// 7. unary -
// 8. calls, method calls
var binaryPrec = map[TokenType]int{
	TOKEN_OR:      1,
	TOKEN_AND:     2,
	TOKEN_EQ:      4,
	TOKEN_NE:      4,
	TOKEN_LT:      4,
	TOKEN_GT:      4,
	TOKEN_LE:      4,
	TOKEN_GE:      4,
	TOKEN_IN:      4,
	TOKEN_PLUS:    5,
	TOKEN_MINUS:   5,
	TOKEN_STAR:    6,
	TOKEN_SLASH:   6,
	TOKEN_PERCENT: 6,
}

const notPrec = 3

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
}

// Parse parses a complete expression.
func Parse(input string) (Node, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	n, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if tok := p.cur(); tok.Type != TOKEN_EOF {
		return nil, fmt.Errorf("unexpected %v at position %d", tok.Type, tok.Pos)
	}
	return n, nil
}

func (p *Parser) cur() Token { return p.tokens[p.pos] }

func (p *Parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(typ TokenType) error {
	if tok := p.cur(); tok.Type != typ {
		return fmt.Errorf("expected %v at position %d, got %v", typ, tok.Pos, tok.Type)
	}
	p.advance()
	return nil
}

// parseBinary is a precedence climbing loop over left associative operators.
func (p *Parser) parseBinary(minPrec int) (Node, error) {
	var left Node
	var err error
	if p.cur().Type == TOKEN_NOT && minPrec <= notPrec {
		p.advance()
		operand, err := p.parseBinary(notPrec)
		if err != nil {
			return nil, err
		}
		left = &UnaryOp{Op: TOKEN_NOT, Expr: operand}
	} else if left, err = p.parseUnary(); err != nil {
		return nil, err
	}

	for {
		tok := p.cur()
		negate := false
		op := tok.Type
		if op == TOKEN_NOT && p.peek().Type == TOKEN_IN {
			negate, op = true, TOKEN_IN
		}
		prec, ok := binaryPrec[op]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		if negate {
			p.advance()
		}
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
		if negate {
			left = &UnaryOp{Op: TOKEN_NOT, Expr: left}
		}
	}
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur().Type == TOKEN_MINUS {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: TOKEN_MINUS, Expr: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == TOKEN_DOT {
		p.advance()
		name := p.cur()
		if name.Type != TOKEN_IDENT {
			return nil, fmt.Errorf("expected method name after '.' at position %d", name.Pos)
		}
		p.advance()
		args, err := p.parseList(TOKEN_LPAREN, TOKEN_RPAREN)
		if err != nil {
			return nil, err
		}
		n = &MethodCall{Obj: n, Method: name.Value, Args: args}
	}
	return n, nil
}

// parseList parses open item, item, ... close.
func (p *Parser) parseList(open, closing TokenType) ([]Node, error) {
	if err := p.expect(open); err != nil {
		return nil, err
	}
	var items []Node
	for p.cur().Type != closing {
		item, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur().Type != TOKEN_COMMA {
			break
		}
		p.advance()
	}
	if err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.cur()
	switch tok.Type {
	case TOKEN_NUMBER:
		p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", tok.Value)
		}
		return &Literal{Value: val}, nil

	case TOKEN_STRING:
		p.advance()
		return &Literal{Value: tok.Value}, nil

	case TOKEN_TRUE, TOKEN_FALSE:
		p.advance()
		return &Literal{Value: tok.Type == TOKEN_TRUE}, nil

	case TOKEN_NONE:
		p.advance()
		return &Literal{Value: nil}, nil

	case TOKEN_IDENT:
		p.advance()
		if p.cur().Type == TOKEN_LPAREN {
			args, err := p.parseList(TOKEN_LPAREN, TOKEN_RPAREN)
			if err != nil {
				return nil, err
			}
			return &Call{Func: tok.Value, Args: args}, nil
		}
		return &Field{Name: tok.Value}, nil

	case TOKEN_LBRACKET:
		items, err := p.parseList(TOKEN_LBRACKET, TOKEN_RBRACKET)
		if err != nil {
			return nil, err
		}
		return &List{Items: items}, nil

	case TOKEN_LPAREN:
		p.advance()
		n, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return n, nil

	case TOKEN_EOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %v at position %d", tok.Type, tok.Pos)
}
