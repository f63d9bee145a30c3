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
	"strings"
	"unicode"
	"unicode/utf8"
)

// operators maps one and two character operators to their token.
var operators = map[string]TokenType{
	"+":  TOKEN_PLUS,
	"-":  TOKEN_MINUS,
	"*":  TOKEN_STAR,
	"/":  TOKEN_SLASH,
	"%":  TOKEN_PERCENT,
	"(":  TOKEN_LPAREN,
	")":  TOKEN_RPAREN,
	"[":  TOKEN_LBRACKET,
	"]":  TOKEN_RBRACKET,
	",":  TOKEN_COMMA,
	".":  TOKEN_DOT,
	"==": TOKEN_EQ,
	"!=": TOKEN_NE,
	"<":  TOKEN_LT,
	">":  TOKEN_GT,
	"<=": TOKEN_LE,
	">=": TOKEN_GE,
}

// Tokenize splits an expression into tokens. The last token is always EOF.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for {
		for pos < len(input) && strings.ContainsRune(" \t\r\n", rune(input[pos])) {
			pos++
		}
		if pos >= len(input) {
			return append(tokens, Token{Type: TOKEN_EOF, Pos: pos}), nil
		}

		start := pos
		ch, size := utf8.DecodeRuneInString(input[pos:])
		switch {
		case isDigit(ch) || (ch == '.' && pos+1 < len(input) && isDigit(rune(input[pos+1]))):
			pos = scanNumber(input, pos)
			tokens = append(tokens, Token{Type: TOKEN_NUMBER, Value: input[start:pos], Pos: start})

		case ch == '"' || ch == '\'':
			value, next, err := scanString(input, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			tokens = append(tokens, Token{Type: TOKEN_STRING, Value: value, Pos: start})

		case unicode.IsLetter(ch) || ch == '_':
			for pos < len(input) {
				r, n := utf8.DecodeRuneInString(input[pos:])
				if !unicode.IsLetter(r) && !isDigit(r) && r != '_' {
					break
				}
				pos += n
			}
			word := input[start:pos]
			typ := TOKEN_IDENT
			if kw, ok := keywords[strings.ToLower(word)]; ok {
				typ = kw
			}
			tokens = append(tokens, Token{Type: typ, Value: word, Pos: start})

		default:
			if pos+2 <= len(input) {
				if typ, ok := operators[input[pos:pos+2]]; ok {
					pos += 2
					tokens = append(tokens, Token{Type: typ, Value: input[start:pos], Pos: start})
					continue
				}
			}
			typ, ok := operators[string(ch)]
			if !ok {
				if ch == '=' {
					return nil, fmt.Errorf("unexpected '=' at position %d, did you mean '=='?", start)
				}
				return nil, fmt.Errorf("unexpected character %q at position %d", ch, start)
			}
			pos += size
			tokens = append(tokens, Token{Type: typ, Value: input[start:pos], Pos: start})
		}
	}
}

func scanNumber(input string, pos int) int {
	seenDot := false
	for pos < len(input) {
		c := input[pos]
		if c == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if !isDigit(rune(c)) {
			break
		}
		pos++
	}
	return pos
}

var escapes = map[byte]byte{'n': '\n', 't': '\t', 'r': '\r'}

func scanString(input string, pos int) (string, int, error) {
	quote := input[pos]
	start := pos
	pos++
	var sb strings.Builder
	for pos < len(input) && input[pos] != quote {
		c := input[pos]
		if c == '\\' && pos+1 < len(input) {
			pos++
			c = input[pos]
			if e, ok := escapes[c]; ok {
				c = e
			}
		}
		sb.WriteByte(c)
		pos++
	}
	if pos >= len(input) {
		return "", 0, fmt.Errorf("unterminated string starting at position %d", start)
	}
	return sb.String(), pos + 1, nil
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
