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

// TokenType represents the type of a token
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_IDENT
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_PERCENT
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACKET
	TOKEN_RBRACKET
	TOKEN_COMMA
	TOKEN_DOT
	TOKEN_EQ // ==
	TOKEN_NE // !=
	TOKEN_LT
	TOKEN_GT
	TOKEN_LE
	TOKEN_GE
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_IN
	TOKEN_TRUE
	TOKEN_FALSE
	TOKEN_NONE
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:      "end of expression",
	TOKEN_NUMBER:   "number",
	TOKEN_STRING:   "string",
	TOKEN_IDENT:    "identifier",
	TOKEN_PLUS:     "'+'",
	TOKEN_MINUS:    "'-'",
	TOKEN_STAR:     "'*'",
	TOKEN_SLASH:    "'/'",
	TOKEN_PERCENT:  "'%'",
	TOKEN_LPAREN:   "'('",
	TOKEN_RPAREN:   "')'",
	TOKEN_LBRACKET: "'['",
	TOKEN_RBRACKET: "']'",
	TOKEN_COMMA:    "','",
	TOKEN_DOT:      "'.'",
	TOKEN_EQ:       "'=='",
	TOKEN_NE:       "'!='",
	TOKEN_LT:       "'<'",
	TOKEN_GT:       "'>'",
	TOKEN_LE:       "'<='",
	TOKEN_GE:       "'>='",
	TOKEN_AND:      "'and'",
	TOKEN_OR:       "'or'",
	TOKEN_NOT:      "'not'",
	TOKEN_IN:       "'in'",
	TOKEN_TRUE:     "'true'",
	TOKEN_FALSE:    "'false'",
	TOKEN_NONE:     "'none'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown token"
}

// keywords are matched case-insensitively so that Python spellings work.
var keywords = map[string]TokenType{
	"and":   TOKEN_AND,
	"or":    TOKEN_OR,
	"not":   TOKEN_NOT,
	"in":    TOKEN_IN,
	"true":  TOKEN_TRUE,
	"false": TOKEN_FALSE,
	"none":  TOKEN_NONE,
	"null":  TOKEN_NONE,
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}
