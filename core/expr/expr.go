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

	"github.com/google/gridmodel/core/records"
)

// Expression represents a compiled expression ready for evaluation
type Expression struct {
	source string
	ast    Node
}

// Compile parses and checks an expression string
func Compile(source string) (*Expression, error) {
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}
	ast, err := Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := check(ast); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &Expression{source: source, ast: ast}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(source string) *Expression {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the original expression source
func (e *Expression) Source() string {
	return e.source
}

// Fields returns the field names the expression references.
func (e *Expression) Fields() []string {
	return Fields(e.ast)
}

// Eval evaluates the expression for one record. args, when a
// map[string]any, supplies values for names the record lacks.
func (e *Expression) Eval(r records.Record, args any) (any, error) {
	ev := &evaluator{record: r}
	if m, ok := args.(map[string]any); ok {
		ev.args = m
	}
	return ev.eval(e.ast)
}

// Match reports whether the expression is truthy for r. Evaluation errors
// count as no match. Match makes an Expression a filtering.Predicate.
func (e *Expression) Match(r records.Record, args any) bool {
	v, err := e.Eval(r, args)
	return err == nil && truthy(v)
}

// Value evaluates the expression without arguments and returns nil on
// error. It has the shape of a group value getter.
func (e *Expression) Value(r records.Record) any {
	v, err := e.Eval(r, nil)
	if err != nil {
		return nil
	}
	return v
}
