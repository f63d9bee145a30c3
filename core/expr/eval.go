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
	"math"
	"strings"
	"time"

	"github.com/google/gridmodel/core/records"
)

// Runtime values are nil, float64, string, bool, time.Time and []any.

// normalize converts a record field value to a runtime value.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, time.Time, float64, []any:
		return t
	}
	if f, ok := records.Float(v); ok {
		return f
	}
	return records.String(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case time.Time:
		return !t.IsZero()
	}
	return true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case time.Time:
		return "datetime"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

func equal(a, b any) bool {
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && fa == fb
	}
	switch ta := a.(type) {
	case nil:
		return b == nil
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case time.Time:
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return false
}

// evaluator evaluates an AST against one record.
type evaluator struct {
	record records.Record
	args   map[string]any
}

func (e *evaluator) eval(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil

	case *Field:
		if v, ok := e.record[n.Name]; ok {
			return normalize(v), nil
		}
		if v, ok := e.args[n.Name]; ok {
			return normalize(v), nil
		}
		return nil, nil

	case *List:
		items := make([]any, len(n.Items))
		for i, item := range n.Items {
			v, err := e.eval(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil

	case *UnaryOp:
		v, err := e.eval(n.Expr)
		if err != nil {
			return nil, err
		}
		if n.Op == TOKEN_NOT {
			return !truthy(v), nil
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("cannot negate %s", typeName(v))
		}
		return -f, nil

	case *BinaryOp:
		left, err := e.eval(n.Left)
		if err != nil {
			return nil, err
		}
		// and/or short-circuit and yield booleans.
		switch n.Op {
		case TOKEN_AND:
			if !truthy(left) {
				return false, nil
			}
			right, err := e.eval(n.Right)
			return truthy(right), err
		case TOKEN_OR:
			if truthy(left) {
				return true, nil
			}
			right, err := e.eval(n.Right)
			return truthy(right), err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, left, right)

	case *Call:
		args, err := e.evalArgs(n.Args)
		if err != nil {
			return nil, err
		}
		return callFunc(n.Func, args)

	case *MethodCall:
		obj, err := e.eval(n.Obj)
		if err != nil {
			return nil, err
		}
		args, err := e.evalArgs(n.Args)
		if err != nil {
			return nil, err
		}
		return callFunc(n.Method, append([]any{obj}, args...))
	}
	return nil, fmt.Errorf("unknown node type %T", n)
}

func (e *evaluator) evalArgs(nodes []Node) ([]any, error) {
	args := make([]any, len(nodes))
	for i, a := range nodes {
		v, err := e.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func binary(op TokenType, left, right any) (any, error) {
	switch op {
	case TOKEN_EQ:
		return equal(left, right), nil
	case TOKEN_NE:
		return !equal(left, right), nil
	case TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		if left == nil || right == nil {
			// Comparisons with a missing value never hold.
			return false, nil
		}
		c := records.Compare(left, right)
		switch op {
		case TOKEN_LT:
			return c < 0, nil
		case TOKEN_GT:
			return c > 0, nil
		case TOKEN_LE:
			return c <= 0, nil
		default:
			return c >= 0, nil
		}
	case TOKEN_IN:
		switch r := right.(type) {
		case []any:
			for _, item := range r {
				if equal(left, item) {
					return true, nil
				}
			}
			return false, nil
		case string:
			return strings.Contains(r, records.String(left)), nil
		}
		return nil, fmt.Errorf("'in' requires a list or string, got %s", typeName(right))
	}

	// String concatenation with +
	if op == TOKEN_PLUS {
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return records.String(left) + records.String(right), nil
		}
	}

	l, lok := left.(float64)
	r, rok := right.(float64)
	if !lok || !rok {
		return nil, fmt.Errorf("arithmetic operations require numbers, got %s and %s", typeName(left), typeName(right))
	}
	switch op {
	case TOKEN_PLUS:
		return l + r, nil
	case TOKEN_MINUS:
		return l - r, nil
	case TOKEN_STAR:
		return l * r, nil
	case TOKEN_SLASH:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case TOKEN_PERCENT:
		if r == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return math.Mod(l, r), nil
	}
	return nil, fmt.Errorf("unknown operator %v", op)
}
