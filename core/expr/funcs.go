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
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/gridmodel/core/records"
)

// builtin is a function callable as f(x, ...) or, for the string
// functions, as x.f(...). minArgs and maxArgs include the receiver;
// maxArgs < 0 means variadic.
type builtin struct {
	minArgs, maxArgs int
	fn               func(args []any) (any, error)
}

var builtins map[string]builtin

func init() {
	str1 := func(f func(string) string) builtin {
		return builtin{1, 1, func(a []any) (any, error) { return f(records.String(a[0])), nil }}
	}
	str2 := func(f func(s, sub string) bool) builtin {
		return builtin{2, 2, func(a []any) (any, error) {
			return f(records.String(a[0]), records.String(a[1])), nil
		}}
	}

	builtins = map[string]builtin{
		"len":        {1, 1, fnLen},
		"str":        str1(func(s string) string { return s }),
		"lower":      str1(strings.ToLower),
		"upper":      str1(strings.ToUpper),
		"strip":      str1(strings.TrimSpace),
		"contains":   str2(strings.Contains),
		"startswith": str2(strings.HasPrefix),
		"endswith":   str2(strings.HasSuffix),
		"replace": {3, 3, func(a []any) (any, error) {
			return strings.ReplaceAll(records.String(a[0]), records.String(a[1]), records.String(a[2])), nil
		}},
		"float": {1, 1, fnFloat},
		"int": {1, 1, func(a []any) (any, error) {
			f, err := fnFloat(a)
			if err != nil || f == nil {
				return f, err
			}
			return math.Trunc(f.(float64)), nil
		}},
		"bool": {1, 1, func(a []any) (any, error) { return truthy(a[0]), nil }},
		"abs": {1, 1, func(a []any) (any, error) {
			f, ok := a[0].(float64)
			if !ok {
				return nil, fmt.Errorf("abs() requires a number, got %s", typeName(a[0]))
			}
			return math.Abs(f), nil
		}},
		"round":    {1, 2, fnRound},
		"min":      {1, -1, func(a []any) (any, error) { return extreme(a, -1) }},
		"max":      {1, -1, func(a []any) (any, error) { return extreme(a, 1) }},
		"coalesce": {1, -1, fnCoalesce},
	}
}

func fnLen(a []any) (any, error) {
	switch v := a[0].(type) {
	case string:
		return float64(utf8.RuneCountInString(v)), nil
	case []any:
		return float64(len(v)), nil
	case nil:
		return 0.0, nil
	}
	return nil, fmt.Errorf("len() requires a string or list, got %s", typeName(a[0]))
}

func fnFloat(a []any) (any, error) {
	switch v := a[0].(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to a number", v)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot convert %s to a number", typeName(a[0]))
}

func fnRound(a []any) (any, error) {
	f, ok := a[0].(float64)
	if !ok {
		return nil, fmt.Errorf("round() requires a number, got %s", typeName(a[0]))
	}
	digits := 0.0
	if len(a) == 2 {
		d, ok := a[1].(float64)
		if !ok {
			return nil, fmt.Errorf("round() digits must be a number")
		}
		digits = d
	}
	scale := math.Pow(10, digits)
	return math.Round(f*scale) / scale, nil
}

// extreme returns the smallest (sign < 0) or largest value, ignoring nils.
// A single list argument is expanded.
func extreme(a []any, sign int) (any, error) {
	if len(a) == 1 {
		if list, ok := a[0].([]any); ok {
			a = list
		}
	}
	var best any
	for _, v := range a {
		if v == nil {
			continue
		}
		if best == nil || records.Compare(v, best)*sign > 0 {
			best = v
		}
	}
	return best, nil
}

func fnCoalesce(a []any) (any, error) {
	for _, v := range a {
		if v != nil && v != "" {
			return v, nil
		}
	}
	return nil, nil
}

func callFunc(name string, args []any) (any, error) {
	b, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}
	if len(args) < b.minArgs || (b.maxArgs >= 0 && len(args) > b.maxArgs) {
		return nil, fmt.Errorf("%s() takes %s, got %d", name, arity(b), len(args))
	}
	return b.fn(args)
}

func arity(b builtin) string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.minArgs == b.maxArgs && b.minArgs == 1:
		return "1 argument"
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
}

// check validates function names and argument counts before evaluation.
func check(n Node) error {
	switch n := n.(type) {
	case *BinaryOp:
		if err := check(n.Left); err != nil {
			return err
		}
		return check(n.Right)
	case *UnaryOp:
		return check(n.Expr)
	case *List:
		for _, item := range n.Items {
			if err := check(item); err != nil {
				return err
			}
		}
	case *Call:
		return checkCall(n.Func, len(n.Args), n.Args)
	case *MethodCall:
		if err := check(n.Obj); err != nil {
			return err
		}
		return checkCall(n.Method, len(n.Args)+1, n.Args)
	}
	return nil
}

func checkCall(name string, argc int, args []Node) error {
	b, ok := builtins[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown function: %s", name)
	}
	if argc < b.minArgs || (b.maxArgs >= 0 && argc > b.maxArgs) {
		return fmt.Errorf("%s() takes %s, got %d", name, arity(b), argc)
	}
	for _, a := range args {
		if err := check(a); err != nil {
			return err
		}
	}
	return nil
}
