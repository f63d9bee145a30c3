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
	"testing"
	"time"

	"github.com/google/gridmodel/core/records"
)

var testRecord = records.Record{
	"id":       7,
	"price":    10.5,
	"qty":      int64(4),
	"name":     "Apple",
	"category": "fruit",
	"in_stock": true,
	"missing":  nil,
	"added":    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
}

func evalString(t *testing.T, src string) any {
	t.Helper()
	e, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", src, err)
	}
	v, err := e.Eval(testRecord, nil)
	if err != nil {
		t.Fatalf("Eval(%q) error: %v", src, err)
	}
	return v
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr     string
		expected float64
	}{
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"20 / 4", 5},
		{"7 % 3", 1},
		{"(1 + 2) * 3", 9},
		{"1 + 2 * 3", 7},
		{"-5", -5},
		{"--5", 5},
		{"price * qty", 42},
		{"round(price / 4, 1)", 2.6},
		{"abs(-3)", 3},
		{"int('12.9')", 12},
		{"max(1, qty, 3)", 4},
		{"min([5, 2, 8])", 2},
		{"len(name)", 5},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := evalString(t, tt.expr)
			if got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		expr     string
		expected any
	}{
		{"name + '-' + category", "Apple-fruit"},
		{"lower(name)", "apple"},
		{"name.upper()", "APPLE"},
		{"'  x '.strip()", "x"},
		{"name.replace('A', 'a')", "apple"},
		{"str(qty) + 'x'", "4x"},
		{"coalesce(missing, '', category)", "fruit"},
		{`"a\tb"`, "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := evalString(t, tt.expr); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		expr     string
		expected bool
	}{
		{"price > 10", true},
		{"price > 10 and qty < 4", false},
		{"price > 10 or qty < 4", true},
		{"not in_stock", false},
		{"not price > 100", true},
		{"category == 'fruit'", true},
		{"category != 'fruit'", false},
		{"id == 7.0", true},
		{"qty in [1, 2, 4]", true},
		{"qty not in [1, 2, 4]", false},
		{"'pp' in name", true},
		{"name.startswith('Ap')", true},
		{"endswith(name, 'x')", false},
		{"missing == none", true},
		{"missing > 3", false},
		{"unknown_field == none", true},
		{"in_stock == TRUE", true},
		{"added > '2024-01-01'", true},
		{"category >= 'apple' and category < 'grape'", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile error: %v", err)
			}
			if got := e.Match(testRecord, nil); got != tt.expected {
				t.Errorf("Match(%s) = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestFilterArgs(t *testing.T) {
	e := MustCompile("price >= threshold")
	if !e.Match(testRecord, map[string]any{"threshold": 10}) {
		t.Error("expected match for threshold 10")
	}
	if e.Match(testRecord, map[string]any{"threshold": 11}) {
		t.Error("expected no match for threshold 11")
	}
	// Record fields shadow arguments.
	if !MustCompile("price == 10.5").Match(testRecord, map[string]any{"price": 1}) {
		t.Error("record field should win over argument")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []string{
		"",
		"1 +",
		"(1 + 2",
		"a = 1",
		"'unterminated",
		"nosuchfn(1)",
		"len(1, 2)",
		"name.nosuchmethod()",
		"1 2",
		"x == not y",
		"#",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			if _, err := Compile(src); err == nil {
				t.Errorf("Compile(%q) expected error", src)
			}
		})
	}
}

func TestRuntimeErrorsDoNotMatch(t *testing.T) {
	e := MustCompile("price / 0 > 1")
	if _, err := e.Eval(testRecord, nil); err == nil {
		t.Error("expected division by zero error")
	}
	if e.Match(testRecord, nil) {
		t.Error("runtime errors must not match")
	}
	if v := MustCompile("name * 2").Value(testRecord); v != nil {
		t.Errorf("Value on error = %v, want nil", v)
	}
}

func TestFields(t *testing.T) {
	e := MustCompile("price * qty > min_total and lower(name) in ['a', name]")
	got := e.Fields()
	want := []string{"price", "qty", "min_total", "name"}
	if len(got) != len(want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func BenchmarkMatch(b *testing.B) {
	e := MustCompile("price > 10 and category == 'fruit' and name.startswith('A')")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Match(testRecord, nil)
	}
}
