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

// Package records holds the canonical item store of a data view: an ordered
// sequence of records plus an identity index over them.
package records

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DefaultIDField is the identity field used when none is given.
const DefaultIDField = "id"

// Record is an opaque map of fields owned by the caller. Records are treated
// as immutable once handed to a Store; replace them through UpdateItem.
type Record map[string]any

// Get returns the value of a field, or nil if absent.
func (r Record) Get(field string) any {
	return r[field]
}

// Key normalizes an identity value so that numerically equal ids of different
// Go types (1, int64(1), 1.0 decoded from JSON) address the same record.
// Integers map to int64, or uint64 above math.MaxInt64; floats map to int64
// only when integral and exactly representable.
func Key(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return uintKey(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return uintKey(n)
	case float32:
		return floatKey(float64(n))
	case float64:
		return floatKey(n)
	}
	return v
}

func uintKey(n uint64) any {
	if n <= math.MaxInt64 {
		return int64(n)
	}
	return n
}

func floatKey(f float64) any {
	if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
		return int64(f)
	}
	if f == math.Trunc(f) && f >= 1<<63 && f < 1<<64 {
		return uint64(f)
	}
	return f
}

// ValidID reports whether v can identify a record: it is non-nil, its
// dynamic type supports ==, and it is not NaN.
func ValidID(v any) bool {
	if v == nil || !reflect.TypeOf(v).Comparable() {
		return false
	}
	switch f := v.(type) {
	case float64:
		return !math.IsNaN(f)
	case float32:
		return !math.IsNaN(float64(f))
	}
	return true
}

// Float converts a field value to a float64. Strings are parsed; booleans,
// nil and other types report ok=false.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case time.Duration:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String renders a field value for display and string comparison.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	case fmt.Stringer:
		return s.String()
	}
	if f, ok := Float(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Compare orders two field values.
// nil sorts first, numbers compare numerically (NaN last), times
// chronologically, booleans false before true, everything else by its
// string form. A number and a non-numeric string compare as strings.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return compareBools(ba, bb)
		}
	}

	fa, okA := Float(a)
	fb, okB := Float(b)
	if okA && okB {
		return compareFloat64s(fa, fb)
	}

	return strings.Compare(String(a), String(b))
}

// compareBools compares two bool values (false < true)
func compareBools(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// compareFloat64s compares two float64 values with NaN handling.
// NaN values are considered greater than all other values (sort to end).
func compareFloat64s(a, b float64) int {
	aNaN := math.IsNaN(a)
	bNaN := math.IsNaN(b)

	if aNaN && bNaN {
		return 0
	}
	if aNaN {
		return 1
	}
	if bNaN {
		return -1
	}

	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
