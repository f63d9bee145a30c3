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

package grouping

import (
	"fmt"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/expr"
	"github.com/google/gridmodel/core/records"
)

// Getter extracts the group value of a record.
type Getter func(r records.Record) any

// FieldGetter returns a Getter reading one field.
func FieldGetter(field string) Getter {
	return func(r records.Record) any { return r[field] }
}

// ExprGetter compiles an expression into a Getter, e.g. "round(price / 10) * 10".
func ExprGetter(source string) (Getter, error) {
	e, err := expr.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("group value: %w", err)
	}
	return e.Value, nil
}

// Spec describes one grouping level.
type Spec struct {
	// Field is the grouped field. It is informational when Getter is set.
	Field string
	// Getter computes the group value. Nil means FieldGetter(Field).
	Getter Getter
	// Formatter builds the group title. Nil means the value's string form.
	Formatter func(g *Group) string
	// Comparer orders the groups of this level. Nil means CompareValues.
	Comparer func(a, b *Group) int
	// PredefinedValues are groups that exist even when empty, in this order.
	PredefinedValues []any
	Aggregators      []aggregates.Aggregator

	AggregateEmpty        bool
	AggregateCollapsed    bool
	AggregateChildGroups  bool
	LazyTotalsCalculation bool
	// Collapsed is the default collapsed state of the level's groups.
	Collapsed        bool
	DisplayTotalsRow bool
}

// NewSpec returns a level grouped by field, displaying totals rows.
func NewSpec(field string) *Spec {
	return &Spec{
		Field:            field,
		DisplayTotalsRow: true,
	}
}

// CompareValues is the default group comparer: numeric when both values are
// numbers, otherwise by string form.
func CompareValues(a, b *Group) int {
	return records.Compare(a.Value, b.Value)
}

func (s *Spec) value(r records.Record) any {
	if s.Getter != nil {
		return s.Getter(r)
	}
	return r[s.Field]
}

func (s *Spec) title(g *Group) string {
	if s.Formatter != nil {
		return s.Formatter(g)
	}
	return records.String(g.Value)
}

func (s *Spec) compare(a, b *Group) int {
	if s.Comparer != nil {
		return s.Comparer(a, b)
	}
	return CompareValues(a, b)
}
