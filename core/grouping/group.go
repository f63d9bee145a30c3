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
	"strings"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/records"
)

// Delimiter joins the per-level values of a grouping key. Group values must
// not contain it.
const Delimiter = ":|:"

// Terminology:
// * a grouping level is one Spec; level 0 is the outermost
// * the leaf level is the deepest level, its groups hold records
// * groups of the other levels hold subgroups (and keep their records for
//   aggregation)

// Group is one bucket of a grouping level.
type Group struct {
	Level       int
	Value       any
	Title       string
	GroupingKey string
	Count       int
	Collapsed   bool
	Rows        []records.Record
	Groups      []*Group
	Totals      *Totals
	Parent      *Group
}

// Equal reports whether g and o would render the same group row. It does not
// compare members.
func (g *Group) Equal(o *Group) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.Count == o.Count &&
		g.Collapsed == o.Collapsed &&
		g.Title == o.Title &&
		records.String(g.Value) == records.String(o.Value)
}

// Values returns the group values from the top level down to g.
func (g *Group) Values() []any {
	var values []any
	for p := g; p != nil; p = p.Parent {
		values = append(values, p.Value)
	}
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values
}

// Height returns the number of leaf records below g.
func (g *Group) Height() int {
	if len(g.Groups) == 0 {
		return len(g.Rows)
	}
	height := 0
	for _, child := range g.Groups {
		height += child.Height()
	}
	return height
}

// Totals holds the aggregator results of one group.
type Totals struct {
	Group *Group
	// Initialized is false while a lazy calculation is pending.
	Initialized bool
	Results     *aggregates.Results
}

// JoinKey builds a grouping key from per-level values.
func JoinKey(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = records.String(v)
	}
	return strings.Join(parts, Delimiter)
}

// KeyLevel returns the level of a pre-joined grouping key.
func KeyLevel(key string) int {
	return strings.Count(key, Delimiter)
}

func childKey(parent *Group, value any) string {
	if parent == nil {
		return records.String(value)
	}
	return parent.GroupingKey + Delimiter + records.String(value)
}
