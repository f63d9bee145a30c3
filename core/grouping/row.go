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
	"github.com/google/gridmodel/core/records"
)

// RowKind tags a display row.
type RowKind int

const (
	RowLeaf RowKind = iota
	RowGroup
	RowTotals
)

func (k RowKind) String() string {
	switch k {
	case RowLeaf:
		return "leaf"
	case RowGroup:
		return "group"
	case RowTotals:
		return "totals"
	}
	return "unknown"
}

// Row is one element of the display sequence: a record, a group header or
// a group's totals. Exactly one of Record, Group, Totals is set, matching Kind.
type Row struct {
	Kind   RowKind
	Record records.Record
	Group  *Group
	Totals *Totals
}

// LeafRow wraps a record.
func LeafRow(r records.Record) Row { return Row{Kind: RowLeaf, Record: r} }

// GroupRow wraps a group header.
func GroupRow(g *Group) Row { return Row{Kind: RowGroup, Group: g} }

// TotalsRow wraps a group's totals.
func TotalsRow(t *Totals) Row { return Row{Kind: RowTotals, Totals: t} }

// IsData reports whether the row is a record.
func (r Row) IsData() bool { return r.Kind == RowLeaf }

// LeafRows wraps every record as a leaf row.
func LeafRows(rs []records.Record) []Row {
	out := make([]Row, len(rs))
	for i, r := range rs {
		out[i] = LeafRow(r)
	}
	return out
}
