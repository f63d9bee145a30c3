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

// Package diff compares two display row sequences position by position.
package diff

import (
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/records"
)

// Unset marks an absent window bound.
const Unset = -1

// Options bound and tune a comparison.
type Options struct {
	// IgnoreBefore and IgnoreAfter limit the compared positions to
	// [IgnoreBefore, IgnoreAfter). A negative IgnoreBefore and a
	// non-positive IgnoreAfter mean no bound, so the zero Options compare
	// everything.
	IgnoreBefore int
	IgnoreAfter  int
	// Grouping enables the group row checks.
	Grouping bool
	// IDField is the identity field of leaf records.
	IDField string
	// Updated holds normalized ids (records.Key) that always count as changed.
	Updated map[any]struct{}
}

// Window returns the compared range [from, to) for a new sequence of n rows.
func (o Options) Window(n int) (from, to int) {
	from = max(0, o.IgnoreBefore)
	to = n
	if o.IgnoreAfter > 0 {
		to = min(n, o.IgnoreAfter)
	}
	return from, to
}

// Rows returns the ascending positions of newRows that changed relative to
// oldRows. Positions outside the window are never reported.
func Rows(oldRows, newRows []grouping.Row, o Options) []int {
	idField := o.IDField
	if idField == "" {
		idField = records.DefaultIDField
	}

	var changed []int
	from, to := o.Window(len(newRows))
	for i := from; i < to; i++ {
		if i >= len(oldRows) || rowChanged(oldRows[i], newRows[i], idField, o) {
			changed = append(changed, i)
		}
	}
	return changed
}

func rowChanged(prev, next grouping.Row, idField string, o Options) bool {
	if o.Grouping {
		prevGroup := prev.Kind == grouping.RowGroup
		nextGroup := next.Kind == grouping.RowGroup
		if (!prev.IsData() || !next.IsData()) && prevGroup != nextGroup {
			return true
		}
		if prevGroup && nextGroup && !prev.Group.Equal(next.Group) {
			return true
		}
	}

	if prev.Kind == grouping.RowTotals || next.Kind == grouping.RowTotals {
		return true
	}

	if prev.IsData() != next.IsData() {
		return true
	}
	if next.IsData() {
		nextID := records.Key(next.Record[idField])
		if records.Key(prev.Record[idField]) != nextID {
			return true
		}
		if _, ok := o.Updated[nextID]; ok {
			return true
		}
	}
	return false
}
