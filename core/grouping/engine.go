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

// Package grouping buckets records into a tree of groups, one tree level per
// grouping Spec, computes group totals and flattens the tree into display rows.
package grouping

import (
	"slices"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/records"
)

// Engine runs the grouping stages for a fixed list of levels and owns the
// collapse overrides of those levels.
type Engine struct {
	specs   []*Spec
	toggles *ToggleState
}

// NewEngine creates an engine for specs. An engine without specs groups
// nothing.
func NewEngine(specs ...*Spec) *Engine {
	return &Engine{
		specs:   specs,
		toggles: NewToggleState(len(specs)),
	}
}

// Specs returns the grouping levels.
func (e *Engine) Specs() []*Spec { return e.specs }

// Active reports whether at least one level is configured.
func (e *Engine) Active() bool { return len(e.specs) > 0 }

// Toggles returns the collapse overrides.
func (e *Engine) Toggles() *ToggleState { return e.toggles }

func (e *Engine) isLeafLevel(level int) bool {
	return level >= len(e.specs)-1
}

// IsCollapsed returns the effective collapsed state of a grouping key.
func (e *Engine) IsCollapsed(level int, key string) bool {
	if level < 0 || level >= len(e.specs) {
		return false
	}
	return e.specs[level].Collapsed != e.toggles.Get(level, key)
}

// ExpandCollapseGroup records an explicit state for one group. It takes
// effect on the next pass.
func (e *Engine) ExpandCollapseGroup(level int, key string, collapse bool) {
	if level < 0 || level >= len(e.specs) {
		return
	}
	e.toggles.Set(level, key, e.specs[level].Collapsed != collapse)
}

// ExpandCollapseAllGroups drops the overrides of level (every level when
// level < 0) and makes collapse its default state.
func (e *Engine) ExpandCollapseAllGroups(level int, collapse bool) {
	for i, spec := range e.specs {
		if level < 0 || level == i {
			e.toggles.Reset(i)
			spec.Collapsed = collapse
		}
	}
}

// ExtractGroups buckets rows by the level below parent (level 0 when parent
// is nil). Predefined groups come first in their declared order, the others
// in first-seen order. Non-leaf groups are subgrouped recursively.
func (e *Engine) ExtractGroups(rows []records.Record, parent *Group) []*Group {
	level := 0
	if parent != nil {
		level = parent.Level + 1
	}
	if level >= len(e.specs) {
		return nil
	}
	spec := e.specs[level]

	var groups []*Group
	byValue := make(map[string]*Group)
	lookup := func(v any) *Group {
		k := records.String(v)
		if g, ok := byValue[k]; ok {
			return g
		}
		g := &Group{
			Level:       level,
			Value:       v,
			GroupingKey: childKey(parent, v),
			Parent:      parent,
		}
		groups = append(groups, g)
		byValue[k] = g
		return g
	}

	for _, v := range spec.PredefinedValues {
		lookup(v)
	}
	for _, r := range rows {
		g := lookup(spec.value(r))
		g.Rows = append(g.Rows, r)
		g.Count++
	}

	if !e.isLeafLevel(level) {
		for _, g := range groups {
			g.Groups = e.ExtractGroups(g.Rows, g)
		}
	}
	return groups
}

// AddTotals sets the collapsed state and title of every group and attaches
// totals where the level aggregates. Subgroups are handled first so that a
// parent can fold their totals.
func (e *Engine) AddTotals(groups []*Group, level int) {
	if level >= len(e.specs) {
		return
	}
	spec := e.specs[level]
	for _, g := range groups {
		g.Collapsed = e.IsCollapsed(level, g.GroupingKey)
		g.Totals = nil

		if len(g.Groups) > 0 {
			e.AddTotals(g.Groups, level+1)
		}

		if (!g.Collapsed || spec.AggregateCollapsed) && len(spec.Aggregators) > 0 &&
			(len(g.Rows) > 0 || len(g.Groups) > 0 || spec.AggregateEmpty) {
			g.Totals = &Totals{Group: g, Results: aggregates.NewResults()}
			if !spec.LazyTotalsCalculation {
				e.CalculateTotals(g.Totals)
			}
		}
		g.Title = spec.title(g)
	}
}

// CalculateTotals runs the level's aggregators over the group, last declared
// aggregator first. A non-leaf level with AggregateChildGroups folds the
// subgroup totals instead of the records.
func (e *Engine) CalculateTotals(t *Totals) {
	g := t.Group
	spec := e.specs[g.Level]
	fromChildren := spec.AggregateChildGroups && !e.isLeafLevel(g.Level)

	if fromChildren {
		for _, child := range g.Groups {
			if child.Totals != nil && !child.Totals.Initialized {
				e.CalculateTotals(child.Totals)
			}
		}
	}
	if t.Results == nil {
		t.Results = aggregates.NewResults()
	}

	for i := len(spec.Aggregators) - 1; i >= 0; i-- {
		agg := spec.Aggregators[i]
		agg.Init()
		if fromChildren {
			for _, child := range g.Groups {
				accumulateChild(agg, child)
			}
		} else {
			for _, r := range g.Rows {
				agg.Accumulate(r)
			}
		}
		agg.StoreResult(t.Results)
	}
	t.Initialized = true
}

// accumulateChild folds the child's stored state when there is one and
// falls back to the child's records otherwise.
func accumulateChild(agg aggregates.Aggregator, child *Group) {
	if ca, ok := agg.(aggregates.ChildAccumulator); ok && child.Totals != nil {
		if res := child.Totals.Results; res.State(agg.Type(), agg.Field()) != nil {
			ca.AccumulateChild(res)
			return
		}
	}
	for _, r := range child.Rows {
		agg.Accumulate(r)
	}
}

// SortGroups orders every level of the tree, children first.
func (e *Engine) SortGroups(groups []*Group) {
	if len(groups) == 0 {
		return
	}
	for _, g := range groups {
		e.SortGroups(g.Groups)
	}
	spec := e.specs[groups[0].Level]
	slices.SortStableFunc(groups, spec.compare)
}

// Flatten walks the tree depth first and returns the display rows: each
// group row, then its members unless collapsed, then its totals row.
func (e *Engine) Flatten(groups []*Group) []Row {
	return e.flatten(make([]Row, 0, len(groups)), groups)
}

func (e *Engine) flatten(out []Row, groups []*Group) []Row {
	for _, g := range groups {
		spec := e.specs[g.Level]
		out = append(out, GroupRow(g))
		if !g.Collapsed {
			if e.isLeafLevel(g.Level) {
				for _, r := range g.Rows {
					out = append(out, LeafRow(r))
				}
			} else {
				out = e.flatten(out, g.Groups)
			}
		}
		if g.Totals != nil && spec.DisplayTotalsRow && (!g.Collapsed || spec.AggregateCollapsed) {
			out = append(out, TotalsRow(g.Totals))
		}
	}
	return out
}

// Build runs extraction, totals and sorting and returns the sorted tree.
func (e *Engine) Build(rows []records.Record) []*Group {
	groups := e.ExtractGroups(rows, nil)
	e.AddTotals(groups, 0)
	e.SortGroups(groups)
	return groups
}

// EnsureTotals computes deferred totals of a row about to be read. A group
// row only triggers the calculation when its level shows no totals row; its
// title is then rebuilt so a formatter can use the totals.
func (e *Engine) EnsureTotals(row Row) {
	switch row.Kind {
	case RowGroup:
		g := row.Group
		if g.Totals == nil || g.Totals.Initialized {
			return
		}
		spec := e.specs[g.Level]
		if !spec.DisplayTotalsRow {
			e.CalculateTotals(g.Totals)
			g.Title = spec.title(g)
		}
	case RowTotals:
		if !row.Totals.Initialized {
			e.CalculateTotals(row.Totals)
		}
	}
}
