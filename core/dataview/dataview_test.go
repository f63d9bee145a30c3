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

package dataview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/diff"
	"github.com/google/gridmodel/core/events"
	"github.com/google/gridmodel/core/filtering"
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/paging"
	"github.com/google/gridmodel/core/records"
)

func abItems() []records.Record {
	return []records.Record{
		{"id": 1, "cat": "a", "v": 10},
		{"id": 2, "cat": "b", "v": 5},
		{"id": 3, "cat": "a", "v": 7},
	}
}

func numbered(n int) []records.Record {
	items := make([]records.Record, n)
	for i := range items {
		items[i] = records.Record{"id": i, "v": i, "parity": i % 2}
	}
	return items
}

// describe renders the display rows of dv as short strings.
func describe(dv *DataView) []string {
	out := make([]string, dv.Length())
	for i := range out {
		row, _ := dv.Item(i)
		switch row.Kind {
		case grouping.RowLeaf:
			out[i] = fmt.Sprint(row.Record["id"])
		case grouping.RowGroup:
			out[i] = "g:" + row.Group.GroupingKey
		case grouping.RowTotals:
			out[i] = "t:" + row.Totals.Group.GroupingKey
		}
	}
	return out
}

func ids(rs []records.Record) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = r["id"]
	}
	return out
}

// recorder collects the notifications of one DataView.
type recorder struct {
	rowCounts []RowCountChanged
	rows      [][]int
	paging    []paging.Info
	filtered  int
	groups    int
	itemsSet  int
}

func record(dv *DataView) *recorder {
	rec := &recorder{}
	dv.OnRowCountChanged().Subscribe(func(_ *events.EventData, a RowCountChanged) {
		rec.rowCounts = append(rec.rowCounts, a)
	})
	dv.OnRowsChanged().Subscribe(func(_ *events.EventData, a RowsChanged) {
		rec.rows = append(rec.rows, a.Rows)
	})
	dv.OnPagingInfoChanged().Subscribe(func(_ *events.EventData, a PagingInfoChanged) {
		rec.paging = append(rec.paging, a.Info)
	})
	dv.OnFilteredItemsChanged().Subscribe(func(_ *events.EventData, _ FilteredItemsChanged) {
		rec.filtered++
	})
	dv.OnGroupsChanged().Subscribe(func(_ *events.EventData, _ GroupsChanged) {
		rec.groups++
	})
	dv.OnItemsSet().Subscribe(func(_ *events.EventData, _ ItemsSet) {
		rec.itemsSet++
	})
	return rec
}

var belowThreshold = filtering.PredicateFunc(func(r records.Record, args any) bool {
	return r["v"].(int) < args.(int)
})

func TestSetItems(t *testing.T) {
	dv := New()
	rec := record(dv)

	require.NoError(t, dv.SetItems(abItems(), "id"))
	assert.Equal(t, 3, dv.Length())
	assert.Equal(t, []string{"1", "2", "3"}, describe(dv))
	assert.Equal(t, []RowCountChanged{{Previous: 0, Current: 3}}, rec.rowCounts)
	assert.Equal(t, [][]int{{0, 1, 2}}, rec.rows)
	assert.Equal(t, 1, rec.itemsSet)
	assert.Equal(t, 1, rec.filtered)

	for i, item := range dv.Items() {
		idx, ok := dv.IdxByID(item["id"])
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
}

func TestSetItemsRejectsBadIdentity(t *testing.T) {
	tests := []struct {
		name  string
		items []records.Record
	}{
		{"duplicate", []records.Record{{"id": 1}, {"id": 1}}},
		{"duplicate across numeric types", []records.Record{{"id": 1}, {"id": 1.0}}},
		{"missing", []records.Record{{"id": 1}, {"name": "x"}}},
		{"nil", []records.Record{{"id": nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dv := New()
			require.NoError(t, dv.SetItems(abItems(), ""))
			rec := record(dv)

			err := dv.SetItems(tt.items, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, records.ErrIdentity))
			var ie *records.IdentityError
			assert.True(t, errors.As(err, &ie))

			assert.Equal(t, 3, dv.Length())
			assert.Empty(t, rec.rows)
			assert.Zero(t, rec.itemsSet)
		})
	}
}

func TestCustomIDField(t *testing.T) {
	dv := New(WithIDField("key"))
	assert.Equal(t, "key", dv.IDField())
	require.NoError(t, dv.SetItems([]records.Record{{"key": "x"}, {"key": "y"}}, ""))

	row, ok := dv.RowByID("y")
	require.True(t, ok)
	assert.Equal(t, 1, row)
	assert.Equal(t, []any{"x"}, dv.IDsByRows([]int{0, 7}))
}

func TestRefreshWithoutChangesIsQuiet(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	rec := record(dv)

	dv.Refresh()
	assert.Empty(t, rec.rows)
	assert.Empty(t, rec.rowCounts)
	assert.Empty(t, rec.paging)
	assert.Zero(t, rec.filtered)
}

func TestAddItemReportsOnlyTheNewRow(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	rec := record(dv)

	require.NoError(t, dv.AddItem(records.Record{"id": 4, "cat": "b", "v": 1}))
	assert.Equal(t, [][]int{{3}}, rec.rows)
	assert.Equal(t, []RowCountChanged{{Previous: 3, Current: 4}}, rec.rowCounts)

	err := dv.AddItem(records.Record{"id": 4})
	assert.True(t, errors.Is(err, records.ErrIdentity))
}

func TestUpdateItemReportsItsRow(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	rec := record(dv)

	require.NoError(t, dv.UpdateItem(2, records.Record{"id": 2, "cat": "b", "v": 50}))
	assert.Equal(t, [][]int{{1}}, rec.rows)
	item, _ := dv.ItemByID(2)
	assert.Equal(t, 50, item["v"])

	err := dv.UpdateItem(99, records.Record{"id": 99})
	assert.True(t, errors.Is(err, records.ErrInvalidID))
	err = dv.UpdateItem(1, records.Record{"id": 2})
	assert.True(t, errors.Is(err, records.ErrInvalidID))
}

func TestInsertAndDelete(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))

	require.NoError(t, dv.InsertItem(0, records.Record{"id": 0, "v": 0}))
	assert.Equal(t, []string{"0", "1", "2", "3"}, describe(dv))

	require.NoError(t, dv.DeleteItem(2))
	assert.Equal(t, []string{"0", "1", "3"}, describe(dv))
	idx, ok := dv.IdxByID(3)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	assert.Error(t, dv.DeleteItem(2))
}

func TestSortIsStableBothWays(t *testing.T) {
	dv := New()
	items := []records.Record{
		{"id": 1, "k": 2},
		{"id": 2, "k": 1},
		{"id": 3, "k": 2},
		{"id": 4, "k": 1},
	}
	require.NoError(t, dv.SetItems(items, ""))

	dv.SortByField("k", true)
	assert.Equal(t, []string{"2", "4", "1", "3"}, describe(dv))

	dv.SortByField("k", false)
	assert.Equal(t, []string{"1", "3", "2", "4"}, describe(dv))

	byK := func(a, b records.Record) int { return records.Compare(a["k"], b["k"]) }
	dv.Sort(byK, true)
	assert.Equal(t, []string{"2", "4", "1", "3"}, describe(dv))

	require.NoError(t, dv.AddItem(records.Record{"id": 5, "k": 0}))
	dv.ReSort()
	assert.Equal(t, []string{"5", "2", "4", "1", "3"}, describe(dv))

	idx, _ := dv.IdxByID(5)
	assert.Equal(t, 0, idx)
}

func TestFilterHintsMatchFullRefresh(t *testing.T) {
	tests := []struct {
		name  string
		from  int
		to    int
		hints RefreshHints
	}{
		{"narrowing", 50, 20, RefreshHints{IsFilterNarrowing: true, IgnoreDiffsBefore: diff.Unset, IgnoreDiffsAfter: diff.Unset}},
		{"expanding", 20, 60, RefreshHints{IsFilterExpanding: true, IgnoreDiffsBefore: diff.Unset, IgnoreDiffsAfter: diff.Unset}},
		{"unchanged", 30, 30, RefreshHints{IsFilterUnchanged: true, IgnoreDiffsBefore: diff.Unset, IgnoreDiffsAfter: diff.Unset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hinted := New()
			require.NoError(t, hinted.SetItems(numbered(100), ""))
			hinted.SetFilterArgs(tt.from)
			hinted.SetFilter(belowThreshold)

			hinted.SetFilterArgs(tt.to)
			hinted.SetRefreshHints(tt.hints)
			hinted.Refresh()

			plain := New()
			require.NoError(t, plain.SetItems(numbered(100), ""))
			plain.SetFilterArgs(tt.to)
			plain.SetFilter(belowThreshold)

			assert.Equal(t, ids(plain.FilteredItems()), ids(hinted.FilteredItems()))
			assert.Equal(t, describe(plain), describe(hinted))
			assert.Equal(t, tt.to, hinted.Length())
		})
	}
}

func TestHintsApplyToOneRefresh(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(numbered(10), ""))
	dv.SetFilterArgs(5)
	dv.SetFilter(belowThreshold)

	dv.SetFilterArgs(8)
	dv.SetRefreshHints(RefreshHints{IsFilterUnchanged: true, IgnoreDiffsBefore: diff.Unset, IgnoreDiffsAfter: diff.Unset})
	dv.Refresh()
	assert.Equal(t, 5, dv.Length(), "unchanged hint reuses the previous result")

	dv.Refresh()
	assert.Equal(t, 8, dv.Length())
}

func TestSetFilterExpression(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	rec := record(dv)

	require.NoError(t, dv.SetFilterExpression("cat == 'a' and v > min_v"))
	dv.SetFilterArgs(map[string]any{"min_v": 8})
	dv.Refresh()
	assert.Equal(t, []string{"1"}, describe(dv))
	assert.Equal(t, 2, rec.filtered)

	assert.Error(t, dv.SetFilterExpression("cat =="))

	require.NoError(t, dv.SetFilterExpression(""))
	assert.Equal(t, 3, dv.Length())
}

func TestGroupingScenario(t *testing.T) {
	tests := []struct {
		name         string
		displayTotal bool
		want         []string
	}{
		{"without totals rows", false, []string{"g:a", "1", "3", "g:b", "2"}},
		{"with totals rows", true, []string{"g:a", "1", "3", "t:a", "g:b", "2", "t:b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dv := New()
			rec := record(dv)
			require.NoError(t, dv.SetItems(abItems(), ""))

			spec := grouping.NewSpec("cat")
			spec.Aggregators = []aggregates.Aggregator{aggregates.Sum("v")}
			spec.DisplayTotalsRow = tt.displayTotal
			dv.SetGrouping(spec)

			assert.Equal(t, tt.want, describe(dv))
			assert.Positive(t, rec.groups)

			groups := dv.Groups()
			require.Len(t, groups, 2)
			sum, ok := groups[0].Totals.Results.Float(aggregates.AggSum, "v")
			require.True(t, ok)
			assert.Equal(t, 17.0, sum)
			sum, _ = groups[1].Totals.Results.Float(aggregates.AggSum, "v")
			assert.Equal(t, 5.0, sum)

			row, ok := dv.RowByID(3)
			require.True(t, ok)
			assert.Equal(t, 2, row)
			assert.Equal(t, []any{1, 3}, dv.IDsByRows([]int{0, 1, 2}))
			assert.Equal(t, []int{1, 2}, dv.RowsByIDs([]any{1, 3, 99}))
		})
	}
}

func TestGroupsChangedSeesFirstSeenOrder(t *testing.T) {
	dv := New()
	var seen []any
	dv.OnGroupsChanged().Subscribe(func(_ *events.EventData, a GroupsChanged) {
		seen = seen[:0]
		for _, g := range a.Groups {
			seen = append(seen, g.Value)
		}
	})

	require.NoError(t, dv.SetItems([]records.Record{
		{"id": 1, "cat": "b"},
		{"id": 2, "cat": "a"},
	}, "id"))
	dv.SetGrouping(grouping.NewSpec("cat"))

	assert.Equal(t, []any{"b", "a"}, seen)
	var sorted []any
	for _, g := range dv.Groups() {
		sorted = append(sorted, g.Value)
	}
	assert.Equal(t, []any{"a", "b"}, sorted)
}

func TestSetAggregatorsRequiresGrouping(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))

	err := dv.SetAggregators([]aggregates.Aggregator{aggregates.Sum("v")}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))

	dv.SetGrouping(grouping.NewSpec("cat"))
	require.NoError(t, dv.SetAggregators([]aggregates.Aggregator{aggregates.Count("")}, false))
	assert.Equal(t, []string{"g:a", "1", "3", "t:a", "g:b", "2", "t:b"}, describe(dv))
}

func TestCollapseIsIdempotent(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	spec := grouping.NewSpec("cat")
	spec.Aggregators = []aggregates.Aggregator{aggregates.Sum("v")}
	dv.SetGrouping(spec)

	dv.CollapseGroup("a")
	once := describe(dv)
	assert.Equal(t, []string{"g:a", "g:b", "2", "t:b"}, once)

	dv.CollapseGroup("a")
	assert.Equal(t, once, describe(dv))

	dv.ExpandGroup("a")
	assert.Equal(t, []string{"g:a", "1", "3", "t:a", "g:b", "2", "t:b"}, describe(dv))

	dv.CollapseAllGroups(AllLevels)
	assert.Equal(t, []string{"g:a", "g:b"}, describe(dv))
	dv.ExpandGroup("b")
	assert.Equal(t, []string{"g:a", "g:b", "2", "t:b"}, describe(dv))

	dv.ExpandAllGroups(0)
	assert.Equal(t, []string{"g:a", "1", "3", "t:a", "g:b", "2", "t:b"}, describe(dv))
}

func TestCollapseNestedGroup(t *testing.T) {
	dv := New()
	items := []records.Record{
		{"id": 1, "cat": "a", "sub": "x"},
		{"id": 2, "cat": "a", "sub": "y"},
		{"id": 3, "cat": "b", "sub": "x"},
	}
	require.NoError(t, dv.SetItems(items, ""))
	dv.SetGrouping(grouping.NewSpec("cat"), grouping.NewSpec("sub"))
	assert.Equal(t, []string{"g:a", "g:a:|:x", "1", "g:a:|:y", "2", "g:b", "g:b:|:x", "3"}, describe(dv))

	dv.CollapseGroup("a", "x")
	assert.Equal(t, []string{"g:a", "g:a:|:x", "g:a:|:y", "2", "g:b", "g:b:|:x", "3"}, describe(dv))

	dv.ExpandGroup(grouping.JoinKey("a", "x"))
	assert.Equal(t, 8, dv.Length())
}

func TestLazyTotalsComputedOnRead(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	spec := grouping.NewSpec("cat")
	spec.Aggregators = []aggregates.Aggregator{aggregates.Sum("v")}
	spec.LazyTotalsCalculation = true
	dv.SetGrouping(spec)

	totals := dv.Groups()[0].Totals
	require.NotNil(t, totals)
	assert.False(t, totals.Initialized)

	row, ok := dv.Item(3)
	require.True(t, ok)
	require.Equal(t, grouping.RowTotals, row.Kind)
	assert.True(t, row.Totals.Initialized)
	sum, _ := row.Totals.Results.Float(aggregates.AggSum, "v")
	assert.Equal(t, 17.0, sum)

	assert.False(t, dv.Groups()[1].Totals.Initialized)
}

func TestSkipWindowSuppressesChanges(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(abItems(), ""))
	rec := record(dv)

	dv.SetRefreshHints(RefreshHints{IgnoreDiffsBefore: 2, IgnoreDiffsAfter: diff.Unset})
	require.NoError(t, dv.UpdateItem(2, records.Record{"id": 2, "cat": "b", "v": 6}))
	assert.Empty(t, rec.rows)

	require.NoError(t, dv.UpdateItem(3, records.Record{"id": 3, "cat": "a", "v": 8}))
	assert.Equal(t, [][]int{{2}}, rec.rows)
}

func TestPaging(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(numbered(25), ""))
	rec := record(dv)

	ten, two := 10, 2
	dv.SetPagingOptions(paging.Options{PageSize: &ten, PageNum: &two})
	assert.Equal(t, 5, dv.Length())
	assert.Equal(t, []string{"20", "21", "22", "23", "24"}, describe(dv))
	assert.Equal(t, paging.Info{PageSize: 10, PageNum: 2, TotalRows: 25, TotalPages: 3}, dv.PagingInfo())
	require.NotEmpty(t, rec.paging)

	// Shrinking the filtered set past the current page moves to the last one.
	dv.SetFilterArgs(12)
	dv.SetFilter(belowThreshold)
	assert.Equal(t, 1, dv.PagingInfo().PageNum)
	assert.Equal(t, []string{"10", "11"}, describe(dv))
	last := rec.paging[len(rec.paging)-1]
	assert.Equal(t, 12, last.TotalRows)
	assert.Equal(t, 2, last.TotalPages)

	zero := 0
	dv.SetPagingOptions(paging.Options{PageSize: &zero})
	assert.Equal(t, 12, dv.Length())
	assert.Equal(t, 1, dv.PagingInfo().TotalPages)
}

func TestPagingGroupsOnlyThePage(t *testing.T) {
	dv := New()
	require.NoError(t, dv.SetItems(numbered(6), ""))
	dv.SetGrouping(grouping.NewSpec("parity"))

	three, one := 3, 1
	dv.SetPagingOptions(paging.Options{PageSize: &three, PageNum: &one})
	assert.Equal(t, []string{"g:0", "4", "g:1", "3", "5"}, describe(dv))
}

func TestBatchedUpdatesRefreshOnce(t *testing.T) {
	dv := New()
	rec := record(dv)

	dv.BeginUpdate()
	assert.True(t, dv.IsSuspended())
	require.NoError(t, dv.SetItems(abItems(), ""))
	dv.SetFilter(filtering.PredicateFunc(func(r records.Record, _ any) bool { return r["v"].(int) > 5 }))
	dv.SortByField("v", true)
	assert.Zero(t, dv.Length())
	assert.Empty(t, rec.rowCounts)

	dv.EndUpdate()
	assert.False(t, dv.IsSuspended())
	assert.Equal(t, []string{"3", "1"}, describe(dv))
	assert.Len(t, rec.rowCounts, 1)
	assert.Len(t, rec.rows, 1)
}

func TestRefreshFromSubscriberIsDeferred(t *testing.T) {
	dv := New()
	calls := 0
	dv.OnRowsChanged().Subscribe(func(_ *events.EventData, _ RowsChanged) {
		calls++
		if calls == 1 {
			dv.SetFilter(filtering.PredicateFunc(func(r records.Record, _ any) bool { return r["cat"] == "a" }))
		}
	})

	require.NoError(t, dv.SetItems(abItems(), ""))
	assert.Equal(t, []string{"1", "3"}, describe(dv))
	assert.Equal(t, 2, calls)
}

type stubMetadata struct{}

func (stubMetadata) GroupRowMetadata(g *grouping.Group) *Metadata {
	return &Metadata{CSSClasses: "group level-" + fmt.Sprint(g.Level)}
}

func (stubMetadata) TotalsRowMetadata(*grouping.Totals) *Metadata {
	return &Metadata{CSSClasses: "totals"}
}

func TestItemMetadata(t *testing.T) {
	dv := New(
		WithMetadataProvider(stubMetadata{}),
		WithItemMetadata(func(r records.Record) *Metadata {
			return &Metadata{Selectable: true, CSSClasses: "cat-" + r["cat"].(string)}
		}),
	)
	require.NoError(t, dv.SetItems(abItems(), ""))
	spec := grouping.NewSpec("cat")
	spec.Aggregators = []aggregates.Aggregator{aggregates.Sum("v")}
	dv.SetGrouping(spec)

	assert.Equal(t, "group level-0", dv.ItemMetadata(0).CSSClasses)
	assert.Equal(t, "cat-a", dv.ItemMetadata(1).CSSClasses)
	assert.Equal(t, "totals", dv.ItemMetadata(3).CSSClasses)
	assert.Nil(t, dv.ItemMetadata(99))

	_, ok := dv.Item(-1)
	assert.False(t, ok)
}

func BenchmarkRefreshGrouped(b *testing.B) {
	items := make([]records.Record, 10000)
	for i := range items {
		items[i] = records.Record{"id": i, "cat": fmt.Sprint(i % 50), "v": i}
	}
	dv := New()
	if err := dv.SetItems(items, ""); err != nil {
		b.Fatal(err)
	}
	spec := grouping.NewSpec("cat")
	spec.Aggregators = []aggregates.Aggregator{aggregates.Sum("v"), aggregates.Avg("v")}
	dv.SetGrouping(spec)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dv.Refresh()
	}
}
