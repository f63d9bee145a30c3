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

// Package dataview is the row model beneath a grid renderer. A DataView owns
// identified records and, after every mutation, derives the display rows
// (records, group headers and group totals) for the active filter, sort,
// grouping, paging and collapse state. Subscribers learn which display rows
// changed so they can redraw incrementally.
//
// A DataView is not safe for concurrent use.
package dataview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/diff"
	"github.com/google/gridmodel/core/events"
	"github.com/google/gridmodel/core/expr"
	"github.com/google/gridmodel/core/filtering"
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/logging"
	"github.com/google/gridmodel/core/paging"
	"github.com/google/gridmodel/core/records"
)

// AllLevels selects every grouping level in CollapseAllGroups and
// ExpandAllGroups.
const AllLevels = -1

// RefreshHints describe the pending change to the next refresh. They are
// an optimization contract: a refresh with correct hints produces the same
// rows as one without, only cheaper. Wrong hints produce wrong rows.
type RefreshHints struct {
	// IsFilterNarrowing: the filter only rejects more records than before.
	IsFilterNarrowing bool
	// IsFilterExpanding: the filter only accepts more records than before.
	IsFilterExpanding bool
	// IsFilterUnchanged: the filtered set is the same as before.
	IsFilterUnchanged bool
	// IgnoreDiffsBefore and IgnoreDiffsAfter bound the display positions
	// checked for changes; diff.Unset means no bound.
	IgnoreDiffsBefore int
	IgnoreDiffsAfter  int
}

// NoHints returns hints that assert nothing.
func NoHints() RefreshHints {
	return RefreshHints{IgnoreDiffsBefore: diff.Unset, IgnoreDiffsAfter: diff.Unset}
}

type sortState struct {
	cmp       func(a, b records.Record) int
	field     string
	ascending bool
}

// DataView is the refresh orchestrator.
type DataView struct {
	idField string
	store   *records.Store

	filter     filtering.Predicate
	filterArgs any
	pipeline   *filtering.Pipeline
	filtered   []records.Record
	// published is the filtered sequence subscribers last saw.
	published []records.Record

	sort  *sortState
	pager paging.Pager

	engine *grouping.Engine
	groups []*grouping.Group
	rows   []grouping.Row
	// rowsByID maps leaf ids to display positions; nil until first use.
	rowsByID map[any]int

	updated map[any]struct{}
	hints   RefreshHints

	suspended  bool
	refreshing bool
	pending    bool

	logger       *slog.Logger
	metadata     MetadataProvider
	itemMetadata func(records.Record) *Metadata

	onRowCountChanged      events.Event[RowCountChanged]
	onRowsChanged          events.Event[RowsChanged]
	onGroupsChanged        events.Event[GroupsChanged]
	onPagingInfoChanged    events.Event[PagingInfoChanged]
	onFilteredItemsChanged events.Event[FilteredItemsChanged]
	onItemsSet             events.Event[ItemsSet]
}

// New creates an empty DataView.
func New(opts ...Option) *DataView {
	dv := &DataView{
		idField:  records.DefaultIDField,
		store:    records.NewStore(),
		pipeline: filtering.NewPipeline(),
		engine:   grouping.NewEngine(),
		hints:    NoHints(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(dv)
	}
	// An empty store cannot fail validation.
	_ = dv.store.SetItems(nil, dv.idField)
	return dv
}

// Events.

func (dv *DataView) OnRowCountChanged() *events.Event[RowCountChanged] { return &dv.onRowCountChanged }
func (dv *DataView) OnRowsChanged() *events.Event[RowsChanged]         { return &dv.onRowsChanged }
func (dv *DataView) OnGroupsChanged() *events.Event[GroupsChanged]     { return &dv.onGroupsChanged }
func (dv *DataView) OnPagingInfoChanged() *events.Event[PagingInfoChanged] {
	return &dv.onPagingInfoChanged
}
func (dv *DataView) OnFilteredItemsChanged() *events.Event[FilteredItemsChanged] {
	return &dv.onFilteredItemsChanged
}
func (dv *DataView) OnItemsSet() *events.Event[ItemsSet] { return &dv.onItemsSet }

// BeginUpdate suspends refreshing until EndUpdate. Calls do not nest: the
// first EndUpdate resumes.
func (dv *DataView) BeginUpdate() {
	dv.suspended = true
}

// EndUpdate resumes refreshing and refreshes once.
func (dv *DataView) EndUpdate() {
	dv.suspended = false
	dv.Refresh()
}

// IsSuspended reports whether a BeginUpdate scope is open.
func (dv *DataView) IsSuspended() bool { return dv.suspended }

// SetRefreshHints sets the hints for the next refresh only.
func (dv *DataView) SetRefreshHints(h RefreshHints) {
	dv.hints = h
}

// Items.

// SetItems replaces all records. idField names the identity field; empty
// keeps the current one. A missing or duplicate id fails with
// *records.IdentityError and leaves the view unchanged.
func (dv *DataView) SetItems(items []records.Record, idField string) error {
	if err := dv.store.SetItems(items, idField); err != nil {
		dv.logger.Warn("rejected items", "error", err)
		return fmt.Errorf("set items: %w", err)
	}
	dv.idField = dv.store.IDField()
	dv.filtered = dv.store.Items()
	dv.pipeline.Invalidate()
	dv.rowsByID = nil
	dv.Refresh()
	dv.onItemsSet.Notify(ItemsSet{Items: dv.store.Items(), IDField: dv.idField})
	return nil
}

// Items returns all records in store order. Callers must not modify it.
func (dv *DataView) Items() []records.Record { return dv.store.Items() }

// IDField returns the identity field.
func (dv *DataView) IDField() string { return dv.idField }

// FilteredItems returns the records that passed the filter on the last
// refresh, before paging.
func (dv *DataView) FilteredItems() []records.Record { return dv.filtered }

// ItemByID returns the record with the given id.
func (dv *DataView) ItemByID(id any) (records.Record, bool) { return dv.store.ItemByID(id) }

// IdxByID returns the store position of the record with the given id.
func (dv *DataView) IdxByID(id any) (int, bool) { return dv.store.IdxByID(id) }

// ItemByIdx returns the record at store position i, or nil.
func (dv *DataView) ItemByIdx(i int) records.Record { return dv.store.ItemByIdx(i) }

// UpdateItem replaces the record stored under id and reports its row as
// changed on the next refresh. It fails with *records.InvalidIDError when
// id is unknown or item carries another id.
func (dv *DataView) UpdateItem(id any, item records.Record) error {
	if err := dv.store.UpdateItem(id, item); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if dv.updated == nil {
		dv.updated = make(map[any]struct{})
	}
	dv.updated[records.Key(id)] = struct{}{}
	dv.Refresh()
	return nil
}

// InsertItem inserts a record at store position pos.
func (dv *DataView) InsertItem(pos int, item records.Record) error {
	if err := dv.store.InsertItem(pos, item); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	dv.pipeline.Invalidate()
	dv.Refresh()
	return nil
}

// AddItem appends a record.
func (dv *DataView) AddItem(item records.Record) error {
	if err := dv.store.AddItem(item); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	dv.pipeline.Invalidate()
	dv.Refresh()
	return nil
}

// DeleteItem removes the record with the given id.
func (dv *DataView) DeleteItem(id any) error {
	if err := dv.store.DeleteItem(id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	dv.pipeline.Invalidate()
	dv.Refresh()
	return nil
}

// Sorting.

// Sort stably reorders the records with cmp; ties keep their relative order
// in both directions.
func (dv *DataView) Sort(cmp func(a, b records.Record) int, ascending bool) {
	dv.sort = &sortState{cmp: cmp, ascending: ascending}
	dv.store.Sort(cmp, ascending)
	dv.pipeline.Invalidate()
	dv.Refresh()
}

// SortByField sorts by one field's value, extracting each key once.
func (dv *DataView) SortByField(field string, ascending bool) {
	dv.sort = &sortState{field: field, ascending: ascending}
	dv.store.SortByField(field, ascending)
	dv.pipeline.Invalidate()
	dv.Refresh()
}

// ReSort applies the last Sort or SortByField again, e.g. after inserts.
func (dv *DataView) ReSort() {
	switch {
	case dv.sort == nil:
		return
	case dv.sort.cmp != nil:
		dv.Sort(dv.sort.cmp, dv.sort.ascending)
	default:
		dv.SortByField(dv.sort.field, dv.sort.ascending)
	}
}

// Reverse reverses the record order and flips the remembered direction.
func (dv *DataView) Reverse() {
	if dv.sort != nil {
		dv.sort.ascending = !dv.sort.ascending
	}
	dv.store.Reverse()
	dv.pipeline.Invalidate()
	dv.Refresh()
}

// Filtering.

// SetFilter sets the predicate; nil removes filtering.
func (dv *DataView) SetFilter(pred filtering.Predicate) {
	dv.filter = pred
	dv.Refresh()
}

// SetFilterExpression compiles src with package expr and uses it as the
// filter. An empty src removes filtering.
func (dv *DataView) SetFilterExpression(src string) error {
	if src == "" {
		dv.SetFilter(nil)
		return nil
	}
	e, err := expr.Compile(src)
	if err != nil {
		return fmt.Errorf("filter expression: %w", err)
	}
	dv.SetFilter(e)
	return nil
}

// SetFilterArgs sets the argument passed to the predicate. It does not
// refresh; callers refresh with suitable hints.
func (dv *DataView) SetFilterArgs(args any) {
	dv.filterArgs = args
}

// FilterArgs returns the current filter argument.
func (dv *DataView) FilterArgs() any { return dv.filterArgs }

// Grouping.

// SetGrouping replaces the grouping levels, dropping collapse overrides.
// No specs removes grouping.
func (dv *DataView) SetGrouping(specs ...*grouping.Spec) {
	dv.engine = grouping.NewEngine(specs...)
	dv.groups = nil
	dv.Refresh()
}

// Grouping returns the grouping levels.
func (dv *DataView) Grouping() []*grouping.Spec { return dv.engine.Specs() }

// SetAggregators sets the aggregators of the first grouping level. It fails
// with *ConfigurationError when no grouping level exists.
func (dv *DataView) SetAggregators(aggs []aggregates.Aggregator, includeCollapsed bool) error {
	specs := dv.engine.Specs()
	if len(specs) == 0 {
		return &ConfigurationError{Reason: "at least one grouping level must be set before aggregators"}
	}
	specs[0].Aggregators = aggs
	specs[0].AggregateCollapsed = includeCollapsed
	dv.SetGrouping(specs...)
	return nil
}

// Groups returns the group tree of the last refresh.
func (dv *DataView) Groups() []*grouping.Group { return dv.groups }

// ExpandCollapseGroup sets the collapsed state of one group, addressed by
// level and grouping key, and refreshes.
func (dv *DataView) ExpandCollapseGroup(level int, key string, collapse bool) {
	dv.engine.ExpandCollapseGroup(level, key, collapse)
	dv.Refresh()
}

// CollapseGroup collapses one group. values is either one pre-joined
// grouping key or the group value of each level from the top.
func (dv *DataView) CollapseGroup(values ...any) {
	level, key := groupAddress(values)
	dv.ExpandCollapseGroup(level, key, true)
}

// ExpandGroup expands one group; see CollapseGroup.
func (dv *DataView) ExpandGroup(values ...any) {
	level, key := groupAddress(values)
	dv.ExpandCollapseGroup(level, key, false)
}

func groupAddress(values []any) (int, string) {
	if len(values) == 1 {
		if key, ok := values[0].(string); ok {
			return grouping.KeyLevel(key), key
		}
	}
	return len(values) - 1, grouping.JoinKey(values...)
}

// CollapseAllGroups collapses every group of level, or of all levels for
// AllLevels.
func (dv *DataView) CollapseAllGroups(level int) {
	dv.engine.ExpandCollapseAllGroups(level, true)
	dv.Refresh()
}

// ExpandAllGroups expands every group of level, or of all levels for
// AllLevels.
func (dv *DataView) ExpandAllGroups(level int) {
	dv.engine.ExpandCollapseAllGroups(level, false)
	dv.Refresh()
}

// Paging.

// SetPagingOptions changes the page size and/or number and refreshes.
func (dv *DataView) SetPagingOptions(o paging.Options) {
	dv.pager.SetOptions(o)
	dv.onPagingInfoChanged.Notify(PagingInfoChanged{Info: dv.pager.Info()})
	dv.Refresh()
}

// PagingInfo returns the current paging state.
func (dv *DataView) PagingInfo() paging.Info { return dv.pager.Info() }

// Renderer pull API.

// Length returns the number of display rows.
func (dv *DataView) Length() int { return len(dv.rows) }

// Item returns display row i. Totals deferred by lazy calculation are
// computed here.
func (dv *DataView) Item(i int) (grouping.Row, bool) {
	if i < 0 || i >= len(dv.rows) {
		return grouping.Row{}, false
	}
	row := dv.rows[i]
	dv.engine.EnsureTotals(row)
	return row, true
}

// ItemMetadata returns the display hints of row i, or nil.
func (dv *DataView) ItemMetadata(i int) *Metadata {
	row, ok := dv.Item(i)
	if !ok {
		return nil
	}
	switch row.Kind {
	case grouping.RowGroup:
		if dv.metadata != nil {
			return dv.metadata.GroupRowMetadata(row.Group)
		}
	case grouping.RowTotals:
		if dv.metadata != nil {
			return dv.metadata.TotalsRowMetadata(row.Totals)
		}
	default:
		if dv.itemMetadata != nil {
			return dv.itemMetadata(row.Record)
		}
	}
	return nil
}

// RowByID returns the display position of the record with the given id.
func (dv *DataView) RowByID(id any) (int, bool) {
	if !records.ValidID(id) {
		return 0, false
	}
	dv.ensureRowsByID()
	row, ok := dv.rowsByID[records.Key(id)]
	return row, ok
}

// RowsByIDs returns the display positions of the ids that are displayed.
func (dv *DataView) RowsByIDs(ids []any) []int {
	dv.ensureRowsByID()
	var out []int
	for _, id := range ids {
		if !records.ValidID(id) {
			continue
		}
		if row, ok := dv.rowsByID[records.Key(id)]; ok {
			out = append(out, row)
		}
	}
	return out
}

// IDsByRows returns the ids of the records displayed at rows. Group and
// totals rows are skipped.
func (dv *DataView) IDsByRows(rows []int) []any {
	var out []any
	for _, i := range rows {
		if i >= 0 && i < len(dv.rows) && dv.rows[i].IsData() {
			out = append(out, dv.rows[i].Record[dv.idField])
		}
	}
	return out
}

func (dv *DataView) ensureRowsByID() {
	if dv.rowsByID != nil {
		return
	}
	dv.rowsByID = make(map[any]int, len(dv.rows))
	for i, row := range dv.rows {
		if row.IsData() {
			dv.rowsByID[records.Key(row.Record[dv.idField])] = i
		}
	}
}

// Refresh.

// Refresh recomputes the display rows and notifies subscribers. It does
// nothing while suspended. A refresh requested by a subscriber during a
// refresh runs after the current one completes.
func (dv *DataView) Refresh() {
	dv.RefreshContext(context.Background())
}

// RefreshContext is Refresh with a parent context for tracing.
func (dv *DataView) RefreshContext(ctx context.Context) {
	if dv.suspended {
		return
	}
	if dv.refreshing {
		dv.pending = true
		return
	}
	dv.refreshing = true
	defer func() { dv.refreshing = false }()

	for {
		dv.pending = false
		dv.refresh(ctx)
		if !dv.pending || dv.suspended {
			return
		}
	}
}

func (dv *DataView) refresh(ctx context.Context) {
	start := time.Now()
	_, span := getTracer().Start(ctx, "dataview.Refresh")
	defer span.End()

	countBefore := len(dv.rows)
	totalRowsBefore := dv.pager.TotalRows()

	changed, strategy, clamped := dv.recalc()
	if clamped {
		dv.logger.Debug("page clamped", "page_num", dv.pager.PageNum())
		more, _, _ := dv.recalc()
		changed = mergeSorted(changed, more)
	}

	previousFiltered := dv.published
	// filtered may alias the store, which sorts in place.
	dv.published = slices.Clone(dv.filtered)
	dv.updated = nil
	dv.hints = NoHints()

	refreshTotal.Inc()
	refreshDuration.Observe(time.Since(start).Seconds())
	filterStrategyTotal.WithLabelValues(strategy.String()).Inc()
	diffRows.Observe(float64(len(changed)))
	span.SetAttributes(
		attribute.Int("rows.filtered", len(dv.filtered)),
		attribute.Int("rows.display", len(dv.rows)),
		attribute.Int("rows.changed", len(changed)),
		attribute.String("filter.strategy", strategy.String()),
	)
	dv.logger.Debug("refresh",
		"strategy", strategy.String(),
		"filtered", len(dv.filtered),
		"rows", len(dv.rows),
		"changed", len(changed),
	)

	if totalRowsBefore != dv.pager.TotalRows() {
		dv.onPagingInfoChanged.Notify(PagingInfoChanged{Info: dv.pager.Info()})
	}
	if countBefore != len(dv.rows) {
		dv.onRowCountChanged.Notify(RowCountChanged{Previous: countBefore, Current: len(dv.rows)})
	}
	if len(changed) > 0 {
		dv.onRowsChanged.Notify(RowsChanged{Rows: changed})
	}
	if !sameRecords(previousFiltered, dv.filtered, dv.idField) {
		dv.onFilteredItemsChanged.Notify(FilteredItemsChanged{
			FilteredItems:         dv.published,
			PreviousFilteredItems: previousFiltered,
		})
	}
	span.AddEvent("notified", trace.WithAttributes(attribute.Int("rows.before", countBefore)))
}

// recalc runs filter, paging, grouping and diff once and installs the new
// display rows.
func (dv *DataView) recalc() (changed []int, strategy filtering.Strategy, clamped bool) {
	dv.rowsByID = nil

	hints := filtering.Hints{
		Narrowing: dv.hints.IsFilterNarrowing,
		Expanding: dv.hints.IsFilterExpanding,
		Unchanged: dv.hints.IsFilterUnchanged,
	}
	dv.filtered, strategy = dv.pipeline.Apply(dv.store.Items(), dv.filtered, dv.filter, dv.filterArgs, hints, dv.pager.Paged())

	var page []records.Record
	page, clamped = dv.pager.Apply(dv.filtered)

	var newRows []grouping.Row
	if dv.engine.Active() {
		dv.groups = dv.engine.ExtractGroups(page, nil)
		if len(dv.groups) > 0 {
			dv.engine.AddTotals(dv.groups, 0)
			dv.onGroupsChanged.Notify(GroupsChanged{Groups: dv.groups})
			dv.engine.SortGroups(dv.groups)
			newRows = dv.engine.Flatten(dv.groups)
		}
	} else {
		dv.groups = nil
		newRows = grouping.LeafRows(page)
	}

	changed = diff.Rows(dv.rows, newRows, diff.Options{
		IgnoreBefore: dv.hints.IgnoreDiffsBefore,
		IgnoreAfter:  dv.hints.IgnoreDiffsAfter,
		Grouping:     dv.engine.Active(),
		IDField:      dv.idField,
		Updated:      dv.updated,
	})
	dv.rows = newRows
	return changed, strategy, clamped
}

// mergeSorted merges two ascending position lists without duplicates.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// sameRecords reports whether a and b hold the same ids in the same order.
func sameRecords(a, b []records.Record, idField string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if records.Key(a[i][idField]) != records.Key(b[i][idField]) {
			return false
		}
	}
	return true
}
