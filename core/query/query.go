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

package query

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/safehtml"

	"github.com/google/gridmodel/core/config"
	"github.com/google/gridmodel/core/expr"
)

// DefaultPageSize is the page size of a URL without page_size.
const DefaultPageSize = 25

// Aggregate is an aggregator requested for the top grouping level.
type Aggregate struct {
	Type  string // e.g. "sum"
	Field string
}

// Query represents the parsed view state of a grid URL
type Query struct {
	// Base path (e.g., "/grid")
	Path string

	Source       string         // The data source being viewed
	Columns      []string       // Ordered visible columns (filtered, grouped, then others)
	ColumnWidths map[string]int // Column widths in characters (columnName -> width)
	Grouped      []string       // Grouping fields, outermost first
	Collapsed    []string       // Grouping keys of collapsed groups
	Aggregates   []Aggregate    // Aggregators of the top grouping level
	Filter       string         // Filter expression
	SortField    string
	SortDesc     bool
	PageSize     int // 0 = show all
	PageNum      int
}

// NewQuery creates a Query from a URL
func NewQuery(u *url.URL) *Query {
	state := &Query{
		Path:         u.Path,
		ColumnWidths: make(map[string]int),
		Columns:      []string{},
		Grouped:      []string{},
		PageSize:     DefaultPageSize,
	}
	q := u.Query()

	state.Source = q.Get("source")

	// Format: col1:width,col2,col3:width
	if columnsStr := q.Get("columns"); columnsStr != "" {
		for _, part := range strings.Split(columnsStr, ",") {
			if colonIdx := strings.LastIndex(part, ":"); colonIdx != -1 {
				colName := part[:colonIdx]
				if width, err := strconv.Atoi(part[colonIdx+1:]); err == nil && width > 0 {
					state.Columns = append(state.Columns, colName)
					state.ColumnWidths[colName] = width
					continue
				}
			}
			state.Columns = append(state.Columns, part)
		}
	}

	if groupedStr := q.Get("grouped"); groupedStr != "" {
		state.Grouped = strings.Split(groupedStr, ",")
	}

	// Grouping keys may contain commas, so each key is its own parameter.
	state.Collapsed = q["collapsed"]

	// Format: sum:qty,avg:price
	if aggStr := q.Get("agg"); aggStr != "" {
		for _, part := range strings.Split(aggStr, ",") {
			typ, field, _ := strings.Cut(part, ":")
			if typ != "" {
				state.Aggregates = append(state.Aggregates, Aggregate{Type: typ, Field: field})
			}
		}
	}

	state.Filter = q.Get("filter")

	// Format: field or -field for descending
	if sortStr := q.Get("sort"); sortStr != "" {
		state.SortDesc = strings.HasPrefix(sortStr, "-")
		state.SortField = strings.TrimPrefix(sortStr, "-")
	}

	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n >= 0 {
		state.PageSize = n
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n >= 0 {
		state.PageNum = n
	}

	state.reorderColumns()
	return state
}

// Clone creates a deep copy of the Query
func (s *Query) Clone() *Query {
	clone := *s
	clone.Columns = slices.Clone(s.Columns)
	clone.Grouped = slices.Clone(s.Grouped)
	clone.Collapsed = slices.Clone(s.Collapsed)
	clone.Aggregates = slices.Clone(s.Aggregates)
	clone.ColumnWidths = make(map[string]int, len(s.ColumnWidths))
	for colName, width := range s.ColumnWidths {
		clone.ColumnWidths[colName] = width
	}
	return &clone
}

// filterFields returns the fields the filter expression references, or nil
// when it does not compile.
func (s *Query) filterFields() []string {
	if s.Filter == "" {
		return nil
	}
	e, err := expr.Compile(s.Filter)
	if err != nil {
		return nil
	}
	return e.Fields()
}

// reorderColumns reorders the Columns slice to maintain:
// 1. Filtered columns (leftmost) - referenced by the filter but NOT grouped
// 2. Grouped columns (middle) - in Grouped order (the grouping hierarchy)
// 3. Other columns (rightmost)
func (s *Query) reorderColumns() {
	if len(s.Columns) == 0 {
		return
	}

	filteredCols := make(map[string]bool)
	for _, colName := range s.filterFields() {
		filteredCols[colName] = true
	}
	groupedCols := make(map[string]bool)
	for _, colName := range s.Grouped {
		groupedCols[colName] = true
	}

	var filtered, others []string
	for _, colName := range s.Columns {
		switch {
		case groupedCols[colName]:
			// Added below in grouping order.
		case filteredCols[colName]:
			filtered = append(filtered, colName)
		default:
			others = append(others, colName)
		}
	}

	var grouped []string
	for _, colName := range s.Grouped {
		if slices.Contains(s.Columns, colName) {
			grouped = append(grouped, colName)
		}
	}

	s.Columns = make([]string, 0, len(filtered)+len(grouped)+len(others))
	s.Columns = append(s.Columns, filtered...)
	s.Columns = append(s.Columns, grouped...)
	s.Columns = append(s.Columns, others...)
}

// toggle removes v from list if present and appends it otherwise.
func toggle(list []string, v string) []string {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}

// WithColumnToggled returns a URL with the column toggled (added if not present, removed if present)
func (s *Query) WithColumnToggled(column string) safehtml.URL {
	newState := s.Clone()
	newState.Columns = toggle(s.Columns, column)
	return newState.ToSafeURL()
}

// WithGroupedColumnToggled returns a URL with the grouped column toggled.
// A new grouping level is added last. Collapse state is dropped since the
// grouping keys change.
func (s *Query) WithGroupedColumnToggled(column string) safehtml.URL {
	newState := s.Clone()
	newState.Grouped = toggle(s.Grouped, column)
	newState.Collapsed = nil
	newState.PageNum = 0
	newState.reorderColumns()
	return newState.ToSafeURL()
}

// WithGroupToggled returns a URL with the group's collapsed state flipped.
func (s *Query) WithGroupToggled(groupingKey string) safehtml.URL {
	newState := s.Clone()
	newState.Collapsed = toggle(s.Collapsed, groupingKey)
	return newState.ToSafeURL()
}

// WithSort returns a URL sorted by field. Sorting by the current field
// flips the direction.
func (s *Query) WithSort(field string) safehtml.URL {
	newState := s.Clone()
	if s.SortField == field {
		newState.SortDesc = !s.SortDesc
	} else {
		newState.SortField = field
		newState.SortDesc = false
	}
	return newState.ToSafeURL()
}

// WithFilter returns a URL with a new filter expression on the first page.
func (s *Query) WithFilter(filter string) safehtml.URL {
	newState := s.Clone()
	newState.Filter = filter
	newState.PageNum = 0
	newState.reorderColumns()
	return newState.ToSafeURL()
}

// WithPage returns a URL showing page n.
func (s *Query) WithPage(n int) safehtml.URL {
	newState := s.Clone()
	newState.PageNum = max(0, n)
	return newState.ToSafeURL()
}

// WithPageSize returns a URL with a different page size.
func (s *Query) WithPageSize(size int) safehtml.URL {
	newState := s.Clone()
	newState.PageSize = max(0, size)
	newState.PageNum = 0
	return newState.ToSafeURL()
}

// ToURL converts the Query back to a URL string
func (s *Query) ToURL() string {
	u := &url.URL{Path: s.Path}
	q := u.Query()

	if s.Source != "" {
		q.Set("source", s.Source)
	}

	if len(s.Columns) > 0 {
		columnStrs := make([]string, 0, len(s.Columns))
		for _, col := range s.Columns {
			if width, hasWidth := s.ColumnWidths[col]; hasWidth {
				columnStrs = append(columnStrs, col+":"+strconv.Itoa(width))
			} else {
				columnStrs = append(columnStrs, col)
			}
		}
		q.Set("columns", strings.Join(columnStrs, ","))
	}

	if len(s.Grouped) > 0 {
		q.Set("grouped", strings.Join(s.Grouped, ","))
	}
	for _, key := range s.Collapsed {
		q.Add("collapsed", key)
	}
	if len(s.Aggregates) > 0 {
		aggStrs := make([]string, 0, len(s.Aggregates))
		for _, a := range s.Aggregates {
			aggStrs = append(aggStrs, a.Type+":"+a.Field)
		}
		q.Set("agg", strings.Join(aggStrs, ","))
	}

	if s.Filter != "" {
		q.Set("filter", s.Filter)
	}
	if s.SortField != "" {
		if s.SortDesc {
			q.Set("sort", "-"+s.SortField)
		} else {
			q.Set("sort", s.SortField)
		}
	}

	// Page size is always included in the URL
	q.Set("page_size", strconv.Itoa(s.PageSize))
	if s.PageNum > 0 {
		q.Set("page", strconv.Itoa(s.PageNum))
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// ToSafeURL converts the Query to a safehtml.URL
func (s *Query) ToSafeURL() safehtml.URL {
	return safehtml.URLSanitized(s.ToURL())
}

// IsColumnVisible checks if a column is in the visible columns list
func (s *Query) IsColumnVisible(column string) bool {
	return slices.Contains(s.Columns, column)
}

// IsColumnGrouped checks if a column is in the grouped columns list
func (s *Query) IsColumnGrouped(column string) bool {
	return slices.Contains(s.Grouped, column)
}

// IsCollapsed checks if a group is collapsed
func (s *Query) IsCollapsed(groupingKey string) bool {
	return slices.Contains(s.Collapsed, groupingKey)
}

// Config converts the view state into a grid configuration. Aggregators
// apply to the top grouping level.
func (s *Query) Config(idField string) config.Config {
	cfg := config.Default()
	if idField != "" {
		cfg.IDField = idField
	}
	cfg.Filter = s.Filter
	cfg.PageSize = s.PageSize
	cfg.PageNum = s.PageNum
	cfg.Collapsed = slices.Clone(s.Collapsed)
	if s.SortField != "" {
		cfg.Sort = &config.SortConfig{Field: s.SortField, Descending: s.SortDesc}
	}
	for i, field := range s.Grouped {
		g := config.GroupConfig{Field: field}
		if i == 0 {
			for _, a := range s.Aggregates {
				g.Aggregators = append(g.Aggregators, config.AggregatorConfig{Type: a.Type, Field: a.Field})
			}
		}
		cfg.Grouping = append(cfg.Grouping, g)
	}
	return cfg
}
