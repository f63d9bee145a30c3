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

// Package rendering draws the display rows of a DataView as an ASCII table
// or an HTML fragment. It only uses the renderer pull API.
package rendering

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/records"
)

// Source is the pull API a renderer reads display rows through.
type Source interface {
	Length() int
	Item(i int) (grouping.Row, bool)
}

// Options control the rendered columns.
type Options struct {
	Columns []string
	// Levels is the number of grouping levels; leaves are indented below
	// the deepest one.
	Levels int
	// MaxCellWidth truncates cell text; 0 means unlimited.
	MaxCellWidth int
}

const (
	expandedMarker  = "▾"
	collapsedMarker = "▸"
	indentWidth     = 2
)

// line is one rendered display row: either cells or a single spanning text.
type line struct {
	cells []string
	span  string
}

// GroupLabel is the text of a group row, e.g. "▾ a (2)".
func GroupLabel(g *grouping.Group) string {
	marker := expandedMarker
	if g.Collapsed {
		marker = collapsedMarker
	}
	return fmt.Sprintf("%s %s (%d)", marker, g.Title, g.Count)
}

// TotalsCell formats the totals of one field, e.g. "Σ 17 μ 8.5". Pending
// lazy totals render as "…".
func TotalsCell(t *grouping.Totals, field string) string {
	if !t.Initialized {
		return "…"
	}
	var parts []string
	for _, fa := range aggregates.FormatResults(t.Results) {
		if fa.Field == field {
			parts = append(parts, fa.Symbol+" "+fa.Value)
		}
	}
	return strings.Join(parts, " ")
}

func buildLines(src Source, opts Options) []line {
	lines := make([]line, 0, src.Length())
	for i := 0; i < src.Length(); i++ {
		row, ok := src.Item(i)
		if !ok {
			continue
		}
		switch row.Kind {
		case grouping.RowGroup:
			indent := strings.Repeat(" ", row.Group.Level*indentWidth)
			lines = append(lines, line{span: indent + GroupLabel(row.Group)})
		case grouping.RowTotals:
			cells := make([]string, len(opts.Columns))
			for c, col := range opts.Columns {
				cells[c] = TotalsCell(row.Totals, col)
			}
			lines = append(lines, line{cells: cells})
		default:
			cells := make([]string, len(opts.Columns))
			for c, col := range opts.Columns {
				cells[c] = records.String(row.Record[col])
			}
			if len(cells) > 0 {
				cells[0] = strings.Repeat(" ", opts.Levels*indentWidth) + cells[0]
			}
			lines = append(lines, line{cells: cells})
		}
	}
	return lines
}

// ToASCII renders the display rows with a header and ASCII borders.
func ToASCII(src Source, opts Options) string {
	lines := buildLines(src, opts)

	widths := make([]int, len(opts.Columns))
	for c, col := range opts.Columns {
		widths[c] = max(1, runewidth.StringWidth(col))
	}
	for _, l := range lines {
		for c, cell := range l.cells {
			widths[c] = max(widths[c], runewidth.StringWidth(cell))
		}
	}
	if opts.MaxCellWidth > 0 {
		for c := range widths {
			widths[c] = min(widths[c], opts.MaxCellWidth)
		}
	}
	inner := 0
	for _, w := range widths {
		inner += w
	}
	inner += 3 * max(0, len(widths)-1)

	var sb strings.Builder
	border := func() {
		sb.WriteString("+")
		for _, w := range widths {
			sb.WriteString(strings.Repeat("-", w+2))
			sb.WriteString("+")
		}
		sb.WriteString("\n")
	}
	writeCells := func(cells []string) {
		sb.WriteString("|")
		for c, cell := range cells {
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(runewidth.Truncate(cell, widths[c], "…"), widths[c]))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	border()
	writeCells(opts.Columns)
	border()
	for _, l := range lines {
		if l.cells != nil {
			writeCells(l.cells)
			continue
		}
		sb.WriteString("| ")
		sb.WriteString(runewidth.FillRight(runewidth.Truncate(l.span, inner, "…"), inner))
		sb.WriteString(" |\n")
	}
	border()
	return sb.String()
}
