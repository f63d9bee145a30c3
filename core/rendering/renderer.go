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

package rendering

import (
	"embed"
	"fmt"
	"io"
	"strings"

	"github.com/google/safehtml/template"

	"github.com/google/gridmodel/core/dataview"
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/paging"
	"github.com/google/gridmodel/core/records"
)

//go:embed templates/*
var templateFS embed.FS

// MetadataSource is implemented by sources that decorate rows, such as
// *dataview.DataView.
type MetadataSource interface {
	ItemMetadata(i int) *dataview.Metadata
}

// RowViewModel is one <tr>.
type RowViewModel struct {
	Class string
	Span  string   // set for group rows
	Cells []string // set for leaf and totals rows
}

// GridViewModel is the data of the grid template.
type GridViewModel struct {
	Columns []string
	Rows    []RowViewModel
	Footer  string
}

// NewGridViewModel reads every display row of src.
func NewGridViewModel(src Source, opts Options, info paging.Info) GridViewModel {
	meta, _ := src.(MetadataSource)
	vm := GridViewModel{Columns: opts.Columns}
	for i := 0; i < src.Length(); i++ {
		row, ok := src.Item(i)
		if !ok {
			continue
		}
		var rvm RowViewModel
		switch row.Kind {
		case grouping.RowGroup:
			rvm.Class = fmt.Sprintf("group level-%d", row.Group.Level)
			if row.Group.Collapsed {
				rvm.Class += " collapsed"
			}
			rvm.Span = GroupLabel(row.Group)
		case grouping.RowTotals:
			rvm.Class = fmt.Sprintf("totals level-%d", row.Totals.Group.Level)
			for _, col := range opts.Columns {
				rvm.Cells = append(rvm.Cells, TotalsCell(row.Totals, col))
			}
		default:
			rvm.Class = "leaf"
			for _, col := range opts.Columns {
				rvm.Cells = append(rvm.Cells, records.String(row.Record[col]))
			}
		}
		if meta != nil {
			if m := meta.ItemMetadata(i); m != nil && m.CSSClasses != "" {
				rvm.Class = strings.TrimSpace(rvm.Class + " " + m.CSSClasses)
			}
		}
		vm.Rows = append(vm.Rows, rvm)
	}
	if info.PageSize > 0 {
		vm.Footer = fmt.Sprintf("Page %d of %d (%d rows)", info.PageNum+1, info.TotalPages, info.TotalRows)
	} else {
		vm.Footer = fmt.Sprintf("%d rows", info.TotalRows)
	}
	return vm
}

// GridRenderer handles rendering of grid view models to HTML
type GridRenderer struct {
	gridTemplate *template.Template
}

// NewGridRenderer creates a new grid renderer
func NewGridRenderer() (*GridRenderer, error) {
	trustedFS := template.TrustedFSFromEmbed(templateFS)

	gridTemplate, err := template.New("grid.html").ParseFS(trustedFS, "templates/grid.html")
	if err != nil {
		return nil, err
	}
	return &GridRenderer{gridTemplate: gridTemplate}, nil
}

// Render renders a GridViewModel to the provided writer
func (r *GridRenderer) Render(w io.Writer, vm GridViewModel) error {
	return r.gridTemplate.Execute(w, vm)
}
