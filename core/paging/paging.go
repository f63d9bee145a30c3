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

// Package paging slices the filtered sequence into pages.
package paging

import (
	"github.com/google/gridmodel/core/records"
)

// Info describes the paging state after a pass.
type Info struct {
	PageSize   int `json:"pageSize"`
	PageNum    int `json:"pageNum"`
	TotalRows  int `json:"totalRows"`
	TotalPages int `json:"totalPages"`
}

// Options updates the page size and/or page number. Nil fields are left as is.
type Options struct {
	PageSize *int
	PageNum  *int
}

// Pager holds the paging state. A page size of 0 disables paging.
type Pager struct {
	pageSize  int
	pageNum   int
	totalRows int
}

// PageSize returns the page size.
func (p *Pager) PageSize() int { return p.pageSize }

// PageNum returns the current zero based page number.
func (p *Pager) PageNum() int { return p.pageNum }

// TotalRows returns the row count of the last Apply before slicing.
func (p *Pager) TotalRows() int { return p.totalRows }

// Paged reports whether paging is active.
func (p *Pager) Paged() bool { return p.pageSize > 0 }

// SetOptions applies o. Changing the page size moves the current page to
// the last page that still exists for the known row count.
func (p *Pager) SetOptions(o Options) {
	if o.PageSize != nil {
		p.pageSize = max(0, *o.PageSize)
		if p.pageSize > 0 {
			p.pageNum = min(p.pageNum, max(0, ceilDiv(p.totalRows, p.pageSize)-1))
		} else {
			p.pageNum = 0
		}
	}
	if o.PageNum != nil {
		p.pageNum = min(max(0, *o.PageNum), max(0, p.TotalPages()-1))
	}
}

// TotalPages returns max(1, ceil(totalRows / pageSize)), or 1 when unpaged.
func (p *Pager) TotalPages() int {
	if p.pageSize == 0 {
		return 1
	}
	return max(1, ceilDiv(p.totalRows, p.pageSize))
}

// Info returns the current paging state.
func (p *Pager) Info() Info {
	return Info{
		PageSize:   p.pageSize,
		PageNum:    p.pageNum,
		TotalRows:  p.totalRows,
		TotalPages: p.TotalPages(),
	}
}

// Apply records the row count of filtered and returns the current page.
// If the current page starts beyond the available rows the page number is
// clamped to floor(totalRows / pageSize) and clamped is true.
func (p *Pager) Apply(filtered []records.Record) (page []records.Record, clamped bool) {
	p.totalRows = len(filtered)
	if p.pageSize == 0 {
		return filtered, false
	}

	if p.pageSize*p.pageNum > p.totalRows {
		p.pageNum = p.totalRows / p.pageSize
		clamped = true
	}

	start := p.pageSize * p.pageNum
	end := min(start+p.pageSize, p.totalRows)
	out := make([]records.Record, end-start)
	copy(out, filtered[start:end])
	return out, clamped
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
