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

package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/dataview"
	"github.com/google/gridmodel/core/events"
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/paging"
	"github.com/google/gridmodel/core/query"
	"github.com/google/gridmodel/core/records"
	"github.com/google/gridmodel/core/rendering"
	"github.com/google/gridmodel/datasources"
)

// maxRowsPerRequest caps GET rows.
const maxRowsPerRequest = 1000

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// LengthResponse is the body of GET length.
type LengthResponse struct {
	Length int `json:"length"`
}

// RowResponse is one display row.
type RowResponse struct {
	Index      int                             `json:"index"`
	Kind       string                          `json:"kind"`
	Level      int                             `json:"level"`
	Key        string                          `json:"key,omitempty"`
	Title      string                          `json:"title,omitempty"`
	Count      int                             `json:"count,omitempty"`
	Collapsed  bool                            `json:"collapsed,omitempty"`
	Record     records.Record                  `json:"record,omitempty"`
	Totals     []aggregates.FormattedAggregate `json:"totals,omitempty"`
	CSSClasses string                          `json:"cssClasses,omitempty"`
}

// RowsResponse is the body of GET rows.
type RowsResponse struct {
	From   int           `json:"from"`
	Length int           `json:"length"`
	Rows   []RowResponse `json:"rows"`
}

// PagingRequest is the body of PUT paging. Absent fields are unchanged.
type PagingRequest struct {
	PageSize *int `json:"pageSize"`
	PageNum  *int `json:"pageNum"`
}

// GroupRequest addresses groups to collapse or expand: either one group by
// grouping key, or with All set every group of Level (-1 for all levels).
type GroupRequest struct {
	Key   string `json:"key"`
	All   bool   `json:"all"`
	Level int    `json:"level"`
}

// ChangeResponse reports the effect of a mutation.
type ChangeResponse struct {
	Length  int   `json:"length"`
	Changed []int `json:"changed"`
}

// HealthResponse is the body of GET healthz.
type HealthResponse struct {
	Status  string   `json:"status"`
	Sources []string `json:"sources"`
}

func errSourceNotFound(name string) error {
	return fmt.Errorf("source %q %w", name, datasources.ErrSourceNotFound)
}

func (s *Server) fail(c *gin.Context, status int, code string, err error) {
	s.logger.Warn("request failed", "path", c.FullPath(), "code", code, "error", err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// withView resolves the :source parameter and runs fn holding the view's
// lock.
func (s *Server) withView(c *gin.Context, fn func(v *sourceView)) {
	name := c.Param("source")
	v, err := s.view(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, datasources.ErrSourceNotFound) {
			s.fail(c, http.StatusNotFound, "SOURCE_NOT_FOUND", err)
		} else {
			s.fail(c, http.StatusInternalServerError, "LOAD_FAILED", err)
		}
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v)
}

// HandleHealth reports liveness and the configured sources.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Sources: s.manager.SourceNames()})
}

// HandleLength returns the display row count.
func (s *Server) HandleLength(c *gin.Context) {
	s.withView(c, func(v *sourceView) {
		c.JSON(http.StatusOK, LengthResponse{Length: v.dv.Length()})
	})
}

// HandleRows returns display rows [from, to). to defaults to from+100 and
// is clamped to the row count.
func (s *Server) HandleRows(c *gin.Context) {
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil || from < 0 {
		s.fail(c, http.StatusBadRequest, "INVALID_RANGE", errors.New("from must be a non-negative integer"))
		return
	}
	to, err := strconv.Atoi(c.DefaultQuery("to", strconv.Itoa(from+100)))
	if err != nil || to < from {
		s.fail(c, http.StatusBadRequest, "INVALID_RANGE", errors.New("to must be an integer not below from"))
		return
	}
	to = min(to, from+maxRowsPerRequest)

	s.withView(c, func(v *sourceView) {
		to := min(to, v.dv.Length())
		resp := RowsResponse{From: from, Length: v.dv.Length(), Rows: []RowResponse{}}
		for i := from; i < to; i++ {
			if row, ok := v.dv.Item(i); ok {
				resp.Rows = append(resp.Rows, rowResponse(i, row, v.dv.ItemMetadata(i)))
			}
		}
		c.JSON(http.StatusOK, resp)
	})
}

func rowResponse(i int, row grouping.Row, meta *dataview.Metadata) RowResponse {
	r := RowResponse{Index: i, Kind: row.Kind.String()}
	switch row.Kind {
	case grouping.RowGroup:
		g := row.Group
		r.Level, r.Key, r.Title, r.Count, r.Collapsed = g.Level, g.GroupingKey, g.Title, g.Count, g.Collapsed
	case grouping.RowTotals:
		g := row.Totals.Group
		r.Level, r.Key = g.Level, g.GroupingKey
		r.Totals = aggregates.FormatResults(row.Totals.Results)
	default:
		r.Record = row.Record
	}
	if meta != nil {
		r.CSSClasses = meta.CSSClasses
	}
	return r
}

// HandleGetPaging returns the paging state.
func (s *Server) HandleGetPaging(c *gin.Context) {
	s.withView(c, func(v *sourceView) {
		c.JSON(http.StatusOK, v.dv.PagingInfo())
	})
}

// HandleSetPaging changes the page size and/or number.
func (s *Server) HandleSetPaging(c *gin.Context) {
	var req PagingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if (req.PageSize != nil && *req.PageSize < 0) || (req.PageNum != nil && *req.PageNum < 0) {
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("page size and number must not be negative"))
		return
	}
	s.withView(c, func(v *sourceView) {
		v.dv.SetPagingOptions(paging.Options{PageSize: req.PageSize, PageNum: req.PageNum})
		c.JSON(http.StatusOK, v.dv.PagingInfo())
	})
}

// HandleCollapse collapses groups.
func (s *Server) HandleCollapse(c *gin.Context) { s.handleToggle(c, true) }

// HandleExpand expands groups.
func (s *Server) HandleExpand(c *gin.Context) { s.handleToggle(c, false) }

func (s *Server) handleToggle(c *gin.Context, collapse bool) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if !req.All && req.Key == "" {
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("key or all is required"))
		return
	}
	s.withView(c, func(v *sourceView) {
		var changed []int
		sub := v.dv.OnRowsChanged().Subscribe(func(_ *events.EventData, e dataview.RowsChanged) {
			changed = append(changed, e.Rows...)
		})
		defer v.dv.OnRowsChanged().Unsubscribe(sub)

		switch {
		case req.All && collapse:
			v.dv.CollapseAllGroups(req.Level)
		case req.All:
			v.dv.ExpandAllGroups(req.Level)
		case collapse:
			v.dv.CollapseGroup(req.Key)
		default:
			v.dv.ExpandGroup(req.Key)
		}
		if changed == nil {
			changed = []int{}
		}
		c.JSON(http.StatusOK, ChangeResponse{Length: v.dv.Length(), Changed: changed})
	})
}

// HandleGrid renders the HTML grid described by the request URL. It builds
// a throwaway DataView, so concurrent requests share nothing but the cached
// records.
func (s *Server) HandleGrid(c *gin.Context) {
	timing := NewTimingCollector()

	start := time.Now()
	q := query.NewQuery(c.Request.URL)
	timing.Record("parse", time.Since(start))
	if q.Source == "" {
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("source parameter is required"))
		return
	}

	start = time.Now()
	ds, err := s.manager.LoadData(c.Request.Context(), q.Source)
	if err != nil {
		if errors.Is(err, datasources.ErrSourceNotFound) {
			s.fail(c, http.StatusNotFound, "SOURCE_NOT_FOUND", err)
		} else {
			s.fail(c, http.StatusInternalServerError, "LOAD_FAILED", err)
		}
		return
	}
	timing.Record("load", time.Since(start))

	cfg := q.Config(ds.Source.IDField)
	if err := cfg.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}

	start = time.Now()
	dv := dataview.New(dataview.WithLogger(s.logger.With("source", q.Source)))
	if err := dv.SetItems(slices.Clone(ds.Records), cfg.IDField); err != nil {
		s.fail(c, http.StatusInternalServerError, "INVALID_RECORDS", err)
		return
	}
	if err := cfg.Apply(dv); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}
	timing.Record("refresh", time.Since(start))

	columns := q.Columns
	if len(columns) == 0 {
		columns = ds.Columns()
	}
	start = time.Now()
	vm := rendering.NewGridViewModel(dv, rendering.Options{Columns: columns, Levels: len(q.Grouped)}, dv.PagingInfo())
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, vm); err != nil {
		s.fail(c, http.StatusInternalServerError, "RENDER_FAILED", err)
		return
	}
	timing.Record("render", time.Since(start))

	c.Header("Server-Timing", timing.ServerTiming())
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
