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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridmodel/core/paging"
	"github.com/google/gridmodel/datasources"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("sales.csv", "id,region,amount\n1,east,10\n2,west,5\n3,east,7\n")
	write("sales_grid.yaml", `
grouping:
  - field: region
    aggregators: [{type: sum, field: amount}]
`)
	write("sources.yaml", `
sources:
  - name: sales
    type: csv
    grid: sales_grid.yaml
    config: {file_path: sales.csv}
`)

	manager := datasources.NewDefaultManager(nil)
	require.NoError(t, manager.LoadConfig(filepath.Join(dir, "sources.yaml")))
	srv, err := NewServer(manager, nil)
	require.NoError(t, err)
	return srv.Router()
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	router := setupTestRouter(t)
	w := do(t, router, "GET", "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, []string{"sales"}, resp.Sources)
}

func TestHandleRows(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, "GET", "/api/sources/sales/length", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[LengthResponse](t, w).Length)

	w = do(t, router, "GET", "/api/sources/sales/rows?from=0&to=4", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[RowsResponse](t, w)
	assert.Equal(t, 7, resp.Length)
	require.Len(t, resp.Rows, 4)

	assert.Equal(t, "group", resp.Rows[0].Kind)
	assert.Equal(t, "east", resp.Rows[0].Title)
	assert.Equal(t, 2, resp.Rows[0].Count)
	assert.Equal(t, "leaf", resp.Rows[1].Kind)
	assert.Equal(t, 1.0, resp.Rows[1].Record["id"])
	assert.Equal(t, 3.0, resp.Rows[2].Record["id"])
	assert.Equal(t, "totals", resp.Rows[3].Kind)
	require.Len(t, resp.Rows[3].Totals, 1)
	assert.Equal(t, "17", resp.Rows[3].Totals[0].Value)

	w = do(t, router, "GET", "/api/sources/sales/rows?from=5&to=50", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[RowsResponse](t, w).Rows, 2, "range is clamped to the row count")

	w = do(t, router, "GET", "/api/sources/sales/rows?from=3&to=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RANGE", decode[ErrorResponse](t, w).Code)
}

func TestHandleCollapseAndExpand(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, "POST", "/api/sources/sales/groups/collapse", `{"key": "east"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ChangeResponse](t, w)
	assert.Equal(t, 4, resp.Length)
	assert.Contains(t, resp.Changed, 0)

	// Collapsing again changes nothing.
	w = do(t, router, "POST", "/api/sources/sales/groups/collapse", `{"key": "east"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[ChangeResponse](t, w).Length)

	w = do(t, router, "POST", "/api/sources/sales/groups/expand", `{"all": true, "level": -1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[ChangeResponse](t, w).Length)

	w = do(t, router, "POST", "/api/sources/sales/groups/expand", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePaging(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, "PUT", "/api/sources/sales/paging", `{"pageSize": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, paging.Info{PageSize: 2, PageNum: 0, TotalRows: 3, TotalPages: 2}, decode[paging.Info](t, w))

	w = do(t, router, "PUT", "/api/sources/sales/paging", `{"pageNum": 1}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "GET", "/api/sources/sales/paging", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[paging.Info](t, w).PageNum)

	// Page two holds record 3 only: one group, one leaf, one totals row.
	w = do(t, router, "GET", "/api/sources/sales/length", "")
	assert.Equal(t, 3, decode[LengthResponse](t, w).Length)

	w = do(t, router, "PUT", "/api/sources/sales/paging", `{"pageSize": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridRequestsLeaveLiveViewOrder(t *testing.T) {
	router := setupTestRouter(t)
	w := do(t, router, "GET", "/api/sources/sales/length", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "GET", "/grid?source=sales&sort=amount", "")
	require.Equal(t, http.StatusOK, w.Code)

	// Force the live view to refresh from its store.
	do(t, router, "POST", "/api/sources/sales/groups/collapse", `{"key": "west"}`)
	do(t, router, "POST", "/api/sources/sales/groups/expand", `{"key": "west"}`)

	w = do(t, router, "GET", "/api/sources/sales/rows?from=0&to=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[RowsResponse](t, w).Rows
	require.Len(t, rows, 3)
	assert.Equal(t, 1.0, rows[1].Record["id"])
	assert.Equal(t, 3.0, rows[2].Record["id"])
}

func TestHandleASCIIAndReload(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, "GET", "/api/sources/sales/ascii", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "▾ east (2)")
	assert.Contains(t, w.Body.String(), "Σ 17")

	do(t, router, "POST", "/api/sources/sales/groups/collapse", `{"key": "east"}`)
	w = do(t, router, "POST", "/api/sources/sales/reload", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "GET", "/api/sources/sales/length", "")
	assert.Equal(t, 7, decode[LengthResponse](t, w).Length, "reload restores the configured view")

	w = do(t, router, "POST", "/api/sources/nope/reload", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGrid(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, "GET", "/grid?source=sales&grouped=region&agg=sum:amount&page_size=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	html := w.Body.String()
	assert.Contains(t, html, "▾ east (2)")
	assert.Contains(t, html, "<td>Σ 17</td>")
	assert.Contains(t, html, "3 rows")
	assert.Contains(t, w.Header().Get("Server-Timing"), "total;dur=")

	w = do(t, router, "GET", "/grid?source=sales&filter=amount+%3E", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", decode[ErrorResponse](t, w).Code)

	w = do(t, router, "GET", "/grid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSourceNotFound(t *testing.T) {
	router := setupTestRouter(t)
	w := do(t, router, "GET", "/api/sources/nope/length", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SOURCE_NOT_FOUND", decode[ErrorResponse](t, w).Code)

	w = do(t, router, "GET", "/grid?source=nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetrics(t *testing.T) {
	router := setupTestRouter(t)
	do(t, router, "GET", "/api/sources/sales/length", "")

	w := do(t, router, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gridmodel_refresh_total")
	assert.Contains(t, w.Body.String(), "gridmodel_source_load_duration_seconds")
}

func TestTimingCollector(t *testing.T) {
	tc := NewTimingCollector()
	tc.Record("load", 1500)
	require.Len(t, tc.Entries(), 1)
	assert.Equal(t, "0.00", tc.Entries()[0].DurationMs)
	assert.True(t, strings.HasPrefix(tc.ServerTiming(), "load;dur=0.00, total;dur="))
}
