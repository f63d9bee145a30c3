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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/dataview"
	"github.com/google/gridmodel/core/logging"
	"github.com/google/gridmodel/core/records"
)

const sample = `
id_field: sku
page_size: 2
filter: "qty > 0"
sort: { field: price, descending: true }
grouping:
  - field: cat
    predefined: [fruit, veg, nuts]
    display_totals_row: false
    aggregators:
      - { type: sum, field: qty }
      - { type: avg, field: price }
collapsed: [veg]
logging:
  level: debug
  json: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "sku", cfg.IDField)
	assert.Equal(t, 2, cfg.PageSize)
	assert.Equal(t, "qty > 0", cfg.Filter)
	require.NotNil(t, cfg.Sort)
	assert.True(t, cfg.Sort.Descending)
	require.Len(t, cfg.Grouping, 1)
	assert.Equal(t, []any{"fruit", "veg", "nuts"}, cfg.Grouping[0].Predefined)

	specs, err := cfg.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.False(t, specs[0].DisplayTotalsRow)
	require.Len(t, specs[0].Aggregators, 2)
	assert.Equal(t, aggregates.AggSum, specs[0].Aggregators[0].Type())
	assert.Equal(t, aggregates.AggAvg, specs[0].Aggregators[1].Type())

	lc, err := cfg.LogConfig("test")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.True(t, lc.JSON)
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("grouping: [{field: cat}]"))
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.IDField)
	assert.Zero(t, cfg.PageSize)

	specs, err := cfg.Specs()
	require.NoError(t, err)
	assert.True(t, specs[0].DisplayTotalsRow)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative page size", "page_size: -1", "page_size"},
		{"bad filter", "filter: 'qty >'", "filter"},
		{"sort without field", "sort: {descending: true}", "sort.field"},
		{"group without field", "grouping: [{collapsed: true}]", "field or expr"},
		{"bad group expr", "grouping: [{expr: 'nosuch(x)'}]", "grouping[0].expr"},
		{"unknown aggregator", "grouping: [{field: a, aggregators: [{type: median, field: v}]}]", "median"},
		{"bad log level", "logging: {level: loud}", "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	t.Setenv("GRIDMODEL_PAGE_SIZE", "10")
	t.Setenv("GRIDMODEL_LOG_LEVEL", "warn")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "warn", cfg.Logging.Level)

	t.Setenv("GRIDMODEL_PAGE_SIZE", "ten")
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	dv := dataview.New()
	items := []records.Record{
		{"sku": "a1", "cat": "fruit", "qty": 3, "price": 1.0},
		{"sku": "a2", "cat": "fruit", "qty": 0, "price": 2.0},
		{"sku": "v1", "cat": "veg", "qty": 5, "price": 0.5},
		{"sku": "f3", "cat": "fruit", "qty": 1, "price": 4.0},
	}
	require.NoError(t, dv.SetItems(items, cfg.IDField))
	require.NoError(t, cfg.Apply(dv))

	// Filtered and sorted by price descending: f3, a1, v1. The first page
	// holds f3 and a1; the empty predefined groups still show, sorted.
	assert.Equal(t, 3, len(dv.FilteredItems()))
	assert.Equal(t, 2, dv.PagingInfo().TotalPages)

	var titles []string
	for i := 0; i < dv.Length(); i++ {
		row, ok := dv.Item(i)
		require.True(t, ok)
		if row.Group != nil {
			titles = append(titles, row.Group.Title)
		} else {
			titles = append(titles, row.Record["sku"].(string))
		}
	}
	assert.Equal(t, []string{"fruit", "f3", "a1", "nuts", "veg"}, titles)
	assert.False(t, dv.IsSuspended())
}
