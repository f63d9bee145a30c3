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

package datasources

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const salesCSV = `id,region,amount,shipped
1,east,10.5,yes
2,west,3,no
3,east,7,yes
`

func TestManagerLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sales.csv", salesCSV)
	writeFile(t, dir, "people.json", `[{"id": 1, "name": "ada"}, {"id": 2, "name": "bob"}]`)
	configPath := writeFile(t, dir, "sources.yaml", `
sources:
  - name: sales
    type: csv
    grid: sales_grid.yaml
    config:
      file_path: sales.csv
  - name: people
    type: json
    config:
      file_path: people.json
`)

	manager := NewDefaultManager(nil)
	require.NoError(t, manager.LoadConfig(configPath))

	assert.Equal(t, []string{"people", "sales"}, manager.SourceNames())
	assert.Equal(t, filepath.Join(dir, "sales_grid.yaml"), manager.GridPath("sales"))
	assert.Empty(t, manager.GridPath("people"))
	assert.False(t, manager.IsLoaded("sales"), "sales should not be loaded yet")

	ds, err := manager.LoadData(context.Background(), "sales")
	require.NoError(t, err)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, []string{"id", "region", "amount", "shipped"}, ds.Columns())
	assert.Equal(t, int64(1), ds.Records[0]["id"])
	assert.Equal(t, 10.5, ds.Records[0]["amount"])
	assert.Equal(t, true, ds.Records[0]["shipped"])

	assert.True(t, manager.IsLoaded("sales"))
	assert.Equal(t, []string{"sales"}, manager.LoadedSources())

	again, err := manager.LoadData(context.Background(), "sales")
	require.NoError(t, err)
	assert.Same(t, ds, again, "second load should hit the cache")

	manager.InvalidateCache("sales")
	assert.False(t, manager.IsLoaded("sales"))
}

func TestManagerLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", salesCSV)
	writeFile(t, dir, "b.csv", "id,v\n1,2\n")

	manager := NewDefaultManager(nil)
	manager.SetBaseDir(dir)
	manager.AddSource(&Source{Name: "a", Type: "csv", Config: map[string]string{"file_path": "a.csv"}})
	manager.AddSource(&Source{Name: "b", Type: "csv", Config: map[string]string{"file_path": "b.csv"}})

	require.NoError(t, manager.LoadAll(context.Background()))
	assert.Equal(t, []string{"a", "b"}, manager.LoadedSources())

	manager.InvalidateAllCaches()
	assert.Empty(t, manager.LoadedSources())

	manager.AddSource(&Source{Name: "c", Type: "csv", Config: map[string]string{"file_path": "missing.csv"}})
	err := manager.LoadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source "c"`)
}

func TestManagerConcurrentLoadsShareResult(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", salesCSV)
	manager := NewDefaultManager(nil)
	manager.AddSource(&Source{Name: "a", Type: "csv", Config: map[string]string{"file_path": filepath.Join(dir, "a.csv")}})

	var wg sync.WaitGroup
	results := make([]*Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := manager.LoadData(context.Background(), "a")
			assert.NoError(t, err)
			results[i] = ds
		}()
	}
	wg.Wait()
	for _, ds := range results[1:] {
		assert.Same(t, results[0], ds)
	}
}

func TestManagerErrors(t *testing.T) {
	manager := NewManager(nil)
	_, err := manager.LoadData(context.Background(), "nope")
	assert.ErrorContains(t, err, `source "nope" not found`)

	manager.AddSource(&Source{Name: "x", Type: "parquet"})
	_, err = manager.LoadData(context.Background(), "x")
	assert.ErrorContains(t, err, `no loader registered for source type "parquet"`)
}

func TestParseSourcesConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"valid", "sources:\n  - {name: a, type: csv}\n", ""},
		{"missing name", "sources:\n  - {type: csv}\n", "name is required"},
		{"missing type", "sources:\n  - {name: a}\n", "type is required"},
		{"duplicate", "sources:\n  - {name: a, type: csv}\n  - {name: a, type: json}\n", "duplicate source"},
		{"bad yaml", "sources: [", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSourcesConfig([]byte(tt.yaml))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolveConfigPaths(t *testing.T) {
	cfg := map[string]string{
		"file_path": "data.csv",
		"db_path":   "/abs/db.sqlite",
		"delimiter": ";",
	}
	got := resolveConfigPaths(cfg, "/base")
	assert.Equal(t, filepath.Join("/base", "data.csv"), got["file_path"])
	assert.Equal(t, "/abs/db.sqlite", got["db_path"])
	assert.Equal(t, ";", got["delimiter"])
	assert.Equal(t, "data.csv", cfg["file_path"], "input must not change")
}
