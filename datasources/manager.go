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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/google/gridmodel/core/logging"
	"github.com/google/gridmodel/core/records"
)

// maxParallelLoads bounds LoadAll.
const maxParallelLoads = 4

var loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "gridmodel_source_load_duration_seconds",
	Help:    "Data source load duration",
	Buckets: prometheus.DefBuckets,
}, []string{"source_type"})

// ErrSourceNotFound is returned for names no source was registered under.
var ErrSourceNotFound = errors.New("not found")

// Source describes one named data source.
type Source struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// IDField is the identity field of the loaded records; empty means "id".
	IDField string `yaml:"id_field"`
	// Grid is an optional grid configuration file applied to views of
	// this source.
	Grid   string            `yaml:"grid"`
	Config map[string]string `yaml:"config"`
}

// SourcesConfig is the YAML file listing data sources.
type SourcesConfig struct {
	Sources []*Source `yaml:"sources"`
}

// Dataset is a loaded source. Records is shared by every caller of LoadData;
// a DataView sorts the slice it is given in place, so views take a copy.
type Dataset struct {
	Source  *Source
	Schema  *TableSchema
	Records []records.Record
}

// Columns returns the schema's column names.
func (d *Dataset) Columns() []string {
	return d.Schema.Names()
}

// Manager handles loading and caching of data sources. Source metadata is
// registered eagerly; data is loaded lazily on demand.
type Manager struct {
	mu sync.RWMutex

	sources  map[string]*Source
	datasets map[string]*Dataset
	loaders  map[string]Loader

	// Base directory for resolving relative paths
	baseDir string

	group  singleflight.Group
	logger *slog.Logger
}

// NewManager creates a new data source manager with no loaders. A nil
// logger discards.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		sources:  make(map[string]*Source),
		datasets: make(map[string]*Dataset),
		loaders:  make(map[string]Loader),
		logger:   logger,
	}
}

// NewDefaultManager creates a manager with every built-in loader.
func NewDefaultManager(logger *slog.Logger) *Manager {
	m := NewManager(logger)
	m.RegisterLoader(NewCsvLoader())
	m.RegisterLoader(NewJSONLoader())
	m.RegisterLoader(NewProtoLoader())
	m.RegisterLoader(NewSQLiteLoader())
	m.RegisterLoader(NewGeneratedLoader())
	return m
}

// RegisterLoader registers a loader for its source type, replacing any
// previous one.
func (m *Manager) RegisterLoader(loader Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaders[loader.SourceType()] = loader
}

// LoadConfig reads a YAML sources file. Relative paths in it resolve
// against the file's directory.
func (m *Manager) LoadConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := ParseSourcesConfig(data)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	m.mu.Lock()
	m.baseDir = filepath.Dir(configPath)
	m.mu.Unlock()

	for _, s := range cfg.Sources {
		m.AddSource(s)
	}
	return nil
}

// ParseSourcesConfig parses and checks a YAML sources file.
func ParseSourcesConfig(data []byte) (*SourcesConfig, error) {
	var cfg SourcesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("sources[%d]: name is required", i)
		}
		if s.Type == "" {
			return nil, fmt.Errorf("source %q: type is required", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate source %q", s.Name)
		}
		seen[s.Name] = true
	}
	return &cfg, nil
}

// SetBaseDir sets the directory relative paths resolve against.
func (m *Manager) SetBaseDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseDir = dir
}

// AddSource registers a source, dropping any cached data of the same name.
func (m *Manager) AddSource(source *Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.Name] = source
	delete(m.datasets, source.Name)
}

// Source returns the named source, or nil.
func (m *Manager) Source(name string) *Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sources[name]
}

// SourceNames returns the registered source names, sorted.
func (m *Manager) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GridPath returns the source's grid configuration path resolved against
// the base directory, or "".
func (m *Manager) GridPath(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[name]
	if !ok || s.Grid == "" {
		return ""
	}
	if m.baseDir != "" && !filepath.IsAbs(s.Grid) {
		return filepath.Join(m.baseDir, s.Grid)
	}
	return s.Grid
}

// LoadData returns the records of a source, loading them on first use.
// Concurrent first loads of the same source share one load.
func (m *Manager) LoadData(ctx context.Context, sourceName string) (*Dataset, error) {
	m.mu.RLock()
	if ds, ok := m.datasets[sourceName]; ok {
		m.mu.RUnlock()
		return ds, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(sourceName, func() (any, error) {
		return m.load(ctx, sourceName)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

func (m *Manager) load(ctx context.Context, sourceName string) (*Dataset, error) {
	m.mu.RLock()
	if ds, ok := m.datasets[sourceName]; ok {
		m.mu.RUnlock()
		return ds, nil
	}
	source, ok := m.sources[sourceName]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("source %q %w", sourceName, ErrSourceNotFound)
	}
	loader, hasLoader := m.loaders[source.Type]
	baseDir := m.baseDir
	m.mu.RUnlock()

	if !hasLoader {
		return nil, fmt.Errorf("no loader registered for source type %q", source.Type)
	}

	config := resolveConfigPaths(source.Config, baseDir)
	start := time.Now()

	schema, err := loader.DiscoverSchema(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover schema for source %q: %w", sourceName, err)
	}
	recs, err := loader.Load(ctx, config, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load source %q: %w", sourceName, err)
	}

	elapsed := time.Since(start)
	loadDuration.WithLabelValues(source.Type).Observe(elapsed.Seconds())
	m.logger.Info("loaded source",
		"source", sourceName,
		"type", source.Type,
		"rows", len(recs),
		"columns", len(schema.Columns),
		"duration", elapsed)

	ds := &Dataset{Source: source, Schema: schema, Records: recs}
	m.mu.Lock()
	// A source replaced during the load keeps its cache empty.
	if m.sources[sourceName] == source {
		m.datasets[sourceName] = ds
	}
	m.mu.Unlock()
	return ds, nil
}

// LoadAll loads every registered source concurrently and returns the first
// error.
func (m *Manager) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for _, name := range m.SourceNames() {
		g.Go(func() error {
			_, err := m.LoadData(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// resolveConfigPaths resolves relative file paths in config against baseDir.
func resolveConfigPaths(config map[string]string, baseDir string) map[string]string {
	if baseDir == "" {
		return config
	}

	resolved := make(map[string]string, len(config))
	pathKeys := map[string]bool{
		"file_path":      true,
		"db_path":        true,
		"descriptor_set": true,
	}

	for k, v := range config {
		if pathKeys[k] && v != "" && !filepath.IsAbs(v) {
			resolved[k] = filepath.Join(baseDir, v)
		} else {
			resolved[k] = v
		}
	}
	return resolved
}

// InvalidateCache removes a source from the cache, forcing reload on next access.
func (m *Manager) InvalidateCache(sourceName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.datasets, sourceName)
}

// InvalidateAllCaches removes all sources from the cache.
func (m *Manager) InvalidateAllCaches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets = make(map[string]*Dataset)
}

// IsLoaded returns whether data for a source is currently cached.
func (m *Manager) IsLoaded(sourceName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.datasets[sourceName]
	return ok
}

// LoadedSources returns the names of all cached sources, sorted.
func (m *Manager) LoadedSources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.datasets))
	for name := range m.datasets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
