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

// Package server exposes DataViews over HTTP: a JSON pull API that a remote
// grid renderer reads display rows through, and an HTML grid page driven
// entirely by its URL.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/gridmodel/core/config"
	"github.com/google/gridmodel/core/dataview"
	"github.com/google/gridmodel/core/logging"
	"github.com/google/gridmodel/core/rendering"
	"github.com/google/gridmodel/datasources"
)

// sourceView is the live DataView of one source. DataViews are not safe for
// concurrent use, so every access holds mu.
type sourceView struct {
	mu      sync.Mutex
	dv      *dataview.DataView
	columns []string
	levels  int
}

// Server represents the application server with all its dependencies
type Server struct {
	manager  *datasources.Manager
	renderer *rendering.GridRenderer
	logger   *slog.Logger

	mu    sync.Mutex
	views map[string]*sourceView
}

// NewServer creates a server over the sources of manager. A nil logger
// discards.
func NewServer(manager *datasources.Manager, logger *slog.Logger) (*Server, error) {
	renderer, err := rendering.NewGridRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		manager:  manager,
		renderer: renderer,
		logger:   logger,
		views:    make(map[string]*sourceView),
	}, nil
}

// view returns the live view of a source, building it on first use from
// the loaded records and the source's grid configuration.
func (s *Server) view(ctx context.Context, name string) (*sourceView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[name]; ok {
		return v, nil
	}

	ds, err := s.manager.LoadData(ctx, name)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	if path := s.manager.GridPath(name); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("grid config of %q: %w", name, err)
		}
	}
	idField := ds.Source.IDField
	if idField == "" {
		idField = cfg.IDField
	}

	dv := dataview.New(dataview.WithLogger(s.logger.With("source", name)))
	if err := dv.SetItems(slices.Clone(ds.Records), idField); err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	if err := cfg.Apply(dv); err != nil {
		return nil, fmt.Errorf("grid config of %q: %w", name, err)
	}

	v := &sourceView{dv: dv, columns: ds.Columns(), levels: len(cfg.Grouping)}
	s.views[name] = v
	return v, nil
}

// Reset drops the live view of a source so that the next request reloads
// it.
func (s *Server) Reset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, name)
	s.manager.InvalidateCache(name)
}

// TimingEntry is one measured step of a request.
type TimingEntry struct {
	Operation  string
	DurationMs string
}

// TimingCollector collects timing measurements for various operations
type TimingCollector struct {
	entries []TimingEntry
	start   time.Time
}

// NewTimingCollector creates a new timing collector
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{start: time.Now()}
}

// Record records a timing entry
func (tc *TimingCollector) Record(operation string, duration time.Duration) {
	tc.entries = append(tc.entries, TimingEntry{
		Operation:  operation,
		DurationMs: fmt.Sprintf("%.2f", float64(duration.Microseconds())/1000.0),
	})
}

// Entries returns all timing entries
func (tc *TimingCollector) Entries() []TimingEntry {
	return tc.entries
}

// TotalMs returns total elapsed time in milliseconds as formatted string
func (tc *TimingCollector) TotalMs() string {
	return fmt.Sprintf("%.2f", float64(time.Since(tc.start).Microseconds())/1000.0)
}

// ServerTiming formats the entries as a Server-Timing header value.
func (tc *TimingCollector) ServerTiming() string {
	parts := make([]string, 0, len(tc.entries)+1)
	for _, e := range tc.entries {
		parts = append(parts, fmt.Sprintf("%s;dur=%s", e.Operation, e.DurationMs))
	}
	parts = append(parts, "total;dur="+tc.TotalMs())
	return strings.Join(parts, ", ")
}
