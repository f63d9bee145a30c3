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

package dataview

import (
	"log/slog"

	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/records"
)

// Metadata holds display hints for one row. The core never reads it.
type Metadata struct {
	Selectable bool
	Focusable  bool
	CSSClasses string
	// Columns holds per-column hints, e.g. a colspan for group rows.
	Columns map[string]map[string]any
}

// MetadataProvider decorates group and totals rows. It is supplied by the
// renderer.
type MetadataProvider interface {
	GroupRowMetadata(g *grouping.Group) *Metadata
	TotalsRowMetadata(t *grouping.Totals) *Metadata
}

// Option configures a DataView.
type Option func(*DataView)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(dv *DataView) { dv.logger = logger }
}

// WithMetadataProvider sets the group and totals row metadata provider.
func WithMetadataProvider(p MetadataProvider) Option {
	return func(dv *DataView) { dv.metadata = p }
}

// WithItemMetadata sets the metadata callback for leaf rows.
func WithItemMetadata(f func(r records.Record) *Metadata) Option {
	return func(dv *DataView) { dv.itemMetadata = f }
}

// WithIDField sets the identity field used until SetItems names another.
func WithIDField(field string) Option {
	return func(dv *DataView) { dv.idField = field }
}
