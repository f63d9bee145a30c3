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

// Package datasources loads records for a DataView from files and
// databases. Each source type has a Loader; the Manager resolves named
// sources from a YAML file and caches what it loaded.
package datasources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/gridmodel/core/records"
)

// ColumnType represents the data type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeUint64
	TypeFloat64
	TypeBool
	TypeDatetime
	TypeDuration
)

// String returns the string representation of the column type.
func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt64:
		return "int64"
	case TypeUint64:
		return "uint64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeDatetime:
		return "datetime"
	case TypeDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// ColumnSchema is a single column discovered from a data source.
type ColumnSchema struct {
	Name string
	Type ColumnType
}

// TableSchema is the full column list discovered from a data source.
type TableSchema struct {
	Columns []*ColumnSchema
}

// Names returns the column names in source order.
func (s *TableSchema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil.
func (s *TableSchema) Column(name string) *ColumnSchema {
	for _, c := range s.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Loader is implemented by every source type. Built-in loaders are "csv",
// "json", "textproto" and "sqlite".
type Loader interface {
	// SourceType returns the type identifier used in config.
	SourceType() string

	// DiscoverSchema returns the columns of the source. It is called before
	// Load so that values can be converted to their column types.
	DiscoverSchema(ctx context.Context, config map[string]string) (*TableSchema, error)

	// Load reads every record of the source.
	Load(ctx context.Context, config map[string]string, schema *TableSchema) ([]records.Record, error)
}

// ConvertValue parses raw text as a value of type t. Empty text is nil for
// every type except string.
func ConvertValue(raw string, t ColumnType) (any, error) {
	if raw == "" && t != TypeString {
		return nil, nil
	}
	switch t {
	case TypeInt64:
		return strconv.ParseInt(raw, 10, 64)
	case TypeUint64:
		return strconv.ParseUint(raw, 10, 64)
	case TypeFloat64:
		return strconv.ParseFloat(raw, 64)
	case TypeBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", raw)
	case TypeDatetime:
		return time.Parse(time.RFC3339, raw)
	case TypeDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

// configBool reads a boolean config key with a default.
func configBool(config map[string]string, key string, def bool) bool {
	switch strings.ToLower(config[key]) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}
