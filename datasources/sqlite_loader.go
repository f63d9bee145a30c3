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
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/google/gridmodel/core/records"
)

// SQLiteLoader runs a query against a SQLite database file.
//
// Required config keys:
//   - db_path: Path to the database file
//   - query or table: The SELECT to run, or a table to read entirely
type SQLiteLoader struct{}

// NewSQLiteLoader creates a new SQLite loader.
func NewSQLiteLoader() *SQLiteLoader {
	return &SQLiteLoader{}
}

// SourceType returns "sqlite".
func (l *SQLiteLoader) SourceType() string {
	return "sqlite"
}

func (l *SQLiteLoader) open(config map[string]string) (*sql.DB, string, error) {
	dbPath := config["db_path"]
	if dbPath == "" {
		return nil, "", fmt.Errorf("db_path is required")
	}
	query := config["query"]
	if query == "" {
		table := config["table"]
		if table == "" {
			return nil, "", fmt.Errorf("query or table is required")
		}
		query = "SELECT * FROM " + quoteIdent(table)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	return db, query, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// DiscoverSchema maps the declared column types of the query result.
func (l *SQLiteLoader) DiscoverSchema(ctx context.Context, config map[string]string) (*TableSchema, error) {
	db, query, err := l.open(config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	schema := &TableSchema{Columns: make([]*ColumnSchema, len(colTypes))}
	for i, ct := range colTypes {
		schema.Columns[i] = &ColumnSchema{Name: ct.Name(), Type: sqliteColumnType(ct.DatabaseTypeName())}
	}
	return schema, nil
}

// sqliteColumnType follows SQLite's type affinity rules on the declared
// type name.
func sqliteColumnType(decl string) ColumnType {
	decl = strings.ToUpper(decl)
	switch {
	case strings.Contains(decl, "BOOL"):
		return TypeBool
	case strings.Contains(decl, "INT"):
		return TypeInt64
	case strings.Contains(decl, "DATE"), strings.Contains(decl, "TIME"):
		return TypeDatetime
	case strings.Contains(decl, "CHAR"), strings.Contains(decl, "CLOB"), strings.Contains(decl, "TEXT"):
		return TypeString
	case strings.Contains(decl, "REAL"), strings.Contains(decl, "FLOA"), strings.Contains(decl, "DOUB"),
		strings.Contains(decl, "NUMERIC"), strings.Contains(decl, "DECIMAL"):
		return TypeFloat64
	}
	return TypeString
}

// Load scans every result row. NULL columns are absent from the record.
func (l *SQLiteLoader) Load(ctx context.Context, config map[string]string, schema *TableSchema) ([]records.Record, error) {
	db, query, err := l.open(config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []records.Record
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		rec := make(records.Record, len(names))
		for i, name := range names {
			v := values[i]
			if v == nil {
				continue
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if col := schema.Column(name); col != nil && col.Type == TypeBool {
				if n, ok := v.(int64); ok {
					v = n != 0
				}
			}
			rec[name] = v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return out, nil
}
