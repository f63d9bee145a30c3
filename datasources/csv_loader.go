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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/gridmodel/core/records"
)

// inferSampleSize is the number of data rows inspected per column.
const inferSampleSize = 100

// CsvLoader loads CSV files. Column types are inferred by sampling the data.
//
// Required config keys:
//   - file_path: Path to the CSV file
//
// Optional config keys:
//   - has_header: "true" (default) or "false"
//   - delimiter: Field delimiter (default ",")
type CsvLoader struct{}

// NewCsvLoader creates a new CSV loader.
func NewCsvLoader() *CsvLoader {
	return &CsvLoader{}
}

// SourceType returns "csv".
func (l *CsvLoader) SourceType() string {
	return "csv"
}

// readAll reads the file and splits it into column names and data rows.
func (l *CsvLoader) readAll(config map[string]string) ([]string, [][]string, error) {
	filePath := config["file_path"]
	if filePath == "" {
		return nil, nil, fmt.Errorf("file_path is required")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if d := config["delimiter"]; d != "" {
		reader.Comma = []rune(d)[0]
	}
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("CSV file is empty")
	}

	if configBool(config, "has_header", true) {
		return rows[0], rows[1:], nil
	}
	names := make([]string, len(rows[0]))
	for i := range names {
		names[i] = fmt.Sprintf("col_%d", i)
	}
	return names, rows, nil
}

// DiscoverSchema discovers the columns by sampling CSV data.
func (l *CsvLoader) DiscoverSchema(ctx context.Context, config map[string]string) (*TableSchema, error) {
	names, rows, err := l.readAll(config)
	if err != nil {
		return nil, err
	}
	schema := &TableSchema{Columns: make([]*ColumnSchema, len(names))}
	for i, name := range names {
		schema.Columns[i] = &ColumnSchema{Name: name, Type: inferColumnType(i, rows)}
	}
	return schema, nil
}

// Load converts each data row into a record keyed by column name. Cells
// missing from short rows are absent from the record.
func (l *CsvLoader) Load(ctx context.Context, config map[string]string, schema *TableSchema) ([]records.Record, error) {
	names, rows, err := l.readAll(config)
	if err != nil {
		return nil, err
	}

	out := make([]records.Record, 0, len(rows))
	for rowIdx, row := range rows {
		if rowIdx%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := make(records.Record, len(names))
		for i, name := range names {
			if i >= len(row) {
				break
			}
			typ := TypeString
			if col := schema.Column(name); col != nil {
				typ = col.Type
			}
			v, err := ConvertValue(row[i], typ)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rowIdx+1, name, err)
			}
			rec[name] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// inferColumnType picks the narrowest type every sampled value parses as.
// Empty values are skipped; an all-empty column is a string column.
func inferColumnType(colIdx int, rows [][]string) ColumnType {
	sampleSize := min(len(rows), inferSampleSize)

	isInt, isFloat, isBool, isTime, isDuration := true, true, true, true, true
	seen := false

	for i := 0; i < sampleSize; i++ {
		if colIdx >= len(rows[i]) {
			continue
		}
		val := rows[i][colIdx]
		if val == "" {
			continue
		}
		seen = true

		if isInt {
			if _, err := strconv.ParseInt(val, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if val != "true" && val != "false" && val != "0" && val != "1" && val != "yes" && val != "no" {
				isBool = false
			}
		}
		if isTime {
			if _, err := time.Parse(time.RFC3339, val); err != nil {
				isTime = false
			}
		}
		if isDuration {
			if _, err := time.ParseDuration(val); err != nil {
				isDuration = false
			}
		}
	}

	switch {
	case !seen:
		return TypeString
	case isInt:
		return TypeInt64
	case isFloat:
		return TypeFloat64
	case isBool:
		return TypeBool
	case isTime:
		return TypeDatetime
	case isDuration:
		return TypeDuration
	}
	return TypeString
}
