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
	"fmt"
	"os"
	"slices"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/google/gridmodel/core/records"
)

// JSONLoader loads a JSON array of objects. Each object becomes a record;
// nested values are kept as their JSON text.
//
// Required config keys:
//   - file_path: Path to the JSON file
//
// Optional config keys:
//   - array_field: When set, the file is an object and the records are the
//     array under this field.
type JSONLoader struct{}

// NewJSONLoader creates a new JSON loader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

// SourceType returns "json".
func (l *JSONLoader) SourceType() string {
	return "json"
}

// objects parses the file into its list of objects.
func (l *JSONLoader) objects(config map[string]string) ([]*structpb.Struct, error) {
	filePath := config["file_path"]
	if filePath == "" {
		return nil, fmt.Errorf("file_path is required")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var root structpb.Value
	if err := protojson.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	list := root.GetListValue()
	if field := config["array_field"]; field != "" {
		inner, ok := root.GetStructValue().GetFields()[field]
		if !ok {
			return nil, fmt.Errorf("field %q not found", field)
		}
		list = inner.GetListValue()
	}
	if list == nil {
		return nil, fmt.Errorf("expected a JSON array of objects")
	}

	objs := make([]*structpb.Struct, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// DiscoverSchema collects the fields of the first objects. Fields are
// sorted by name since JSON objects carry no column order.
func (l *JSONLoader) DiscoverSchema(ctx context.Context, config map[string]string) (*TableSchema, error) {
	objs, err := l.objects(config)
	if err != nil {
		return nil, err
	}

	// Non-null kinds seen per field; a field with mixed kinds is a string.
	kinds := make(map[string]map[ColumnType]bool)
	for _, obj := range objs[:min(len(objs), inferSampleSize)] {
		for name, v := range obj.GetFields() {
			if kinds[name] == nil {
				kinds[name] = make(map[ColumnType]bool)
			}
			if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
				kinds[name][jsonType(v)] = true
			}
		}
	}

	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	slices.Sort(names)

	schema := &TableSchema{Columns: make([]*ColumnSchema, len(names))}
	for i, name := range names {
		t := TypeString
		if len(kinds[name]) == 1 {
			for k := range kinds[name] {
				t = k
			}
		}
		schema.Columns[i] = &ColumnSchema{Name: name, Type: t}
	}
	return schema, nil
}

func jsonType(v *structpb.Value) ColumnType {
	switch v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return TypeFloat64
	case *structpb.Value_BoolValue:
		return TypeBool
	default:
		return TypeString
	}
}

// Load converts every object to a record. Numbers are float64, nulls are
// absent fields.
func (l *JSONLoader) Load(ctx context.Context, config map[string]string, schema *TableSchema) ([]records.Record, error) {
	objs, err := l.objects(config)
	if err != nil {
		return nil, err
	}

	out := make([]records.Record, 0, len(objs))
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := make(records.Record, len(obj.GetFields()))
		for name, v := range obj.GetFields() {
			switch k := v.GetKind().(type) {
			case *structpb.Value_NullValue:
			case *structpb.Value_NumberValue:
				rec[name] = k.NumberValue
			case *structpb.Value_StringValue:
				rec[name] = k.StringValue
			case *structpb.Value_BoolValue:
				rec[name] = k.BoolValue
			default:
				b, err := protojson.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", name, err)
				}
				rec[name] = string(b)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
