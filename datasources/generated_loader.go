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
	"strconv"

	"github.com/google/gridmodel/core/records"
)

// GeneratedLoader produces deterministic synthetic transactions, used for
// demos and for measuring refresh cost on large record sets.
//
// Optional config keys:
//   - rows: Number of transactions (default 1000)
//   - users, products, categories: Cardinality of the id fields
//     (defaults 800, 50, 20)
type GeneratedLoader struct{}

// NewGeneratedLoader creates a new generated-data loader.
func NewGeneratedLoader() *GeneratedLoader {
	return &GeneratedLoader{}
}

// SourceType returns "generated".
func (l *GeneratedLoader) SourceType() string {
	return "generated"
}

var generatedStatuses = []string{"pending", "completed", "cancelled", "processing"}

type generatedParams struct {
	rows, users, products, categories int64
}

func parseGeneratedParams(config map[string]string) (generatedParams, error) {
	p := generatedParams{rows: 1000, users: 800, products: 50, categories: 20}
	for key, dst := range map[string]*int64{
		"rows":       &p.rows,
		"users":      &p.users,
		"products":   &p.products,
		"categories": &p.categories,
	} {
		v, ok := config[key]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 || (n == 0 && key != "rows") {
			return p, fmt.Errorf("invalid %s %q", key, v)
		}
		*dst = n
	}
	return p, nil
}

// DiscoverSchema returns the fixed transaction schema.
func (l *GeneratedLoader) DiscoverSchema(ctx context.Context, config map[string]string) (*TableSchema, error) {
	if _, err := parseGeneratedParams(config); err != nil {
		return nil, err
	}
	return &TableSchema{Columns: []*ColumnSchema{
		{Name: "id", Type: TypeInt64},
		{Name: "user_id", Type: TypeInt64},
		{Name: "product_id", Type: TypeInt64},
		{Name: "category_id", Type: TypeInt64},
		{Name: "amount", Type: TypeInt64},
		{Name: "status", Type: TypeString},
	}}, nil
}

// Load generates the transactions.
func (l *GeneratedLoader) Load(ctx context.Context, config map[string]string, schema *TableSchema) ([]records.Record, error) {
	p, err := parseGeneratedParams(config)
	if err != nil {
		return nil, err
	}
	out := make([]records.Record, 0, p.rows)
	for i := range p.rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		// Every seventh transaction lands in category 0 to skew group sizes.
		category := i % p.categories
		if i%7 == 0 {
			category = 0
		}
		out = append(out, records.Record{
			"id":          i,
			"user_id":     i % p.users,
			"product_id":  i % p.products,
			"category_id": category,
			"amount":      10 + i%1000,
			"status":      generatedStatuses[i%int64(len(generatedStatuses))],
		})
	}
	return out, nil
}
