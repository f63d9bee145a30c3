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

package aggregates

import (
	"fmt"

	"github.com/google/gridmodel/core/records"
)

// ResultKey addresses one aggregator output: the reduction and the field it ran on.
type ResultKey struct {
	Type  AggregateType
	Field string
}

// Results is the open-ended bag of aggregator outputs for one group.
// Aggregators write their raw value and, optionally, the state it was
// derived from so parent groups can combine child states.
type Results struct {
	values map[ResultKey]any
	states map[ResultKey]AggregateState
	order  []ResultKey
}

// NewResults creates an empty result bag.
func NewResults() *Results {
	return &Results{
		values: make(map[ResultKey]any),
		states: make(map[ResultKey]AggregateState),
	}
}

// Set stores the value of one aggregator. A later Set for the same key
// overwrites the earlier one.
func (r *Results) Set(aggType AggregateType, field string, value any) {
	key := ResultKey{Type: aggType, Field: field}
	if _, exists := r.values[key]; !exists {
		r.order = append(r.order, key)
	}
	r.values[key] = value
}

// SetState stores the intermediate state backing a value.
func (r *Results) SetState(aggType AggregateType, field string, state AggregateState) {
	r.states[ResultKey{Type: aggType, Field: field}] = state
}

// Get returns a stored value.
func (r *Results) Get(aggType AggregateType, field string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[ResultKey{Type: aggType, Field: field}]
	return v, ok
}

// Float returns a stored value as a float64.
func (r *Results) Float(aggType AggregateType, field string) (float64, bool) {
	v, ok := r.Get(aggType, field)
	if !ok {
		return 0, false
	}
	return records.Float(v)
}

// State returns the intermediate state stored for a key, or nil.
func (r *Results) State(aggType AggregateType, field string) AggregateState {
	if r == nil {
		return nil
	}
	return r.states[ResultKey{Type: aggType, Field: field}]
}

// Keys returns the stored keys in the order they were first set.
func (r *Results) Keys() []ResultKey {
	if r == nil {
		return nil
	}
	return append([]ResultKey(nil), r.order...)
}

// Len returns the number of stored values.
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}

// Format returns the display string of one value.
func (r *Results) Format(aggType AggregateType, field string) string {
	if st := r.State(aggType, field); st != nil {
		return st.Format(aggType)
	}
	v, ok := r.Get(aggType, field)
	if !ok || v == nil {
		return "-"
	}
	if f, ok := records.Float(v); ok {
		return formatNumber(f)
	}
	return fmt.Sprint(v)
}

// FormattedAggregate represents a single formatted aggregate value.
type FormattedAggregate struct {
	Field  string
	Symbol string // e.g., Σ, μ, ↓, ↑
	Value  string
	Title  string
}

// FormatResults returns every stored value formatted for display, in
// insertion order.
func FormatResults(r *Results) []FormattedAggregate {
	keys := r.Keys()
	if len(keys) == 0 {
		return nil
	}
	out := make([]FormattedAggregate, 0, len(keys))
	for _, key := range keys {
		out = append(out, FormattedAggregate{
			Field:  key.Field,
			Symbol: AggregateSymbol(key.Type),
			Value:  r.Format(key.Type, key.Field),
			Title:  AggregateTitle(key.Type),
		})
	}
	return out
}
