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
	"strconv"
	"strings"
	"time"

	"github.com/google/gridmodel/core/records"
)

// Aggregator is the stateful reducer run once per group:
// Init, then Accumulate for every member record, then StoreResult.
type Aggregator interface {
	Type() AggregateType
	Field() string
	Init()
	Accumulate(r records.Record)
	StoreResult(res *Results)
}

// ChildAccumulator is implemented by aggregators that can fold the totals of
// a child group instead of its records. It is used when a grouping level
// aggregates child groups.
type ChildAccumulator interface {
	AccumulateChild(child *Results)
}

// fieldAggregator reduces one field with one of the built-in reductions.
type fieldAggregator struct {
	aggType AggregateType
	field   string
	state   AggregateState
}

// New returns the built-in aggregator for aggType over field.
// For AggCount an empty field counts every record.
func New(aggType AggregateType, field string) Aggregator {
	a := &fieldAggregator{aggType: aggType, field: field}
	a.Init()
	return a
}

// Sum adds the numeric values of field.
func Sum(field string) Aggregator { return New(AggSum, field) }

// Avg averages the numeric values of field.
func Avg(field string) Aggregator { return New(AggAvg, field) }

// Min keeps the smallest numeric value of field.
func Min(field string) Aggregator { return New(AggMin, field) }

// Max keeps the largest numeric value of field.
func Max(field string) Aggregator { return New(AggMax, field) }

// Count counts records with a non-nil field, or every record if field is empty.
func Count(field string) Aggregator { return New(AggCount, field) }

// StdDev computes the population standard deviation of field.
func StdDev(field string) Aggregator { return New(AggStdDev, field) }

// Unique counts the distinct values of field.
func Unique(field string) Aggregator { return New(AggUnique, field) }

// Ratio computes the share of true values of a boolean field.
func Ratio(field string) Aggregator { return New(AggRatio, field) }

// Span computes max - min of a time field.
func Span(field string) Aggregator { return New(AggSpan, field) }

func (a *fieldAggregator) Type() AggregateType { return a.aggType }
func (a *fieldAggregator) Field() string       { return a.field }

func (a *fieldAggregator) Init() {
	switch a.aggType {
	case AggCount:
		a.state = &CountAggState{}
	case AggUnique:
		a.state = NewStringAggState()
	case AggTrue, AggFalse, AggRatio:
		a.state = &BoolAggState{}
	case AggSpan:
		a.state = NewDatetimeAggState()
	default:
		a.state = NewNumericAggState()
	}
}

// Accumulate adds one record. Values the reduction cannot use (nil, empty
// strings, non-numeric text for numeric reductions) are skipped.
func (a *fieldAggregator) Accumulate(r records.Record) {
	if a.aggType == AggCount && a.field == "" {
		a.state.(*CountAggState).Count++
		return
	}
	v, ok := r[a.field]
	if !ok || v == nil {
		return
	}
	switch st := a.state.(type) {
	case *CountAggState:
		st.Count++
	case *NumericAggState:
		if f, ok := records.Float(v); ok {
			st.Add(f)
		}
	case *StringAggState:
		st.Add(records.String(v))
	case *BoolAggState:
		if b, ok := toBool(v); ok {
			st.Add(b)
		}
	case *DatetimeAggState:
		if t, ok := toTime(v); ok {
			st.Add(t)
		}
	}
}

// AccumulateChild folds the state a child group stored for the same key.
func (a *fieldAggregator) AccumulateChild(child *Results) {
	if st := child.State(a.aggType, a.field); st != nil {
		a.state.Combine(st)
	}
}

func (a *fieldAggregator) StoreResult(res *Results) {
	res.Set(a.aggType, a.field, a.state.Value(a.aggType))
	res.SetState(a.aggType, a.field, a.state)
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	if f, ok := records.Float(v); ok {
		return f != 0, true
	}
	return false, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		return parsed, err == nil
	}
	return time.Time{}, false
}
