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

// Package aggregates provides the group aggregators of a data view.
// Each aggregator keeps an intermediate state that can be combined up a
// grouping hierarchy, so parent totals can be derived from child totals.
package aggregates

import (
	"fmt"
	"math"
	"time"
)

// AggregateState is the interface for all aggregate state types.
type AggregateState interface {
	// Combine merges another state into this one (for hierarchical aggregation).
	Combine(other AggregateState)
	// Value returns the raw result for the given aggregate type, or nil when
	// the state holds no values.
	Value(aggType AggregateType) any
	// Format returns a formatted string for the given aggregate type.
	Format(aggType AggregateType) string
}

// CountAggState counts non-nil values.
type CountAggState struct {
	Count int64
}

// Combine merges another count state into this one.
func (s *CountAggState) Combine(other AggregateState) {
	if o, ok := other.(*CountAggState); ok {
		s.Count += o.Count
	}
}

// Value returns the count.
func (s *CountAggState) Value(aggType AggregateType) any {
	return s.Count
}

// Format returns the count as a string.
func (s *CountAggState) Format(aggType AggregateType) string {
	return fmt.Sprintf("%d", s.Count)
}

// NumericAggState stores intermediate state for numeric aggregates.
// It can derive sum, avg, stddev, min, max, and count.
type NumericAggState struct {
	Count int64   // Number of values
	Sum   float64 // Sum of values
	SumSq float64 // Sum of squared values (for stddev)
	Min   float64 // Minimum value
	Max   float64 // Maximum value
}

// NewNumericAggState creates a new empty numeric aggregate state.
func NewNumericAggState() *NumericAggState {
	return &NumericAggState{
		Min: math.MaxFloat64,
		Max: -math.MaxFloat64,
	}
}

// Add adds a single value to the aggregate state.
func (s *NumericAggState) Add(value float64) {
	s.Count++
	s.Sum += value
	s.SumSq += value * value
	if value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
}

// Combine merges another numeric state into this one.
func (s *NumericAggState) Combine(other AggregateState) {
	o, ok := other.(*NumericAggState)
	if !ok || o.Count == 0 {
		return
	}
	s.Count += o.Count
	s.Sum += o.Sum
	s.SumSq += o.SumSq
	if o.Min < s.Min {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
}

// Avg returns the average (mean) of the values.
func (s *NumericAggState) Avg() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// StdDev returns the population standard deviation.
func (s *NumericAggState) StdDev() float64 {
	if s.Count == 0 {
		return 0
	}
	mean := s.Avg()
	// Variance = E[X²] - (E[X])²
	variance := (s.SumSq / float64(s.Count)) - (mean * mean)
	if variance < 0 {
		// Handle floating point precision issues
		variance = 0
	}
	return math.Sqrt(variance)
}

// Value returns the raw result for aggType. A sum over no values is 0;
// the other reductions are undefined and return nil.
func (s *NumericAggState) Value(aggType AggregateType) any {
	if aggType == AggSum {
		return s.Sum
	}
	if aggType == AggCount {
		return s.Count
	}
	if s.Count == 0 {
		return nil
	}
	switch aggType {
	case AggAvg:
		return s.Avg()
	case AggStdDev:
		return s.StdDev()
	case AggMin:
		return s.Min
	case AggMax:
		return s.Max
	}
	return nil
}

// Format returns a formatted string for the given aggregate type.
func (s *NumericAggState) Format(aggType AggregateType) string {
	if s.Count == 0 {
		return "-"
	}
	switch aggType {
	case AggCount:
		return fmt.Sprintf("%d", s.Count)
	case AggSum:
		return formatNumber(s.Sum)
	case AggAvg:
		return formatNumber(s.Avg())
	case AggStdDev:
		return formatNumber(s.StdDev())
	case AggMin:
		return formatNumber(s.Min)
	case AggMax:
		return formatNumber(s.Max)
	default:
		return "-"
	}
}

// BoolAggState stores intermediate state for boolean aggregates.
// It can derive count, true count, false count, and ratio.
type BoolAggState struct {
	Count      int64 // Total count
	TrueCount  int64 // Count of true values
	FalseCount int64 // Count of false values
}

// Add adds a single boolean value to the aggregate state.
func (s *BoolAggState) Add(value bool) {
	s.Count++
	if value {
		s.TrueCount++
	} else {
		s.FalseCount++
	}
}

// Combine merges another boolean state into this one.
func (s *BoolAggState) Combine(other AggregateState) {
	o, ok := other.(*BoolAggState)
	if !ok || o.Count == 0 {
		return
	}
	s.Count += o.Count
	s.TrueCount += o.TrueCount
	s.FalseCount += o.FalseCount
}

// Ratio returns the ratio of true values to total (0.0 to 1.0).
func (s *BoolAggState) Ratio() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TrueCount) / float64(s.Count)
}

// Value returns the raw result for aggType.
func (s *BoolAggState) Value(aggType AggregateType) any {
	switch aggType {
	case AggCount:
		return s.Count
	case AggTrue:
		return s.TrueCount
	case AggFalse:
		return s.FalseCount
	case AggRatio:
		if s.Count == 0 {
			return nil
		}
		return s.Ratio()
	}
	return nil
}

// Format returns a formatted string for the given aggregate type.
func (s *BoolAggState) Format(aggType AggregateType) string {
	if s.Count == 0 {
		return "-"
	}
	switch aggType {
	case AggCount:
		return fmt.Sprintf("%d", s.Count)
	case AggTrue:
		return fmt.Sprintf("%d", s.TrueCount)
	case AggFalse:
		return fmt.Sprintf("%d", s.FalseCount)
	case AggRatio:
		return fmt.Sprintf("%.1f%%", s.Ratio()*100)
	default:
		return "-"
	}
}

// StringAggState stores intermediate state for string aggregates.
// It can derive count, unique count, min (alphabetically smallest), and max (alphabetically largest).
type StringAggState struct {
	Count     int64               // Total count
	UniqueSet map[string]struct{} // Set of unique values
	Min       string              // Alphabetically smallest value
	Max       string              // Alphabetically largest value
	HasValues bool                // Whether Min/Max have been set
}

// NewStringAggState creates a new empty string aggregate state.
func NewStringAggState() *StringAggState {
	return &StringAggState{
		UniqueSet: make(map[string]struct{}),
	}
}

// Add adds a single string value to the aggregate state.
func (s *StringAggState) Add(value string) {
	if !s.HasValues {
		s.Min = value
		s.Max = value
		s.HasValues = true
	} else {
		if value < s.Min {
			s.Min = value
		}
		if value > s.Max {
			s.Max = value
		}
	}
	s.Count++
	s.UniqueSet[value] = struct{}{}
}

// Combine merges another string state into this one.
func (s *StringAggState) Combine(other AggregateState) {
	o, ok := other.(*StringAggState)
	if !ok || o.Count == 0 {
		return
	}
	if !s.HasValues && o.HasValues {
		s.Min = o.Min
		s.Max = o.Max
		s.HasValues = true
	} else if o.HasValues {
		if o.Min < s.Min {
			s.Min = o.Min
		}
		if o.Max > s.Max {
			s.Max = o.Max
		}
	}
	s.Count += o.Count
	for k := range o.UniqueSet {
		s.UniqueSet[k] = struct{}{}
	}
}

// UniqueCount returns the number of unique values.
func (s *StringAggState) UniqueCount() int {
	return len(s.UniqueSet)
}

// Value returns the raw result for aggType.
func (s *StringAggState) Value(aggType AggregateType) any {
	switch aggType {
	case AggCount:
		return s.Count
	case AggUnique:
		return s.UniqueCount()
	case AggMin:
		if s.HasValues {
			return s.Min
		}
	case AggMax:
		if s.HasValues {
			return s.Max
		}
	}
	return nil
}

// Format returns a formatted string for the given aggregate type.
func (s *StringAggState) Format(aggType AggregateType) string {
	if s.Count == 0 {
		return "-"
	}
	switch aggType {
	case AggCount:
		return fmt.Sprintf("%d", s.Count)
	case AggUnique:
		return fmt.Sprintf("%d", s.UniqueCount())
	case AggMin:
		return s.Min
	case AggMax:
		return s.Max
	default:
		return "-"
	}
}

// DatetimeAggState stores intermediate state for datetime aggregates.
// Values are stored as nanoseconds since Unix epoch.
type DatetimeAggState struct {
	Count int64 // Number of values
	Min   int64 // Minimum epoch nanoseconds
	Max   int64 // Maximum epoch nanoseconds
}

// NewDatetimeAggState creates a new empty datetime aggregate state.
func NewDatetimeAggState() *DatetimeAggState {
	return &DatetimeAggState{
		Min: math.MaxInt64,
		Max: math.MinInt64,
	}
}

// Add adds a single time value to the aggregate state.
func (s *DatetimeAggState) Add(value time.Time) {
	nanos := value.UnixNano()
	s.Count++
	if nanos < s.Min {
		s.Min = nanos
	}
	if nanos > s.Max {
		s.Max = nanos
	}
}

// Combine merges another datetime state into this one.
func (s *DatetimeAggState) Combine(other AggregateState) {
	o, ok := other.(*DatetimeAggState)
	if !ok || o.Count == 0 {
		return
	}
	s.Count += o.Count
	if o.Min < s.Min {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
}

// Span returns the time span (max - min).
func (s *DatetimeAggState) Span() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return time.Duration(s.Max - s.Min)
}

// Value returns the raw result for aggType.
func (s *DatetimeAggState) Value(aggType AggregateType) any {
	if aggType == AggCount {
		return s.Count
	}
	if s.Count == 0 {
		return nil
	}
	switch aggType {
	case AggSpan:
		return s.Span()
	case AggMin:
		return time.Unix(0, s.Min).UTC()
	case AggMax:
		return time.Unix(0, s.Max).UTC()
	}
	return nil
}

// Format returns a formatted string for the given aggregate type.
func (s *DatetimeAggState) Format(aggType AggregateType) string {
	if s.Count == 0 {
		return "-"
	}
	switch aggType {
	case AggCount:
		return fmt.Sprintf("%d", s.Count)
	case AggMin:
		return formatDatetime(time.Unix(0, s.Min).UTC())
	case AggMax:
		return formatDatetime(time.Unix(0, s.Max).UTC())
	case AggSpan:
		return formatDuration(s.Span())
	default:
		return "-"
	}
}

// --- Formatting helpers ---

// formatNumber formats a float64 for display, using appropriate precision.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	// Show up to 2 decimal places, trimming trailing zeros
	formatted := fmt.Sprintf("%.2f", v)
	if idx := len(formatted) - 1; formatted[idx] == '0' {
		formatted = formatted[:idx]
		if idx--; formatted[idx] == '0' {
			formatted = formatted[:idx]
		}
	}
	if formatted[len(formatted)-1] == '.' {
		formatted = formatted[:len(formatted)-1]
	}
	return formatted
}

func formatDatetime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	hours := d.Hours()
	if hours >= 24*365 {
		return fmt.Sprintf("%.1fy", hours/(24*365))
	}
	if hours >= 24*30 {
		return fmt.Sprintf("%.1fmo", hours/(24*30))
	}
	if hours >= 24 {
		return fmt.Sprintf("%.1fd", hours/24)
	}
	if hours >= 1 {
		return fmt.Sprintf("%.1fh", hours)
	}
	if d.Minutes() >= 1 {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
