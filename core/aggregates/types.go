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
	"strings"
)

// AggregateType identifies the reduction an aggregator performs.
type AggregateType int

const (
	AggCount AggregateType = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggStdDev
	AggUnique
	AggTrue
	AggFalse
	AggRatio
	AggSpan
)

var aggregateNames = map[AggregateType]string{
	AggCount:  "count",
	AggSum:    "sum",
	AggAvg:    "avg",
	AggMin:    "min",
	AggMax:    "max",
	AggStdDev: "stddev",
	AggUnique: "unique",
	AggTrue:   "true",
	AggFalse:  "false",
	AggRatio:  "ratio",
	AggSpan:   "span",
}

// String returns the lower case name used in configuration files and URLs.
func (t AggregateType) String() string {
	if name, ok := aggregateNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AggregateType(%d)", int(t))
}

// ParseAggregateType parses a name produced by String. Matching is case
// insensitive and accepts "average" and "mean" for AggAvg.
func ParseAggregateType(s string) (AggregateType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "average", "mean":
		return AggAvg, nil
	}
	for t, n := range aggregateNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregate type %q", s)
}

// AggregateSymbol returns the short symbol shown next to a value in a totals row.
func AggregateSymbol(t AggregateType) string {
	switch t {
	case AggCount:
		return "#"
	case AggSum:
		return "Σ"
	case AggAvg:
		return "μ"
	case AggMin:
		return "↓"
	case AggMax:
		return "↑"
	case AggStdDev:
		return "σ"
	case AggUnique:
		return "∪"
	case AggTrue:
		return "✓"
	case AggFalse:
		return "✗"
	case AggRatio:
		return "%"
	case AggSpan:
		return "↔"
	default:
		return "?"
	}
}

// AggregateTitle returns a human readable name for t.
func AggregateTitle(t AggregateType) string {
	switch t {
	case AggCount:
		return "Count"
	case AggSum:
		return "Sum"
	case AggAvg:
		return "Average"
	case AggMin:
		return "Minimum"
	case AggMax:
		return "Maximum"
	case AggStdDev:
		return "Standard deviation"
	case AggUnique:
		return "Unique values"
	case AggTrue:
		return "True count"
	case AggFalse:
		return "False count"
	case AggRatio:
		return "True ratio"
	case AggSpan:
		return "Time span"
	default:
		return "Unknown"
	}
}
