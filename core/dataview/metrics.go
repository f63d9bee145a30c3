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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	refreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridmodel_refresh_total",
		Help: "Total DataView refresh passes",
	})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridmodel_refresh_duration_seconds",
		Help:    "DataView refresh duration",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	// Labels: "none", "default", "narrowing", "expanding", "unchanged"
	filterStrategyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmodel_filter_strategy_total",
		Help: "Filter passes by strategy",
	}, []string{"strategy"})

	diffRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridmodel_diff_rows",
		Help:    "Changed display rows per refresh",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000},
	})
)

var (
	tracerOnce sync.Once
	tracer     trace.Tracer
)

// getTracer returns the OTel tracer, created on first use so that a
// provider installed at startup is picked up.
func getTracer() trace.Tracer {
	tracerOnce.Do(func() {
		tracer = otel.Tracer("github.com/google/gridmodel/core/dataview")
	})
	return tracer
}
