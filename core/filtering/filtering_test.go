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

package filtering

import (
	"testing"

	"github.com/google/gridmodel/core/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) []records.Record {
	items := make([]records.Record, n)
	for i := range items {
		items[i] = records.Record{"id": i, "v": i % 10}
	}
	return items
}

// countingThreshold keeps records with v >= min and counts predicate calls.
type countingThreshold struct {
	calls int
}

func (c *countingThreshold) Match(r records.Record, args any) bool {
	c.calls++
	return r["v"].(int) >= args.(int)
}

func ids(rs []records.Record) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r["id"].(int)
	}
	return out
}

func TestNoPredicateCopiesUnlessPaged(t *testing.T) {
	items := makeItems(5)
	p := NewPipeline()

	out, strategy := p.Apply(items, nil, nil, nil, Hints{}, false)
	assert.Equal(t, StrategyNone, strategy)
	require.Len(t, out, 5)
	out[0] = records.Record{"id": 99}
	assert.Equal(t, 0, items[0]["id"], "unpaged result must not alias the store")

	out, _ = p.Apply(items, nil, nil, nil, Hints{}, true)
	assert.Same(t, &items[0], &out[0])
}

// TestHintEquivalence walks a sequence of threshold changes and checks
// that every hinted pass matches a from-scratch pass.
func TestHintEquivalence(t *testing.T) {
	items := makeItems(100)
	steps := []struct {
		min   int
		hints Hints
		want  Strategy
	}{
		{5, Hints{}, StrategyDefault},
		{7, Hints{Narrowing: true}, StrategyNarrowing},
		{8, Hints{Narrowing: true}, StrategyNarrowing},
		{4, Hints{Expanding: true}, StrategyExpanding},
		{2, Hints{Expanding: true}, StrategyExpanding},
		{2, Hints{Unchanged: true}, StrategyUnchanged},
		{0, Hints{Expanding: true}, StrategyExpanding},
		{3, Hints{}, StrategyDefault},
	}

	hinted := NewPipeline()
	reference := NewPipeline()
	pred := &countingThreshold{}
	var prev []records.Record

	for i, step := range steps {
		got, strategy := hinted.Apply(items, prev, pred, step.min, step.hints, false)
		want, _ := reference.Apply(items, nil, pred, step.min, Hints{}, false)
		assert.Equal(t, step.want, strategy, "step %d", i)
		assert.Equal(t, ids(want), ids(got), "step %d", i)
		prev = got
	}
}

func TestNarrowingOnlyTestsPreviousMatches(t *testing.T) {
	items := makeItems(100)
	p := NewPipeline()
	pred := &countingThreshold{}

	prev, _ := p.Apply(items, nil, pred, 9, Hints{}, false)
	require.Len(t, prev, 10)

	pred.calls = 0
	_, _ = p.Apply(items, prev, pred, 9, Hints{Narrowing: true}, false)
	assert.Equal(t, 10, pred.calls)
}

func TestExpandingSkipsCachedMatches(t *testing.T) {
	items := makeItems(100)
	p := NewPipeline()
	pred := &countingThreshold{}

	// First expanding pass fills the cache with the 10 matches of v >= 9.
	_, _ = p.Apply(items, nil, pred, 9, Hints{Expanding: true}, false)
	assert.Equal(t, 100, p.CacheLen())

	pred.calls = 0
	out, _ := p.Apply(items, nil, pred, 5, Hints{Expanding: true}, false)
	assert.Len(t, out, 50)
	assert.Equal(t, 90, pred.calls)
}

func TestHintTransitionClearsCache(t *testing.T) {
	items := makeItems(10)
	p := NewPipeline()
	pred := &countingThreshold{}

	_, _ = p.Apply(items, nil, pred, 0, Hints{Expanding: true}, false)
	require.Equal(t, 10, p.CacheLen())

	// Leaving the expanding state drops the cache; otherwise a stricter
	// predicate would still see the stale matches.
	_, _ = p.Apply(items, nil, pred, 5, Hints{}, false)
	assert.Equal(t, 0, p.CacheLen())

	out, _ := p.Apply(items, nil, pred, 8, Hints{Expanding: true}, false)
	assert.Equal(t, []int{8, 9}, ids(out))
}

func TestPredicateFunc(t *testing.T) {
	var pred Predicate = PredicateFunc(func(r records.Record, args any) bool {
		return r["id"].(int)%2 == 0
	})
	out, strategy := NewPipeline().Apply(makeItems(6), nil, pred, nil, Hints{}, false)
	assert.Equal(t, StrategyDefault, strategy)
	assert.Equal(t, []int{0, 2, 4}, ids(out))
	assert.Equal(t, "default", strategy.String())
}

func TestDefaultPassLeavesCacheEmpty(t *testing.T) {
	items := makeItems(10)
	p := NewPipeline()
	pred := &countingThreshold{}

	out, strategy := p.Apply(items, nil, pred, 5, Hints{}, false)
	assert.Equal(t, StrategyDefault, strategy)
	assert.Len(t, out, 5)
	assert.Equal(t, 0, p.CacheLen())

	// The first expanding pass tests every position.
	pred.calls = 0
	_, _ = p.Apply(items, out, pred, 3, Hints{Expanding: true}, false)
	assert.Equal(t, 10, pred.calls)
	assert.Equal(t, 10, p.CacheLen())
}
