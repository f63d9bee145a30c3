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

// Package filtering applies a record predicate to the item store. The caller
// may describe how the predicate changed since the previous pass so that work
// from that pass can be reused.
package filtering

import (
	"github.com/google/gridmodel/core/records"
)

// Predicate decides whether a record is part of the filtered sequence.
type Predicate interface {
	Match(r records.Record, args any) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(r records.Record, args any) bool

// Match calls f(r, args).
func (f PredicateFunc) Match(r records.Record, args any) bool {
	return f(r, args)
}

// Strategy names the way a filtered sequence was produced.
type Strategy int

const (
	// StrategyNone means no predicate was set and all items pass.
	StrategyNone Strategy = iota
	// StrategyDefault filters every item from scratch.
	StrategyDefault
	// StrategyNarrowing re-filters only the previous filtered sequence.
	StrategyNarrowing
	// StrategyExpanding filters every item but trusts cached matches.
	StrategyExpanding
	// StrategyUnchanged reuses the previous filtered sequence.
	StrategyUnchanged
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyDefault:
		return "default"
	case StrategyNarrowing:
		return "narrowing"
	case StrategyExpanding:
		return "expanding"
	case StrategyUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Hints describe the pending predicate change. They are caller assertions
// and are not verified: a wrong hint yields a wrong (but well formed) result.
type Hints struct {
	// Narrowing: the new predicate only rejects more records.
	Narrowing bool
	// Expanding: the new predicate only accepts more records.
	Expanding bool
	// Unchanged: neither the predicate nor its arguments changed.
	Unchanged bool
}

// Pipeline holds the state carried between filter passes: the match cache
// used by the expanding strategy and the hint flags of the previous pass.
type Pipeline struct {
	cache         []bool
	prevNarrowing bool
	prevExpanding bool
}

// NewPipeline creates a pipeline with an empty cache.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Invalidate clears the match cache. Call it whenever record positions change.
func (p *Pipeline) Invalidate() {
	p.cache = nil
}

// CacheLen returns the number of cache slots in use.
func (p *Pipeline) CacheLen() int {
	return len(p.cache)
}

// Apply returns the filtered sequence and the strategy used.
//
// previous is the filtered sequence of the prior pass. When pred is nil the
// result holds all items; it aliases items only when paged is set, since
// paging slices a fresh sequence afterwards anyway.
func (p *Pipeline) Apply(items, previous []records.Record, pred Predicate, args any, hints Hints, paged bool) ([]records.Record, Strategy) {
	if hints.Narrowing != p.prevNarrowing || hints.Expanding != p.prevExpanding {
		p.cache = nil
	}
	p.prevNarrowing = hints.Narrowing
	p.prevExpanding = hints.Expanding

	if pred == nil {
		if paged {
			return items, StrategyNone
		}
		return append([]records.Record(nil), items...), StrategyNone
	}

	switch {
	case hints.Narrowing:
		return filter(previous, pred, args), StrategyNarrowing
	case hints.Expanding:
		return p.filterWithCache(items, pred, args), StrategyExpanding
	case hints.Unchanged:
		return previous, StrategyUnchanged
	default:
		// The cache is only read while expanding, and entering that state
		// clears it, so this pass does not record matches.
		return filter(items, pred, args), StrategyDefault
	}
}

func filter(items []records.Record, pred Predicate, args any) []records.Record {
	out := make([]records.Record, 0, len(items))
	for _, item := range items {
		if pred.Match(item, args) {
			out = append(out, item)
		}
	}
	return out
}

// filterWithCache includes cached matches without re-testing them and
// records new matches in the cache.
func (p *Pipeline) filterWithCache(items []records.Record, pred Predicate, args any) []records.Record {
	if len(p.cache) < len(items) {
		grown := make([]bool, len(items))
		copy(grown, p.cache)
		p.cache = grown
	}
	out := make([]records.Record, 0, len(items))
	for i, item := range items {
		if p.cache[i] {
			out = append(out, item)
		} else if pred.Match(item, args) {
			out = append(out, item)
			p.cache[i] = true
		}
	}
	return out
}
