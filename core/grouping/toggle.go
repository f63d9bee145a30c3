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

package grouping

// ToggleState holds the explicit collapse overrides of every level, keyed by
// grouping key. A stored true flips the level's default collapsed state.
type ToggleState struct {
	levels []map[string]bool
}

// NewToggleState creates empty overrides for n levels.
func NewToggleState(n int) *ToggleState {
	t := &ToggleState{levels: make([]map[string]bool, n)}
	for i := range t.levels {
		t.levels[i] = make(map[string]bool)
	}
	return t
}

// Levels returns the number of levels.
func (t *ToggleState) Levels() int { return len(t.levels) }

// Set stores the override of key at level. Out of range levels are ignored.
func (t *ToggleState) Set(level int, key string, toggled bool) {
	if level < 0 || level >= len(t.levels) {
		return
	}
	if toggled {
		t.levels[level][key] = true
	} else {
		delete(t.levels[level], key)
	}
}

// Get returns the override of key at level; absent means false.
func (t *ToggleState) Get(level int, key string) bool {
	if level < 0 || level >= len(t.levels) {
		return false
	}
	return t.levels[level][key]
}

// Reset drops the overrides of one level.
func (t *ToggleState) Reset(level int) {
	if level < 0 || level >= len(t.levels) {
		return
	}
	clear(t.levels[level])
}

// Len returns the number of overrides at level.
func (t *ToggleState) Len(level int) int {
	if level < 0 || level >= len(t.levels) {
		return 0
	}
	return len(t.levels[level])
}
