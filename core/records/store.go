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

package records

import (
	"slices"
)

// Store is the canonical ordered sequence of records plus an id -> position
// index. Insertion order is the baseline sort order.
type Store struct {
	idField string
	items   []Record
	idxByID map[any]int
}

// NewStore creates an empty store keyed by DefaultIDField.
func NewStore() *Store {
	return &Store{
		idField: DefaultIDField,
		idxByID: make(map[any]int),
	}
}

// IDField returns the name of the identity field.
func (s *Store) IDField() string {
	return s.idField
}

// SetItems replaces the store contents. An empty idField keeps the current
// one. On error the store is left untouched.
func (s *Store) SetItems(items []Record, idField string) error {
	if idField == "" {
		idField = s.idField
	}
	idx, err := buildIndex(items, idField)
	if err != nil {
		return err
	}
	s.idField = idField
	s.items = items
	s.idxByID = idx
	return nil
}

func buildIndex(items []Record, idField string) (map[any]int, error) {
	idx := make(map[any]int, len(items))
	for i, item := range items {
		id, ok := item[idField]
		if !ok || id == nil {
			return nil, &IdentityError{Field: idField, Index: i, Missing: true}
		}
		if !ValidID(id) {
			return nil, &IdentityError{Field: idField, ID: id, Index: i, Invalid: true}
		}
		key := Key(id)
		if _, dup := idx[key]; dup {
			return nil, &IdentityError{Field: idField, ID: id, Index: i}
		}
		idx[key] = i
	}
	return idx, nil
}

// Items returns the underlying slice. Callers must not modify it.
func (s *Store) Items() []Record {
	return s.items
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.items)
}

// ID returns the identity value of r.
func (s *Store) ID(r Record) any {
	return r[s.idField]
}

// IdxByID returns the position of the record with the given id.
func (s *Store) IdxByID(id any) (int, bool) {
	if !ValidID(id) {
		return 0, false
	}
	i, ok := s.idxByID[Key(id)]
	return i, ok
}

// ItemByID returns the record with the given id.
func (s *Store) ItemByID(id any) (Record, bool) {
	i, ok := s.IdxByID(id)
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// ItemByIdx returns the record at position i, or nil when out of range.
func (s *Store) ItemByIdx(i int) Record {
	if i < 0 || i >= len(s.items) {
		return nil
	}
	return s.items[i]
}

// UpdateItem replaces the record stored under id. The record must carry the
// same id in its identity field.
func (s *Store) UpdateItem(id any, item Record) error {
	i, ok := s.IdxByID(id)
	if !ok {
		return &InvalidIDError{ID: id, Reason: "no record with this id"}
	}
	if got, ok := item[s.idField]; !ok || !ValidID(got) || Key(got) != Key(id) {
		return &InvalidIDError{ID: id, Reason: "record carries a different id"}
	}
	s.items[i] = item
	return nil
}

// InsertItem inserts a record at position pos, shifting later records.
func (s *Store) InsertItem(pos int, item Record) error {
	id, ok := item[s.idField]
	if !ok || id == nil {
		return &IdentityError{Field: s.idField, Index: pos, Missing: true}
	}
	if !ValidID(id) {
		return &IdentityError{Field: s.idField, ID: id, Index: pos, Invalid: true}
	}
	if _, dup := s.idxByID[Key(id)]; dup {
		return &IdentityError{Field: s.idField, ID: id, Index: pos}
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.items) {
		pos = len(s.items)
	}
	s.items = slices.Insert(s.items, pos, item)
	s.reindexFrom(pos)
	return nil
}

// AddItem appends a record.
func (s *Store) AddItem(item Record) error {
	return s.InsertItem(len(s.items), item)
}

// DeleteItem removes the record with the given id.
func (s *Store) DeleteItem(id any) error {
	i, ok := s.IdxByID(id)
	if !ok {
		return &InvalidIDError{ID: id, Reason: "no record with this id"}
	}
	delete(s.idxByID, Key(id))
	s.items = slices.Delete(s.items, i, i+1)
	s.reindexFrom(i)
	return nil
}

// reindexFrom refreshes index entries for positions >= start. Identity
// values were validated on entry so no uniqueness check is needed here.
func (s *Store) reindexFrom(start int) {
	for i := start; i < len(s.items); i++ {
		s.idxByID[Key(s.items[i][s.idField])] = i
	}
}

// Sort reorders the records with cmp. Ties keep their current relative
// order in both directions.
func (s *Store) Sort(cmp func(a, b Record) int, ascending bool) {
	if !ascending {
		slices.Reverse(s.items)
	}
	slices.SortStableFunc(s.items, cmp)
	if !ascending {
		slices.Reverse(s.items)
	}
	s.reindexFrom(0)
}

// SortByField is the single-field fast path: the sort key of every record is
// extracted once and records are stably sorted by it.
func (s *Store) SortByField(field string, ascending bool) {
	type keyed struct {
		key  any
		item Record
	}
	ks := make([]keyed, len(s.items))
	for i, item := range s.items {
		ks[i] = keyed{key: item[field], item: item}
	}
	if !ascending {
		slices.Reverse(ks)
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return Compare(a.key, b.key)
	})
	if !ascending {
		slices.Reverse(ks)
	}
	for i := range ks {
		s.items[i] = ks[i].item
	}
	s.reindexFrom(0)
}

// Reverse reverses the record order.
func (s *Store) Reverse() {
	slices.Reverse(s.items)
	s.reindexFrom(0)
}
