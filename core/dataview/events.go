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
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/paging"
	"github.com/google/gridmodel/core/records"
)

// Payloads of the DataView events.

// RowCountChanged is sent when the number of display rows changed.
type RowCountChanged struct {
	Previous int
	Current  int
}

// RowsChanged carries the display positions that must be redrawn.
type RowsChanged struct {
	Rows []int
}

// GroupsChanged carries the freshly extracted group tree, before sorting.
type GroupsChanged struct {
	Groups []*grouping.Group
}

// PagingInfoChanged carries the new paging state.
type PagingInfoChanged struct {
	paging.Info
}

// FilteredItemsChanged is sent when the set of filtered records changed.
type FilteredItemsChanged struct {
	FilteredItems         []records.Record
	PreviousFilteredItems []records.Record
}

// ItemsSet is sent after the item store was replaced.
type ItemsSet struct {
	Items   []records.Record
	IDField string
}
