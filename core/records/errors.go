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
	"errors"
	"fmt"
)

var (
	// ErrIdentity reports a missing or duplicated identity value.
	ErrIdentity = errors.New("identity error")
	// ErrInvalidID reports an id that is unknown or does not match its record.
	ErrInvalidID = errors.New("invalid id")
)

// IdentityError is returned when a record lacks its identity field, carries
// an id that cannot be indexed (see ValidID), or shares its identity value
// with another record.
type IdentityError struct {
	Field   string
	ID      any
	Index   int
	Missing bool
	Invalid bool
}

func (e *IdentityError) Error() string {
	if e.Missing {
		return fmt.Sprintf("record at index %d has no identity field %q", e.Index, e.Field)
	}
	if e.Invalid {
		return fmt.Sprintf("record at index %d has an unusable %q value %v of type %T", e.Index, e.Field, e.ID, e.ID)
	}
	return fmt.Sprintf("identity field %q must be unique: duplicate id %v at index %d", e.Field, e.ID, e.Index)
}

func (e *IdentityError) Unwrap() error { return ErrIdentity }

// InvalidIDError is returned by id based mutations with an unknown id or an id
// that differs from the one stored in the record.
type InvalidIDError struct {
	ID     any
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid id %v: %s", e.ID, e.Reason)
}

func (e *InvalidIDError) Unwrap() error { return ErrInvalidID }
