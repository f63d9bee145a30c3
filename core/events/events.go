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

// Package events is a small publish/subscribe helper. Handlers run
// synchronously in subscription order and may stop propagation.
package events

import (
	"github.com/google/uuid"
)

// EventData is passed to every handler of one notification.
type EventData struct {
	stopped bool
}

// StopImmediatePropagation prevents the remaining handlers from running.
func (d *EventData) StopImmediatePropagation() {
	d.stopped = true
}

// IsImmediatePropagationStopped reports whether a handler stopped propagation.
func (d *EventData) IsImmediatePropagationStopped() bool {
	return d.stopped
}

// Handler receives the event arguments.
type Handler[T any] func(e *EventData, args T)

// Subscription identifies a subscribed handler.
type Subscription struct {
	id uuid.UUID
}

// String returns the subscription id.
func (s Subscription) String() string {
	return s.id.String()
}

type entry[T any] struct {
	id      uuid.UUID
	handler Handler[T]
}

// Event is an ordered list of handlers. The zero value is ready to use.
type Event[T any] struct {
	handlers []entry[T]
}

// Subscribe appends a handler and returns its subscription.
func (e *Event[T]) Subscribe(h Handler[T]) Subscription {
	id := uuid.New()
	e.handlers = append(e.handlers, entry[T]{id: id, handler: h})
	return Subscription{id: id}
}

// Unsubscribe removes a handler. It reports whether the handler was found.
func (e *Event[T]) Unsubscribe(s Subscription) bool {
	for i, h := range e.handlers {
		if h.id == s.id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of subscribed handlers.
func (e *Event[T]) Len() int {
	return len(e.handlers)
}

// Notify calls the handlers in order until one stops propagation.
func (e *Event[T]) Notify(args T) *EventData {
	data := &EventData{}
	// A handler may unsubscribe while we iterate.
	handlers := e.handlers
	for _, h := range handlers {
		if data.stopped {
			break
		}
		h.handler(data, args)
	}
	return data
}
