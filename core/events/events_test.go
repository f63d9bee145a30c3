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

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyOrderAndStop(t *testing.T) {
	var ev Event[int]
	var calls []string

	ev.Subscribe(func(e *EventData, n int) { calls = append(calls, "first") })
	ev.Subscribe(func(e *EventData, n int) {
		calls = append(calls, "second")
		if n > 1 {
			e.StopImmediatePropagation()
		}
	})
	ev.Subscribe(func(e *EventData, n int) { calls = append(calls, "third") })

	data := ev.Notify(1)
	assert.False(t, data.IsImmediatePropagationStopped())
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	calls = nil
	data = ev.Notify(2)
	assert.True(t, data.IsImmediatePropagationStopped())
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestUnsubscribe(t *testing.T) {
	var ev Event[string]
	count := 0
	sub := ev.Subscribe(func(e *EventData, s string) { count++ })
	ev.Subscribe(func(e *EventData, s string) { count += 10 })

	assert.True(t, ev.Unsubscribe(sub))
	assert.False(t, ev.Unsubscribe(sub))
	assert.Equal(t, 1, ev.Len())

	ev.Notify("x")
	assert.Equal(t, 10, count)
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	var ev Event[struct{}]
	var sub Subscription
	count := 0
	sub = ev.Subscribe(func(e *EventData, _ struct{}) {
		count++
		ev.Unsubscribe(sub)
	})
	ev.Subscribe(func(e *EventData, _ struct{}) { count++ })

	ev.Notify(struct{}{})
	assert.Equal(t, 2, count)
	ev.Notify(struct{}{})
	assert.Equal(t, 3, count)
}
