/*
Copyright (c) Timetools, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sysclock abstracts the system clock as seen by the clock tracking
// code: conversion of raw readings to corrected time, the currently applied
// frequency correction, the precision of readings, and synchronous
// notifications about corrections (slews and steps) applied to the clock.
package sysclock

import (
	"time"
)

// ChangeHandler is called synchronously whenever a correction is applied to
// the system clock. when is the corrected time of the correction, dfreq the
// fractional frequency change and doffset the offset change in seconds, both
// in the convention of timestamp.AdjustForSlew.
type ChangeHandler func(when time.Time, dfreq, doffset float64)

// Clock is the system clock abstraction consumed by the tracking core.
// Implementations are not safe for concurrent use; all calls are expected
// from a single event-processing context.
type Clock interface {
	// CookTime converts a raw clock reading to corrected time.
	CookTime(raw time.Time) time.Time
	// AbsoluteFrequencyPPM reports the frequency correction currently
	// applied to the clock, in parts per million.
	AbsoluteFrequencyPPM() float64
	// PrecisionQuantum reports the granularity of clock readings in seconds.
	PrecisionQuantum() float64
	// AddChangeHandler registers a handler fired on every correction and
	// returns a function that removes the registration.
	AddChangeHandler(h ChangeHandler) func()
}

type handlerEntry struct {
	id int
	fn ChangeHandler
}

// notifier keeps an ordered list of change handlers. Embedded by the Clock
// implementations.
type notifier struct {
	handlers []handlerEntry
	nextID   int
}

// AddChangeHandler registers h and returns its removal function.
func (n *notifier) AddChangeHandler(h ChangeHandler) func() {
	id := n.nextID
	n.nextID++
	n.handlers = append(n.handlers, handlerEntry{id: id, fn: h})
	return func() {
		for i, e := range n.handlers {
			if e.id == id {
				n.handlers = append(n.handlers[:i], n.handlers[i+1:]...)
				return
			}
		}
	}
}

// notify fires all registered handlers in registration order.
func (n *notifier) notify(when time.Time, dfreq, doffset float64) {
	for _, e := range n.handlers {
		e.fn(when, dfreq, doffset)
	}
}
