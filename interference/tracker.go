// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package interference keeps the transmissions that are on air at a receiver and decides whether a reception
// survived the transmissions that overlapped it.
package interference

import (
	"fmt"

	"github.com/lorasim/lora-ns/logger"
	. "github.com/lorasim/lora-ns/types"
)

type EventId uint64

const InvalidEventId EventId = 0

// Event is a single transmission as seen by one receiver.
type Event struct {
	Id         EventId
	StartUs    uint64
	DurationUs uint64
	Frequency  FrequencyMhz
	Sf         SpreadingFactor
	RxPowerDbm DbValue
	SenderId   NodeId
}

func (e *Event) EndUs() uint64 {
	return e.StartUs + e.DurationUs
}

// Overlaps reports whether two events share some air time.
func (e *Event) Overlaps(other *Event) bool {
	return e.StartUs < other.EndUs() && other.StartUs < e.EndUs()
}

func (e *Event) String() string {
	return fmt.Sprintf("Event{id=%d, freq=%s, %s, rx=%.1f dBm, t=%d+%d}", e.Id, FormatFrequency(e.Frequency),
		e.Sf, e.RxPowerDbm, e.StartUs, e.DurationUs)
}

type trackedEvent struct {
	Event
	refs        int
	interferers []Event
}

// Tracker is an arena of reference-counted events. An event stays in the arena until its last reference is
// released. When an event is added, it is recorded as interferer of all tracked events it overlaps and vice versa.
type Tracker struct {
	events map[EventId]*trackedEvent
	nextId EventId
}

func NewTracker() *Tracker {
	return &Tracker{
		events: map[EventId]*trackedEvent{},
	}
}

// Add stores a copy of evt with one reference held by the caller and returns its id.
func (tr *Tracker) Add(evt Event) EventId {
	tr.nextId++
	evt.Id = tr.nextId
	te := &trackedEvent{Event: evt, refs: 1}
	for _, other := range tr.events {
		if other.Overlaps(&te.Event) {
			other.interferers = append(other.interferers, te.Event)
			te.interferers = append(te.interferers, other.Event)
		}
	}
	tr.events[evt.Id] = te
	return evt.Id
}

// Get returns a copy of the event, or false if it is not tracked.
func (tr *Tracker) Get(id EventId) (Event, bool) {
	te := tr.events[id]
	if te == nil {
		return Event{}, false
	}
	return te.Event, true
}

func (tr *Tracker) Retain(id EventId) {
	te := tr.events[id]
	if te == nil {
		logger.Panicf("retain of unknown event %d", id)
	}
	te.refs++
}

// Release drops one reference and removes the event when none is left.
func (tr *Tracker) Release(id EventId) {
	te := tr.events[id]
	if te == nil {
		logger.Panicf("release of unknown event %d", id)
	}
	te.refs--
	if te.refs == 0 {
		delete(tr.events, id)
	}
}

// Overlapping returns the events that overlapped the given event, in order of arrival.
func (tr *Tracker) Overlapping(id EventId) []Event {
	te := tr.events[id]
	if te == nil {
		return nil
	}
	res := make([]Event, len(te.interferers))
	copy(res, te.interferers)
	return res
}

func (tr *Tracker) Len() int {
	return len(tr.events)
}

func (tr *Tracker) Clear() {
	tr.events = map[EventId]*trackedEvent{}
}
