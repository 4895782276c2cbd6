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

package interference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerRefCount(t *testing.T) {
	tr := NewTracker()
	id := tr.Add(Event{StartUs: 0, DurationUs: 100, Frequency: 868.1, Sf: 7, RxPowerDbm: -80})
	assert.NotEqual(t, InvalidEventId, id)
	assert.Equal(t, 1, tr.Len())

	tr.Retain(id)
	tr.Release(id)
	evt, ok := tr.Get(id)
	assert.True(t, ok)
	assert.Equal(t, id, evt.Id)
	assert.Equal(t, uint64(100), evt.EndUs())

	tr.Release(id)
	_, ok = tr.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
	assert.Panics(t, func() { tr.Release(id) })
	assert.Panics(t, func() { tr.Retain(id) })
}

func TestTrackerOverlapping(t *testing.T) {
	tr := NewTracker()
	a := tr.Add(Event{StartUs: 0, DurationUs: 100, Frequency: 868.1, Sf: 7})
	b := tr.Add(Event{StartUs: 50, DurationUs: 100, Frequency: 868.3, Sf: 7})
	c := tr.Add(Event{StartUs: 150, DurationUs: 10, Frequency: 868.1, Sf: 7})

	assert.Len(t, tr.Overlapping(a), 1)
	assert.Equal(t, b, tr.Overlapping(a)[0].Id)
	assert.Len(t, tr.Overlapping(b), 1)
	assert.Len(t, tr.Overlapping(c), 0)

	// a's record of b survives b leaving the arena
	tr.Release(b)
	assert.Len(t, tr.Overlapping(a), 1)
	assert.Nil(t, tr.Overlapping(b))

	tr.Clear()
	assert.Equal(t, 0, tr.Len())
}

func TestCoSfCaptureDecider(t *testing.T) {
	tr := NewTracker()
	d := NewCoSfCaptureDecider()

	strong := tr.Add(Event{StartUs: 0, DurationUs: 100, Frequency: 868.1, Sf: 9, RxPowerDbm: -70})
	weak := tr.Add(Event{StartUs: 10, DurationUs: 100, Frequency: 868.1, Sf: 9, RxPowerDbm: -90})
	otherSf := tr.Add(Event{StartUs: 10, DurationUs: 100, Frequency: 868.1, Sf: 10, RxPowerDbm: -60})
	otherFreq := tr.Add(Event{StartUs: 10, DurationUs: 100, Frequency: 868.3, Sf: 9, RxPowerDbm: -60})

	assert.False(t, d.IsDestroyed(tr, strong))
	assert.True(t, d.IsDestroyed(tr, weak))
	assert.False(t, d.IsDestroyed(tr, otherSf))
	assert.False(t, d.IsDestroyed(tr, otherFreq))
	assert.False(t, d.IsDestroyed(tr, InvalidEventId))

	// two interferers at -77 dBm sum to about -74 dBm, within 6 dB of -70
	tr2 := NewTracker()
	target := tr2.Add(Event{StartUs: 0, DurationUs: 100, Frequency: 868.1, Sf: 7, RxPowerDbm: -70})
	tr2.Add(Event{StartUs: 0, DurationUs: 100, Frequency: 868.1, Sf: 7, RxPowerDbm: -77})
	assert.False(t, d.IsDestroyed(tr2, target))
	tr2.Add(Event{StartUs: 0, DurationUs: 100, Frequency: 868.1, Sf: 7, RxPowerDbm: -77})
	assert.True(t, d.IsDestroyed(tr2, target))

	assert.False(t, NoInterference{}.IsDestroyed(tr, weak))
}
