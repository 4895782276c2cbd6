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

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lorasim/lora-ns/event"
	. "github.com/lorasim/lora-ns/types"
)

func newTestPool(freqs ...FrequencyMhz) (*ReceptionPathPool, *RecordingSink) {
	p := NewReceptionPathPool()
	sink := &RecordingSink{}
	p.SetTraceSink(sink)
	p.Configure(freqs...)
	return p, sink
}

func TestIsOnFrequency(t *testing.T) {
	p, _ := newTestPool(868.1, 868.3)
	assert.True(t, p.IsOnFrequency(868.1))
	assert.True(t, p.IsOnFrequency(868.3))
	assert.False(t, p.IsOnFrequency(868.5))
	assert.False(t, p.IsOnFrequency(868.10001))

	p.Reset()
	assert.False(t, p.IsOnFrequency(868.1))
	assert.Equal(t, 0, p.Len())
}

func TestHasFreePath(t *testing.T) {
	p, sink := newTestPool(868.1, 868.3)
	assert.True(t, p.HasFreePath(868.1))
	assert.False(t, p.HasFreePath(868.5))

	h, res := p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireOk, res)
	assert.False(t, p.HasFreePath(868.1))
	assert.True(t, p.HasFreePath(868.3))
	assert.Len(t, sink.Records, 1)

	p.Release(h)
	assert.True(t, p.HasFreePath(868.1))
}

func TestSaturationAndFirstFitReuse(t *testing.T) {
	const n = 4
	p, sink := newTestPool()
	for i := 0; i < n; i++ {
		p.AddReceptionPath(868.1)
	}

	handles := make([]PathHandle, n)
	for i := 0; i < n; i++ {
		h, res := p.TryAcquire(868.1, 7)
		assert.Equal(t, AcquireOk, res)
		assert.True(t, h.IsValid())
		handles[i] = h
	}
	assert.Equal(t, n, p.OccupiedCount())

	h, res := p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireNoFreePath, res)
	assert.False(t, h.IsValid())
	assert.Equal(t, n, p.OccupiedCount())
	assert.Equal(t, uint64(1), p.Stats().NoFreePath)
	assert.Equal(t, TraceRxNoFreePath, sink.Records[len(sink.Records)-1].Kind)

	p.Release(handles[2])
	assert.Equal(t, n-1, p.OccupiedCount())

	h, res = p.TryAcquire(868.1, 8)
	assert.Equal(t, AcquireOk, res)
	assert.Equal(t, handles[2], h)
	assert.Equal(t, SpreadingFactor(8), p.Path(h).GetSpreadingFactor())

	_, res = p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireNoFreePath, res)
	assert.Equal(t, n, p.Stats().PeakOccupied)
}

func TestTransmitBlocksAllFrequencies(t *testing.T) {
	p, sink := newTestPool(868.1, 868.3)
	p.BeginTransmit()
	assert.True(t, p.IsTransmitting())

	for _, f := range []FrequencyMhz{868.1, 868.3, 869.0} {
		h, res := p.TryAcquire(f, 9)
		assert.Equal(t, AcquireBlockedByTx, res)
		assert.False(t, h.IsValid())
	}
	assert.Equal(t, uint64(3), p.Stats().BlockedByTx)
	assert.Equal(t, uint64(0), p.Stats().NoFreePath)
	assert.Equal(t, 0, p.OccupiedCount())
	assert.Equal(t, 3, sink.Count(TraceRxBlockedByTx))

	p.EndTransmit()
	_, res := p.TryAcquire(868.1, 9)
	assert.Equal(t, AcquireOk, res)
}

func TestReleaseIdempotent(t *testing.T) {
	p, sink := newTestPool(868.1, 868.1)
	h, res := p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireOk, res)

	p.Release(h)
	records := len(sink.Records)
	stats := p.Stats()

	p.Release(h)
	p.Release(h)
	assert.Equal(t, 0, p.OccupiedCount())
	assert.Equal(t, records, len(sink.Records))
	assert.Equal(t, stats, p.Stats())
	assert.True(t, p.Path(h).IsAvailable())
}

func TestStaleHandlePanics(t *testing.T) {
	p, _ := newTestPool(868.1)
	h, _ := p.TryAcquire(868.1, 7)
	p.Reset()
	p.Configure(868.1)
	assert.Panics(t, func() { p.Release(h) })
	assert.Panics(t, func() { p.Release(InvalidPathHandle) })
}

func TestEndToEndScenario(t *testing.T) {
	p, sink := newTestPool(868.1, 868.3)

	h1, res := p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireOk, res)
	assert.Equal(t, 1, p.OccupiedCount())

	_, res = p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireNoFreePath, res)
	assert.Equal(t, 1, p.OccupiedCount())

	_, res = p.TryAcquire(868.3, 7)
	assert.Equal(t, AcquireOk, res)
	assert.Equal(t, 2, p.OccupiedCount())

	p.Release(h1)
	assert.Equal(t, 1, p.OccupiedCount())

	_, res = p.TryAcquire(868.1, 7)
	assert.Equal(t, AcquireOk, res)
	assert.Equal(t, 2, p.OccupiedCount())

	assert.Equal(t, []TraceKind{TraceOccupancy, TraceRxNoFreePath, TraceOccupancy, TraceOccupancy, TraceOccupancy},
		sink.Kinds())
	var occupied []int
	for _, rec := range sink.Records {
		if rec.Kind == TraceOccupancy {
			occupied = append(occupied, rec.Occupied)
		}
	}
	assert.Equal(t, []int{1, 2, 1, 2}, occupied)
	assert.Equal(t, FrequencyMhz(868.1), sink.Records[1].Frequency)
	assert.Equal(t, SpreadingFactor(7), sink.Records[1].Sf)
}

func TestTraceTimestamps(t *testing.T) {
	sched := event.NewScheduler()
	p, sink := newTestPool(868.1)
	p.SetClock(sched.Now)

	sched.Schedule(1500, func() {
		p.TryAcquire(868.1, 10)
	})
	sched.Run()
	assert.Len(t, sink.Records, 1)
	assert.Equal(t, uint64(1500), sink.Records[0].TimeUs)
}

func TestReleaseCancelsTimer(t *testing.T) {
	sched := event.NewScheduler()
	p, _ := newTestPool(868.1, 868.3)
	p.SetTimerCanceller(sched)

	fired := 0
	h1, _ := p.TryAcquire(868.1, 7)
	p.Bind(h1, 1, sched.Schedule(100, func() { fired++ }))
	h2, _ := p.TryAcquire(868.3, 7)
	p.Bind(h2, 2, sched.Schedule(100, func() { fired++ }))
	assert.Equal(t, 2, sched.Len())

	p.Release(h1)
	assert.Equal(t, event.InvalidTimerId, p.Path(h1).GetEndReceive())
	assert.Equal(t, 1, sched.Len())

	p.Reset()
	assert.Equal(t, 0, sched.Len())
	assert.Equal(t, 0, p.OccupiedCount())
	sched.Run()
	assert.Equal(t, 0, fired)
}

func TestRetuneLockedPathPanics(t *testing.T) {
	p, _ := newTestPool(868.1)
	h, _ := p.TryAcquire(868.1, 7)
	assert.Panics(t, func() { p.Path(h).SetFrequency(868.5) })
	p.Release(h)
	p.Path(h).SetFrequency(868.5)
	assert.True(t, p.IsOnFrequency(868.5))
}

func TestMultiSink(t *testing.T) {
	a, b := &RecordingSink{}, &RecordingSink{}
	var fn []TraceKind
	ms := MultiSink{a, b, TraceFunc(func(rec TraceRecord) { fn = append(fn, rec.Kind) })}
	ms.OnTrace(TraceRecord{Kind: TraceRxSuccess})
	assert.Equal(t, a.Records, b.Records)
	assert.Equal(t, []TraceKind{TraceRxSuccess}, fn)
	assert.Equal(t, "success", TraceRxSuccess.String())
	assert.False(t, TraceOccupancy.IsOutcome())
}
