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
	"github.com/lorasim/lora-ns/event"
	"github.com/lorasim/lora-ns/interference"
	"github.com/lorasim/lora-ns/logger"
	. "github.com/lorasim/lora-ns/types"
)

type AcquireResult int

const (
	AcquireOk AcquireResult = iota
	AcquireBlockedByTx
	AcquireNoFreePath
)

func (r AcquireResult) String() string {
	switch r {
	case AcquireOk:
		return "ok"
	case AcquireBlockedByTx:
		return "blocked_by_tx"
	case AcquireNoFreePath:
		return "no_free_path"
	default:
		return "unknown"
	}
}

// PathHandle refers to a path locked by TryAcquire. Handles issued before a Reset are stale.
type PathHandle struct {
	index int
	gen   uint64
}

var InvalidPathHandle = PathHandle{index: -1}

func (h PathHandle) IsValid() bool {
	return h.index >= 0
}

// TimerCanceller cancels completion timers stored on the paths.
type TimerCanceller interface {
	Cancel(id event.TimerId) bool
}

// PoolStats counts admission outcomes since the pool was created.
type PoolStats struct {
	Acquired     uint64
	Released     uint64
	BlockedByTx  uint64
	NoFreePath   uint64
	PeakOccupied int
}

// ReceptionPathPool is the set of demodulators of a gateway. Paths are searched first-fit in insertion order.
// The pool is not safe for concurrent use.
type ReceptionPathPool struct {
	paths          []*ReceptionPath
	gen            uint64
	occupied       int
	isTransmitting bool
	stats          PoolStats
	sink           TraceSink
	clock          func() uint64
	canceller      TimerCanceller
}

func NewReceptionPathPool() *ReceptionPathPool {
	return &ReceptionPathPool{
		clock: func() uint64 { return 0 },
	}
}

// SetTraceSink sets the receiver of trace records. A nil sink disables tracing.
func (p *ReceptionPathPool) SetTraceSink(sink TraceSink) {
	p.sink = sink
}

// SetClock sets the time source (in us) used to timestamp trace records.
func (p *ReceptionPathPool) SetClock(clock func() uint64) {
	logger.AssertNotNil(clock)
	p.clock = clock
}

// SetTimerCanceller sets what cancels the completion timer of a path on Release and Reset.
func (p *ReceptionPathPool) SetTimerCanceller(c TimerCanceller) {
	p.canceller = c
}

// Configure appends one free path per frequency. Repeated frequencies add more demodulators on that channel.
func (p *ReceptionPathPool) Configure(freqs ...FrequencyMhz) {
	for _, f := range freqs {
		p.AddReceptionPath(f)
	}
}

func (p *ReceptionPathPool) AddReceptionPath(f FrequencyMhz) {
	p.paths = append(p.paths, newReceptionPath(f))
	logger.Debugf("reception path %d added on %s MHz", len(p.paths)-1, FormatFrequency(f))
}

// Reset removes all paths and discards in-flight locks. Pending completion timers are cancelled.
func (p *ReceptionPathPool) Reset() {
	for _, rp := range p.paths {
		if !rp.available {
			p.cancelTimer(rp)
		}
	}
	p.paths = nil
	p.gen++
	if p.occupied != 0 {
		p.occupied = 0
		p.trace(TraceRecord{Kind: TraceOccupancy, Frequency: InvalidFrequency, RxPowerDbm: UndefinedDbValue})
	}
}

// IsOnFrequency reports whether any path is tuned exactly to f.
func (p *ReceptionPathPool) IsOnFrequency(f FrequencyMhz) bool {
	for _, rp := range p.paths {
		if rp.frequency == f {
			return true
		}
	}
	return false
}

// HasFreePath reports whether a free path is tuned to f.
func (p *ReceptionPathPool) HasFreePath(f FrequencyMhz) bool {
	for _, rp := range p.paths {
		if rp.available && rp.frequency == f {
			return true
		}
	}
	return false
}

// TryAcquire locks the first free path on frequency f. It fails with AcquireBlockedByTx while transmitting,
// regardless of frequency, and with AcquireNoFreePath if no matching path is free.
func (p *ReceptionPathPool) TryAcquire(f FrequencyMhz, sf SpreadingFactor) (PathHandle, AcquireResult) {
	return p.tryAcquire(f, sf, interference.InvalidEventId, UndefinedDbValue)
}

func (p *ReceptionPathPool) tryAcquire(f FrequencyMhz, sf SpreadingFactor, evtId interference.EventId,
	rxPower DbValue) (PathHandle, AcquireResult) {
	rec := TraceRecord{Frequency: f, Sf: sf, RxPowerDbm: rxPower, EventId: evtId}

	if p.isTransmitting {
		p.stats.BlockedByTx++
		rec.Kind = TraceRxBlockedByTx
		p.trace(rec)
		return InvalidPathHandle, AcquireBlockedByTx
	}

	for i, rp := range p.paths {
		if rp.available && rp.frequency == f {
			rp.lock(sf)
			rp.event = evtId
			p.stats.Acquired++
			p.setOccupied(p.occupied+1, rec)
			return PathHandle{index: i, gen: p.gen}, AcquireOk
		}
	}

	p.stats.NoFreePath++
	rec.Kind = TraceRxNoFreePath
	p.trace(rec)
	return InvalidPathHandle, AcquireNoFreePath
}

// Release frees a locked path and cancels its completion timer. Releasing a free path is a no-op.
func (p *ReceptionPathPool) Release(h PathHandle) {
	rp := p.lookup(h)
	if rp.available {
		return
	}
	p.cancelTimer(rp)
	rec := TraceRecord{Frequency: rp.frequency, Sf: rp.sf, RxPowerDbm: UndefinedDbValue, EventId: rp.event}
	rp.free()
	p.stats.Released++
	p.setOccupied(p.occupied-1, rec)
}

// Bind stores the transmission event and the completion timer of a locked path.
func (p *ReceptionPathPool) Bind(h PathHandle, evtId interference.EventId, timerId event.TimerId) {
	rp := p.lookup(h)
	logger.AssertFalse(rp.available, "bind on a free reception path")
	rp.event = evtId
	rp.endReceive = timerId
}

// Path returns the path of a handle.
func (p *ReceptionPathPool) Path(h PathHandle) *ReceptionPath {
	return p.lookup(h)
}

// Paths returns the paths in search order.
func (p *ReceptionPathPool) Paths() []*ReceptionPath {
	res := make([]*ReceptionPath, len(p.paths))
	copy(res, p.paths)
	return res
}

// LockedHandles returns handles to all locked paths.
func (p *ReceptionPathPool) LockedHandles() []PathHandle {
	var res []PathHandle
	for i, rp := range p.paths {
		if !rp.available {
			res = append(res, PathHandle{index: i, gen: p.gen})
		}
	}
	return res
}

func (p *ReceptionPathPool) Len() int {
	return len(p.paths)
}

func (p *ReceptionPathPool) BeginTransmit() {
	p.isTransmitting = true
}

func (p *ReceptionPathPool) EndTransmit() {
	p.isTransmitting = false
}

func (p *ReceptionPathPool) IsTransmitting() bool {
	return p.isTransmitting
}

// OccupiedCount returns the number of locked paths.
func (p *ReceptionPathPool) OccupiedCount() int {
	return p.occupied
}

func (p *ReceptionPathPool) Stats() PoolStats {
	return p.stats
}

func (p *ReceptionPathPool) lookup(h PathHandle) *ReceptionPath {
	if h.gen != p.gen {
		logger.Panicf("stale reception path handle (generation %d, pool at %d)", h.gen, p.gen)
	}
	if h.index < 0 || h.index >= len(p.paths) {
		logger.Panicf("invalid reception path handle %d", h.index)
	}
	return p.paths[h.index]
}

func (p *ReceptionPathPool) cancelTimer(rp *ReceptionPath) {
	if p.canceller != nil && rp.endReceive != event.InvalidTimerId {
		p.canceller.Cancel(rp.endReceive)
	}
	rp.endReceive = event.InvalidTimerId
}

func (p *ReceptionPathPool) setOccupied(n int, rec TraceRecord) {
	logger.AssertTrue(n >= 0 && n <= len(p.paths))
	p.occupied = n
	if n > p.stats.PeakOccupied {
		p.stats.PeakOccupied = n
	}
	rec.Kind = TraceOccupancy
	p.trace(rec)
}

func (p *ReceptionPathPool) trace(rec TraceRecord) {
	rec.Occupied = p.occupied
	if p.sink == nil {
		return
	}
	rec.TimeUs = p.clock()
	p.sink.OnTrace(rec)
}
