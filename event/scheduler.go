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

package event

import (
	"container/heap"
	"sync/atomic"

	"github.com/lorasim/lora-ns/logger"
	. "github.com/lorasim/lora-ns/types"
)

// TimerId identifies a scheduled callback.
type TimerId uint64

const InvalidTimerId TimerId = 0

type timerEvent struct {
	Id        TimerId
	Timestamp uint64 // absolute time in us
	seq       uint64
	fn        func()

	index int
}

type timerQueue []*timerEvent

func (tq timerQueue) Len() int {
	return len(tq)
}

func (tq timerQueue) Less(i, j int) bool {
	if tq[i].Timestamp != tq[j].Timestamp {
		return tq[i].Timestamp < tq[j].Timestamp
	}
	return tq[i].seq < tq[j].seq
}

func (tq timerQueue) Swap(i, j int) {
	a, b := tq[i], tq[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	tq[i], tq[j] = b, a             // swap the elements
	tq[i].index, tq[j].index = i, j // fix the indexes
}

func (tq *timerQueue) Push(x interface{}) {
	e := x.(*timerEvent)
	*tq = append(*tq, e)
	e.index = len(*tq) - 1
}

func (tq *timerQueue) Pop() (elem interface{}) {
	tqlen := len(*tq)
	elem = (*tq)[tqlen-1]
	(*tq)[tqlen-1] = nil
	*tq = (*tq)[:tqlen-1]
	return
}

// Scheduler is a single-threaded discrete-event scheduler with microsecond resolution.
// Callbacks scheduled for the same timestamp fire in the order they were scheduled.
type Scheduler struct {
	q       timerQueue
	pending map[TimerId]*timerEvent
	now     uint64
	syncNow atomic.Uint64
	nextId  TimerId
	nextSeq uint64
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		q:       timerQueue{},
		pending: map[TimerId]*timerEvent{},
	}
	heap.Init(&s.q)
	return s
}

// Now returns the current simulation time in us.
func (s *Scheduler) Now() uint64 {
	return s.now
}

// SyncNow returns the current simulation time in us and may be called from any goroutine.
func (s *Scheduler) SyncNow() uint64 {
	return s.syncNow.Load()
}

func (s *Scheduler) setNow(ts uint64) {
	s.now = ts
	s.syncNow.Store(ts)
}

// Schedule runs fn after delayUs microseconds of simulated time.
func (s *Scheduler) Schedule(delayUs uint64, fn func()) TimerId {
	logger.AssertTrue(delayUs <= Ever-s.now)
	return s.ScheduleAt(s.now+delayUs, fn)
}

// ScheduleAt runs fn at absolute time tsUs, which must not be in the past.
func (s *Scheduler) ScheduleAt(tsUs uint64, fn func()) TimerId {
	if tsUs < s.now {
		logger.Panicf("schedule in the past: %d < now %d", tsUs, s.now)
	}
	logger.AssertNotNil(fn)

	s.nextId++
	s.nextSeq++
	e := &timerEvent{
		Id:        s.nextId,
		Timestamp: tsUs,
		seq:       s.nextSeq,
		fn:        fn,
	}
	heap.Push(&s.q, e)
	s.pending[e.Id] = e
	return e.Id
}

// Cancel removes a pending callback. It returns false if the timer already fired or was cancelled.
func (s *Scheduler) Cancel(id TimerId) bool {
	e := s.pending[id]
	if e == nil {
		return false
	}
	heap.Remove(&s.q, e.index)
	delete(s.pending, id)
	return true
}

func (s *Scheduler) IsPending(id TimerId) bool {
	_, ok := s.pending[id]
	return ok
}

// NextTimestamp returns the time of the next pending callback, or Ever.
func (s *Scheduler) NextTimestamp() uint64 {
	if len(s.q) == 0 {
		return Ever
	}
	return s.q[0].Timestamp
}

// Step fires the next pending callback. It returns false if there was nothing to run.
func (s *Scheduler) Step() bool {
	if len(s.q) == 0 {
		return false
	}
	e := heap.Pop(&s.q).(*timerEvent)
	delete(s.pending, e.Id)
	logger.AssertTrue(e.Timestamp >= s.now)
	s.setNow(e.Timestamp)
	e.fn()
	return true
}

// RunUntil fires all callbacks up to and including tsUs, then sets the clock to tsUs.
func (s *Scheduler) RunUntil(tsUs uint64) {
	for len(s.q) > 0 && s.q[0].Timestamp <= tsUs {
		s.Step()
	}
	if tsUs > s.now && tsUs != Ever {
		s.setNow(tsUs)
	}
}

// Run fires callbacks until the queue is empty.
func (s *Scheduler) Run() {
	for s.Step() {
	}
}

// Len returns the number of pending callbacks.
func (s *Scheduler) Len() int {
	return len(s.q)
}
