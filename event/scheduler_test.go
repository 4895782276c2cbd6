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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleOrder(t *testing.T) {
	s := NewScheduler()
	var fired []int
	s.Schedule(300, func() { fired = append(fired, 3) })
	s.Schedule(100, func() { fired = append(fired, 1) })
	s.Schedule(200, func() { fired = append(fired, 2) })
	s.Schedule(100, func() { fired = append(fired, 11) })
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, uint64(100), s.NextTimestamp())

	s.Run()
	assert.Equal(t, []int{1, 11, 2, 3}, fired)
	assert.Equal(t, uint64(300), s.Now())
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Step())
}

func TestCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	id := s.Schedule(50, func() { fired = true })
	other := s.Schedule(60, func() {})
	assert.True(t, s.IsPending(id))
	assert.True(t, s.Cancel(id))
	assert.False(t, s.IsPending(id))
	assert.False(t, s.Cancel(id))
	assert.False(t, s.Cancel(InvalidTimerId))

	s.Run()
	assert.False(t, fired)
	assert.False(t, s.IsPending(other))
	assert.False(t, s.Cancel(other))
}

func TestRunUntil(t *testing.T) {
	s := NewScheduler()
	count := 0
	s.Schedule(1000, func() { count++ })
	s.Schedule(2000, func() { count++ })
	s.RunUntil(1500)
	assert.Equal(t, 1, count)
	assert.Equal(t, uint64(1500), s.Now())

	s.RunUntil(2000)
	assert.Equal(t, 2, count)
	assert.Equal(t, uint64(2000), s.Now())
}

func TestScheduleFromCallback(t *testing.T) {
	s := NewScheduler()
	var times []uint64
	s.Schedule(10, func() {
		times = append(times, s.Now())
		s.Schedule(0, func() { times = append(times, s.Now()) })
		s.Schedule(5, func() { times = append(times, s.Now()) })
	})
	s.Run()
	assert.Equal(t, []uint64{10, 10, 15}, times)
}

func TestScheduleInPastPanics(t *testing.T) {
	s := NewScheduler()
	s.Schedule(100, func() {})
	s.Run()
	assert.Panics(t, func() {
		s.ScheduleAt(50, func() {})
	})
}

func TestSyncNowReadFromOtherGoroutine(t *testing.T) {
	s := NewScheduler()
	var fired []uint64
	s.Schedule(100, func() {
		fired = append(fired, s.SyncNow())
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := uint64(0)
		for i := 0; i < 1000; i++ {
			now := s.SyncNow()
			assert.GreaterOrEqual(t, now, last)
			last = now
		}
	}()
	s.RunUntil(500)
	wg.Wait()

	assert.Equal(t, []uint64{100}, fired)
	assert.Equal(t, uint64(500), s.SyncNow())
	assert.Equal(t, s.Now(), s.SyncNow())
}
