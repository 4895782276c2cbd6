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
	"fmt"

	"github.com/lorasim/lora-ns/interference"
	. "github.com/lorasim/lora-ns/types"
)

type TraceKind int

const (
	TraceRxBlockedByTx TraceKind = iota
	TraceRxNoFreePath
	TraceOccupancy
	TraceRxUnderSensitivity
	TraceRxInterrupted
	TraceRxSuccess
	TraceRxInterfered
)

var traceKindNames = [...]string{
	TraceRxBlockedByTx:      "blocked_by_tx",
	TraceRxNoFreePath:       "no_free_path",
	TraceOccupancy:          "occupancy",
	TraceRxUnderSensitivity: "under_sensitivity",
	TraceRxInterrupted:      "interrupted",
	TraceRxSuccess:          "success",
	TraceRxInterfered:       "interfered",
}

func (k TraceKind) String() string {
	if k < 0 || int(k) >= len(traceKindNames) {
		return fmt.Sprintf("TraceKind(%d)", int(k))
	}
	return traceKindNames[k]
}

// IsOutcome reports whether the record ends (or refuses) a reception attempt.
func (k TraceKind) IsOutcome() bool {
	return k != TraceOccupancy
}

// TraceRecord is one telemetry record. RxPowerDbm is UndefinedDbValue and EventId is InvalidEventId when the
// emitter did not know them.
type TraceRecord struct {
	Kind       TraceKind
	TimeUs     uint64
	Frequency  FrequencyMhz
	Sf         SpreadingFactor
	RxPowerDbm DbValue
	Occupied   int
	EventId    interference.EventId
}

func (r TraceRecord) String() string {
	s := fmt.Sprintf("%d %s freq=%s %s occupied=%d", r.TimeUs, r.Kind, FormatFrequency(r.Frequency), r.Sf, r.Occupied)
	if r.RxPowerDbm != UndefinedDbValue {
		s += fmt.Sprintf(" rx=%.1fdBm", r.RxPowerDbm)
	}
	return s
}

// TraceSink receives trace records synchronously, in emission order.
type TraceSink interface {
	OnTrace(rec TraceRecord)
}

// TraceFunc adapts a function to a TraceSink.
type TraceFunc func(rec TraceRecord)

func (f TraceFunc) OnTrace(rec TraceRecord) {
	f(rec)
}

// RecordingSink keeps all records in memory.
type RecordingSink struct {
	Records []TraceRecord
}

func (rs *RecordingSink) OnTrace(rec TraceRecord) {
	rs.Records = append(rs.Records, rec)
}

// Kinds returns the kinds of the records, in order.
func (rs *RecordingSink) Kinds() []TraceKind {
	res := make([]TraceKind, len(rs.Records))
	for i, rec := range rs.Records {
		res[i] = rec.Kind
	}
	return res
}

// Count returns the number of records of the given kind.
func (rs *RecordingSink) Count(kind TraceKind) int {
	n := 0
	for _, rec := range rs.Records {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}

func (rs *RecordingSink) Clear() {
	rs.Records = nil
}

// MultiSink delivers each record to all of its sinks in order.
type MultiSink []TraceSink

func (ms MultiSink) OnTrace(rec TraceRecord) {
	for _, s := range ms {
		s.OnTrace(rec)
	}
}
