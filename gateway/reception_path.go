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

	"github.com/lorasim/lora-ns/event"
	"github.com/lorasim/lora-ns/interference"
	"github.com/lorasim/lora-ns/logger"
	. "github.com/lorasim/lora-ns/types"
)

// ReceptionPath is one demodulator tuned to a fixed frequency. It is either free, or locked to exactly one
// in-flight transmission.
type ReceptionPath struct {
	frequency  FrequencyMhz
	available  bool
	sf         SpreadingFactor
	event      interference.EventId
	endReceive event.TimerId
}

func newReceptionPath(f FrequencyMhz) *ReceptionPath {
	return &ReceptionPath{
		frequency:  f,
		available:  true,
		event:      interference.InvalidEventId,
		endReceive: event.InvalidTimerId,
	}
}

func (rp *ReceptionPath) GetFrequency() FrequencyMhz {
	return rp.frequency
}

// SetFrequency retunes the path. Only a free path can be retuned.
func (rp *ReceptionPath) SetFrequency(f FrequencyMhz) {
	logger.AssertTrue(rp.available, "retune of a locked reception path")
	rp.frequency = f
}

func (rp *ReceptionPath) IsAvailable() bool {
	return rp.available
}

// GetSpreadingFactor returns the spreading factor of the locked transmission.
func (rp *ReceptionPath) GetSpreadingFactor() SpreadingFactor {
	return rp.sf
}

func (rp *ReceptionPath) GetEvent() interference.EventId {
	return rp.event
}

func (rp *ReceptionPath) GetEndReceive() event.TimerId {
	return rp.endReceive
}

func (rp *ReceptionPath) lock(sf SpreadingFactor) {
	rp.available = false
	rp.sf = sf
}

func (rp *ReceptionPath) free() {
	rp.available = true
	rp.sf = UnsetSpreadingFactor
	rp.event = interference.InvalidEventId
	rp.endReceive = event.InvalidTimerId
}

func (rp *ReceptionPath) String() string {
	if rp.available {
		return fmt.Sprintf("%s MHz free", FormatFrequency(rp.frequency))
	}
	return fmt.Sprintf("%s MHz locked %s event=%d", FormatFrequency(rp.frequency), rp.sf, rp.event)
}
