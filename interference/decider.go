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
	"math"

	"github.com/lorasim/lora-ns/radiomodel"
)

// DefaultCaptureThresholdDb is the power margin a LoRa reception needs over same-SF interference.
const DefaultCaptureThresholdDb = 6.0

// Decider judges whether a finished reception was destroyed by interference.
type Decider interface {
	IsDestroyed(tr *Tracker, id EventId) bool
}

// NoInterference never destroys a reception.
type NoInterference struct{}

func (NoInterference) IsDestroyed(tr *Tracker, id EventId) bool {
	return false
}

// CoSfCaptureDecider destroys a reception if the summed power of overlapping transmissions on the same frequency
// and spreading factor comes within ThresholdDb of the received power. Other spreading factors are treated as
// orthogonal.
type CoSfCaptureDecider struct {
	ThresholdDb float64
}

func NewCoSfCaptureDecider() *CoSfCaptureDecider {
	return &CoSfCaptureDecider{ThresholdDb: DefaultCaptureThresholdDb}
}

func (d *CoSfCaptureDecider) IsDestroyed(tr *Tracker, id EventId) bool {
	evt, ok := tr.Get(id)
	if !ok {
		return false
	}
	interference := math.Inf(-1)
	for _, other := range tr.Overlapping(id) {
		if other.Frequency != evt.Frequency || other.Sf != evt.Sf {
			continue
		}
		interference = radiomodel.AddSignalPowersDbm(interference, other.RxPowerDbm)
	}
	if math.IsInf(interference, -1) {
		return false
	}
	return evt.RxPowerDbm-interference < d.ThresholdDb
}
