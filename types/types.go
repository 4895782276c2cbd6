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

package types

import (
	"fmt"
	"math"
)

type NodeId = int

// DbValue is a signal power or loss value in dB or dBm.
type DbValue = float64

// FrequencyMhz is a channel center frequency. Channels are compared by exact equality.
type FrequencyMhz = float64

// SpreadingFactor is the LoRa spreading factor used by a transmission.
type SpreadingFactor uint8

const (
	MinSpreadingFactor     SpreadingFactor = 7
	MaxSpreadingFactor     SpreadingFactor = 12
	UnsetSpreadingFactor   SpreadingFactor = 0
	DefaultSpreadingFactor                 = MinSpreadingFactor
)

const (
	// Ever is the timestamp (in us) used for 'never'.
	Ever uint64 = math.MaxUint64

	InvalidFrequency FrequencyMhz = 0
	UndefinedDbValue DbValue      = math.MaxFloat64
)

// DefaultChannels is the default EU868 set of uplink channels that every gateway listens on.
var DefaultChannels = []FrequencyMhz{868.1, 868.3, 868.5}

// gatewaySensitivityDbm is the uplink sensitivity per spreading factor, SF7 first (SX1276 datasheet).
var gatewaySensitivityDbm = [...]DbValue{-123, -126, -129, -132, -134, -136}

func (sf SpreadingFactor) IsValid() bool {
	return sf >= MinSpreadingFactor && sf <= MaxSpreadingFactor
}

func (sf SpreadingFactor) String() string {
	if sf == UnsetSpreadingFactor {
		return "SF?"
	}
	return fmt.Sprintf("SF%d", uint8(sf))
}

// GatewaySensitivity returns the gateway Rx sensitivity (dBm) for the given spreading factor. Invalid spreading
// factors return -Inf, i.e. no sensitivity limit is applied.
func GatewaySensitivity(sf SpreadingFactor) DbValue {
	if !sf.IsValid() {
		return math.Inf(-1)
	}
	return gatewaySensitivityDbm[sf-MinSpreadingFactor]
}

// AllSpreadingFactors returns the supported spreading factors in increasing order.
func AllSpreadingFactors() []SpreadingFactor {
	res := make([]SpreadingFactor, 0, MaxSpreadingFactor-MinSpreadingFactor+1)
	for sf := MinSpreadingFactor; sf <= MaxSpreadingFactor; sf++ {
		res = append(res, sf)
	}
	return res
}

// FormatFrequency formats a channel frequency for use in labels, logs and KPI keys.
func FormatFrequency(f FrequencyMhz) string {
	return fmt.Sprintf("%.1f", f)
}
