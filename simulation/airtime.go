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

package simulation

import (
	"math"

	. "github.com/lorasim/lora-ns/types"
)

// AirtimeParams are the LoRa modem settings that determine the time on air of a frame.
type AirtimeParams struct {
	BandwidthHz     float64
	CodingRate      int // 1..4 for 4/5..4/8
	PreambleSymbols int
	ExplicitHeader  bool
	CrcOn           bool
	LowDataRateOpt  bool
}

// DefaultAirtimeParams returns the usual uplink settings: 125 kHz, CR 4/5, 8 preamble symbols, explicit header and
// CRC. Low data rate optimization is on for SF11 and SF12.
func DefaultAirtimeParams(sf SpreadingFactor) AirtimeParams {
	return AirtimeParams{
		BandwidthHz:     125000,
		CodingRate:      1,
		PreambleSymbols: 8,
		ExplicitHeader:  true,
		CrcOn:           true,
		LowDataRateOpt:  sf >= 11,
	}
}

// Airtime returns the time on air (us) of a frame with the given payload size, after the SX1276 datasheet.
func Airtime(sf SpreadingFactor, payloadBytes int, p AirtimeParams) uint64 {
	tSym := math.Pow(2, float64(sf)) / p.BandwidthHz
	tPreamble := (float64(p.PreambleSymbols) + 4.25) * tSym

	ih, crc, de := 0.0, 0.0, 0.0
	if !p.ExplicitHeader {
		ih = 1
	}
	if p.CrcOn {
		crc = 1
	}
	if p.LowDataRateOpt {
		de = 1
	}
	num := 8*float64(payloadBytes) - 4*float64(sf) + 28 + 16*crc - 20*ih
	den := 4 * (float64(sf) - 2*de)
	payloadSymbols := 8 + math.Max(math.Ceil(num/den)*float64(p.CodingRate+4), 0)

	return uint64(math.Round((tPreamble + payloadSymbols*tSym) * 1e6))
}

// UplinkAirtime returns the airtime of an uplink with default modem settings.
func UplinkAirtime(sf SpreadingFactor, payloadBytes int) uint64 {
	return Airtime(sf, payloadBytes, DefaultAirtimeParams(sf))
}
