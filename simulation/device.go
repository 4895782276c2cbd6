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
	"fmt"

	"github.com/lorasim/lora-ns/prng"
	"github.com/lorasim/lora-ns/radiomodel"
	. "github.com/lorasim/lora-ns/types"
)

// Device is an end device sending periodic uplinks.
type Device struct {
	Id         NodeId
	Position   radiomodel.Vector3
	Sf         SpreadingFactor
	TxPowerDbm DbValue

	payloadBytes int
	interval     *prng.ExponentialVariable
	channel      *prng.UniformVariable
}

type deviceConfig struct {
	Id           NodeId
	Position     radiomodel.Vector3
	Sf           SpreadingFactor
	TxPowerDbm   DbValue
	PayloadBytes int
	PeriodUs     float64
}

// newDevice creates a device that draws from two prng streams starting at stream. It returns the device and the
// number of streams used.
func newDevice(cfg *deviceConfig, stream int64) (*Device, int64) {
	d := &Device{
		Id:           cfg.Id,
		Position:     cfg.Position,
		Sf:           cfg.Sf,
		TxPowerDbm:   cfg.TxPowerDbm,
		payloadBytes: cfg.PayloadBytes,
		interval:     prng.NewExponentialVariable(cfg.PeriodUs),
		channel:      prng.NewUniformVariable(0, 1),
	}
	d.interval.SetStream(stream)
	d.channel.SetStream(stream + 1)
	return d, 2
}

// nextIntervalUs draws the time until the next uplink.
func (d *Device) nextIntervalUs() uint64 {
	return uint64(d.interval.Value()) + 1
}

func (d *Device) pickChannel(channels []FrequencyMhz) FrequencyMhz {
	if len(channels) == 0 {
		return InvalidFrequency
	}
	idx := int(d.channel.Value() * float64(len(channels)))
	if idx >= len(channels) {
		idx = len(channels) - 1
	}
	return channels[idx]
}

func (d *Device) AirtimeUs() uint64 {
	return UplinkAirtime(d.Sf, d.payloadBytes)
}

func (d *Device) String() string {
	return fmt.Sprintf("Device{id=%d, pos=(%.0f,%.0f,%.0f), %s, %.1f dBm}", d.Id, d.Position.X, d.Position.Y,
		d.Position.Z, d.Sf, d.TxPowerDbm)
}
