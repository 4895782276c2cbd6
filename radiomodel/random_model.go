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

package radiomodel

import (
	"github.com/lorasim/lora-ns/prng"
	. "github.com/lorasim/lora-ns/types"
)

// RandomLossModel subtracts a random loss, drawn per call, from the Tx power. Spreading factor and distance are
// ignored.
type RandomLossModel struct {
	lossModelBase
	variable prng.RandomVariable
}

// NewRandomLossModel creates a random model. A nil variable selects a constant loss of 1 dB.
func NewRandomLossModel(variable prng.RandomVariable) *RandomLossModel {
	if variable == nil {
		variable = prng.NewConstantVariable(1.0)
	}
	return &RandomLossModel{
		lossModelBase: lossModelBase{name: LossModelRandom},
		variable:      variable,
	}
}

func (rm *RandomLossModel) SetVariable(variable prng.RandomVariable) {
	rm.variable = variable
}

func (rm *RandomLossModel) GetVariable() prng.RandomVariable {
	return rm.variable
}

func (rm *RandomLossModel) CalcRxPower(txPowerDbm DbValue, sf SpreadingFactor, distance float64) DbValue {
	return txPowerDbm - rm.variable.Value()
}

func (rm *RandomLossModel) CalcRxPowerBetween(txPowerDbm DbValue, a, b Position) DbValue {
	sf := rm.ambientSpreadingFactor()
	return rm.CalcRxPower(txPowerDbm, sf, a.GetDistanceFrom(b))
}

func (rm *RandomLossModel) AssignStreams(stream int64) int64 {
	rm.variable.SetStream(stream)
	return 1
}
