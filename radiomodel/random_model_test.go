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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lorasim/lora-ns/prng"
)

func TestRandomDefaultConstant(t *testing.T) {
	rm := NewRandomLossModel(nil)
	assert.Equal(t, LossModelRandom, rm.GetName())
	assert.Equal(t, 13.0, rm.CalcRxPower(14, 7, 10))
	assert.Equal(t, 13.0, rm.CalcRxPower(14, 12, 5000))
	assert.Equal(t, 13.0, rm.CalcRxPower(14, 20, -1))
}

func TestRandomBetweenNeedsSpreadingFactor(t *testing.T) {
	rm := NewRandomLossModel(nil)
	assert.Panics(t, func() {
		rm.CalcRxPowerBetween(14, Vector3{}, Vector3{X: 1})
	})
	rm.SetSpreadingFactor(9)
	assert.Equal(t, 13.0, rm.CalcRxPowerBetween(14, Vector3{}, Vector3{X: 1}))
}

func TestRandomStreamReproducible(t *testing.T) {
	draw := func() []float64 {
		rm := NewRandomLossModel(prng.NewUniformVariable(0, 20))
		assert.Equal(t, int64(1), rm.AssignStreams(17))
		res := make([]float64, 10)
		for i := range res {
			res[i] = rm.CalcRxPower(14, 7, 100)
			assert.LessOrEqual(t, res[i], 14.0)
			assert.Greater(t, res[i], -6.0)
		}
		return res
	}
	assert.Equal(t, draw(), draw())

	rm := NewRandomLossModel(prng.NewUniformVariable(0, 20))
	rm.AssignStreams(18)
	other := make([]float64, 10)
	for i := range other {
		other[i] = rm.CalcRxPower(14, 7, 100)
	}
	assert.NotEqual(t, draw(), other)
	assert.Equal(t, int64(18), rm.GetVariable().GetStream())
}
