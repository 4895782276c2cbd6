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

	. "github.com/lorasim/lora-ns/types"
)

func newRylr(t *testing.T) *CurveFitLossModel {
	cm, err := NewCurveFitLossModel(nil)
	assert.Nil(t, err)
	return cm
}

func TestCurveFitAtZeroDistance(t *testing.T) {
	cm := newRylr(t)
	for _, sf := range AllSpreadingFactors() {
		p := RylrCurveFitTable.Get(sf)
		assert.InDelta(t, 14.0-63.0+p.AntennaLossDb, cm.CalcRxPower(14, sf, 0), 1e-9)
	}
	assert.InDelta(t, -40.0, cm.CalcRxPower(14, 7, 0), 1e-9)
}

func TestCurveFitAtMaxRange(t *testing.T) {
	cm := newRylr(t)
	assert.InDelta(t, -105.0, cm.CalcRxPower(14, 7, 500), 1e-9)
	assert.InDelta(t, -91.0, cm.CalcRxPower(14, 9, 850), 1e-9)
	assert.InDelta(t, -72.0, cm.CalcRxPower(14, 12, 1375), 1e-9)
	assert.InDelta(t, 128.0, cm.PathLoss(7, 500), 1e-9)
}

func TestCurveFitMonotonic(t *testing.T) {
	cm := newRylr(t)
	for _, sf := range AllSpreadingFactors() {
		prev := cm.CalcRxPower(14, sf, 0)
		for d := 50.0; d <= 3000; d += 50 {
			rx := cm.CalcRxPower(14, sf, d)
			assert.Less(t, rx, prev)
			prev = rx
		}
	}
}

func TestCurveFitExtrapolatesPastRange(t *testing.T) {
	cm := newRylr(t)
	// slope for SF7 is 65/500 dB per meter
	assert.InDelta(t, -105.0-65.0, cm.CalcRxPower(14, 7, 1000), 1e-9)
}

func TestCurveFitNegativeDistance(t *testing.T) {
	cm := newRylr(t)
	assert.Equal(t, cm.CalcRxPower(14, 10, 300), cm.CalcRxPower(14, 10, -300))
}

func TestCurveFitOutOfRangeSpreadingFactor(t *testing.T) {
	cm := newRylr(t)
	var warnings []Warning
	cm.SetWarningHook(func(w Warning) {
		warnings = append(warnings, w)
	})

	assert.Equal(t, cm.CalcRxPower(14, 7, 200), cm.CalcRxPower(14, 13, 200))
	assert.Equal(t, cm.CalcRxPower(14, 7, 200), cm.CalcRxPower(14, 6, 200))
	assert.Len(t, warnings, 2)
	assert.Equal(t, SpreadingFactor(13), warnings[0].RequestedSf)
	assert.Equal(t, DefaultSpreadingFactor, warnings[0].UsedSf)
	assert.Equal(t, LossModelCurveFit, warnings[0].Model)
	assert.Equal(t, SpreadingFactor(6), warnings[1].RequestedSf)
}

func TestCurveFitBetweenPositions(t *testing.T) {
	cm := newRylr(t)
	a := Vector3{X: 0, Y: 0}
	b := Vector3{X: 300, Y: 400}
	assert.Panics(t, func() {
		cm.CalcRxPowerBetween(14, a, b)
	})

	cm.SetSpreadingFactor(7)
	assert.Equal(t, SpreadingFactor(7), cm.GetSpreadingFactor())
	assert.InDelta(t, -105.0, cm.CalcRxPowerBetween(14, a, b), 1e-9)
	assert.Equal(t, int64(1), cm.AssignStreams(5))
}

func TestCurveFitTableValidation(t *testing.T) {
	table := RylrCurveFitTable
	table[2].MaxRangeMeters = 0
	_, err := NewCurveFitLossModel(&table)
	assert.Error(t, err)

	table = RylrCurveFitTable
	table[5].MaxPathLossDb = 10
	_, err = NewCurveFitLossModel(&table)
	assert.Error(t, err)

	table = RylrCurveFitTable
	table[0].AntennaLossDb = 0
	cm, err := NewCurveFitLossModel(&table)
	assert.Nil(t, err)
	assert.InDelta(t, -49.0, cm.CalcRxPower(14, 7, 0), 1e-9)
	assert.Equal(t, DbValue(9), RylrCurveFitTable[0].AntennaLossDb)
}

func TestNewLossModel(t *testing.T) {
	for _, name := range LossModelNames {
		m, err := NewLossModel(name)
		assert.Nil(t, err)
		assert.NotNil(t, m)
	}
	m, err := NewLossModel("RYLR")
	assert.Nil(t, err)
	assert.Equal(t, LossModelCurveFit, m.GetName())

	_, err = NewLossModel("friis")
	assert.Error(t, err)
}

func TestVector3Distance(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 4, Y: 6, Z: 3}
	assert.InDelta(t, 5.0, a.GetDistanceFrom(b), 1e-12)
	assert.InDelta(t, 5.0, b.GetDistanceFrom(a), 1e-12)
	assert.Equal(t, 0.0, a.GetDistanceFrom(a))
}

func TestAddSignalPowers(t *testing.T) {
	assert.InDelta(t, -97.0, AddSignalPowersDbm(-100, -100), 0.02)
	assert.Equal(t, -60.0, AddSignalPowersDbm(-60, -100))
}
