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
	"math"

	"github.com/pkg/errors"

	. "github.com/lorasim/lora-ns/types"
)

// CurveFitLossModel interpolates the path loss linearly between the per-SF minimum (at distance 0) and maximum
// (at the measured range). Beyond the measured range the line is extrapolated without bound.
type CurveFitLossModel struct {
	lossModelBase
	table CurveFitTable
}

// NewCurveFitLossModel creates a curve-fit model. A nil table selects RylrCurveFitTable.
func NewCurveFitLossModel(table *CurveFitTable) (*CurveFitLossModel, error) {
	cm := &CurveFitLossModel{
		lossModelBase: lossModelBase{name: LossModelCurveFit},
		table:         RylrCurveFitTable,
	}
	if table != nil {
		if err := table.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid curve-fit table")
		}
		cm.table = *table
	}
	return cm, nil
}

// PathLoss returns the path loss (dB) at the given distance.
func (cm *CurveFitLossModel) PathLoss(sf SpreadingFactor, distance float64) DbValue {
	sf = cm.checkSpreadingFactor(sf)
	return cm.pathLoss(cm.table.Get(sf), math.Abs(distance))
}

func (cm *CurveFitLossModel) pathLoss(p *CurveFitParams, distance float64) DbValue {
	slope := (p.MaxPathLossDb - p.MinPathLossDb) / p.MaxRangeMeters
	return slope*distance + p.MinPathLossDb
}

func (cm *CurveFitLossModel) CalcRxPower(txPowerDbm DbValue, sf SpreadingFactor, distance float64) DbValue {
	sf = cm.checkSpreadingFactor(sf)
	p := cm.table.Get(sf)
	return txPowerDbm - cm.pathLoss(p, math.Abs(distance)) + p.AntennaLossDb
}

func (cm *CurveFitLossModel) CalcRxPowerBetween(txPowerDbm DbValue, a, b Position) DbValue {
	sf := cm.ambientSpreadingFactor()
	return cm.CalcRxPower(txPowerDbm, sf, a.GetDistanceFrom(b))
}

// AssignStreams is a no-op; the model is deterministic.
func (cm *CurveFitLossModel) AssignStreams(stream int64) int64 {
	return 1
}
