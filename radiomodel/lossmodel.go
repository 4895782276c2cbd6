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
	"strings"

	"github.com/pkg/errors"

	"github.com/lorasim/lora-ns/logger"
	. "github.com/lorasim/lora-ns/types"
)

// LossModel computes the received power of a transmission from its Tx power, spreading factor and distance.
// Implementations are not safe for concurrent use.
type LossModel interface {
	// CalcRxPower returns the received power (dBm) at distance (meters) for the given spreading factor.
	// Negative distances are treated as their absolute value. Unsupported spreading factors are replaced by SF7
	// and reported as a Warning.
	CalcRxPower(txPowerDbm DbValue, sf SpreadingFactor, distance float64) DbValue

	// CalcRxPowerBetween returns the received power between two positions, using the spreading factor set by
	// SetSpreadingFactor. It panics if no spreading factor was set.
	CalcRxPowerBetween(txPowerDbm DbValue, a, b Position) DbValue

	SetSpreadingFactor(sf SpreadingFactor)
	GetSpreadingFactor() SpreadingFactor

	// AssignStreams fixes the random streams used by the model, starting at stream. It returns the number
	// of streams that were used.
	AssignStreams(stream int64) int64

	GetName() string

	// SetWarningHook sets a function that receives non-fatal input problems. A nil hook disables delivery.
	SetWarningHook(hook func(w Warning))
}

// Warning describes an input that a model could not use as-is and replaced by a fallback.
type Warning struct {
	Model       string
	RequestedSf SpreadingFactor
	UsedSf      SpreadingFactor
	Message     string
}

const (
	LossModelCurveFit = "curvefit"
	LossModelRylr     = "rylr"
	LossModelRandom   = "random"
)

// LossModelNames lists the names accepted by NewLossModel.
var LossModelNames = []string{LossModelCurveFit, LossModelRylr, LossModelRandom}

// NewLossModel creates a loss model with default parameters by name.
func NewLossModel(name string) (LossModel, error) {
	switch strings.ToLower(name) {
	case LossModelCurveFit, LossModelRylr:
		return NewCurveFitLossModel(nil)
	case LossModelRandom:
		return NewRandomLossModel(nil), nil
	default:
		return nil, errors.Errorf("unknown loss model: %s", name)
	}
}

// lossModelBase holds what every loss model shares: the ambient spreading factor and the warning hook.
type lossModelBase struct {
	name        string
	txSf        SpreadingFactor
	warningHook func(w Warning)
}

func (lb *lossModelBase) SetSpreadingFactor(sf SpreadingFactor) {
	lb.txSf = sf
}

func (lb *lossModelBase) GetSpreadingFactor() SpreadingFactor {
	return lb.txSf
}

func (lb *lossModelBase) GetName() string {
	return lb.name
}

func (lb *lossModelBase) SetWarningHook(hook func(w Warning)) {
	lb.warningHook = hook
}

// ambientSpreadingFactor returns the spreading factor set for position-based calls.
func (lb *lossModelBase) ambientSpreadingFactor() SpreadingFactor {
	if lb.txSf == UnsetSpreadingFactor {
		logger.Panicf("%s: spreading factor not set before position-based Rx power calculation", lb.name)
	}
	return lb.txSf
}

// checkSpreadingFactor substitutes the default SF7 for spreading factors outside SF7..SF12.
func (lb *lossModelBase) checkSpreadingFactor(sf SpreadingFactor) SpreadingFactor {
	if sf.IsValid() {
		return sf
	}
	w := Warning{
		Model:       lb.name,
		RequestedSf: sf,
		UsedSf:      DefaultSpreadingFactor,
		Message:     "unsupported spreading factor, using " + DefaultSpreadingFactor.String(),
	}
	logger.Warnf("%s: spreading factor %d out of range, using %s", lb.name, sf, w.UsedSf)
	if lb.warningHook != nil {
		lb.warningHook(w)
	}
	return w.UsedSf
}
