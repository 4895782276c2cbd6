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

package prng

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomVariable is a stream of random values that can be assigned to a fixed stream index for reproducible runs.
type RandomVariable interface {
	// Value draws the next value.
	Value() float64
	// SetStream restarts the variable on the given stream index.
	SetStream(stream int64)
	// GetStream returns the current stream index.
	GetStream() int64
}

const (
	VariableConstant    = "constant"
	VariableUniform     = "uniform"
	VariableNormal      = "normal"
	VariableExponential = "exponential"
)

// ConstantVariable always returns the same value.
type ConstantVariable struct {
	Constant float64
	stream   int64
}

func NewConstantVariable(c float64) *ConstantVariable {
	return &ConstantVariable{Constant: c}
}

func (cv *ConstantVariable) Value() float64 {
	return cv.Constant
}

func (cv *ConstantVariable) SetStream(stream int64) {
	cv.stream = stream
}

func (cv *ConstantVariable) GetStream() int64 {
	return cv.stream
}

type distribution interface {
	Rand() float64
}

// distVariable draws from a gonum distribution that is bound to a PCG stream source.
type distVariable struct {
	src    *rand.PCG
	dist   distribution
	stream int64
}

func newDistVariable(stream int64, mk func(src rand.Source) distribution) distVariable {
	src := NewStreamSource(stream)
	return distVariable{src: src, dist: mk(src), stream: stream}
}

func (dv *distVariable) Value() float64 {
	return dv.dist.Rand()
}

func (dv *distVariable) SetStream(stream int64) {
	dv.stream = stream
	ReseedSource(dv.src, stream)
}

func (dv *distVariable) GetStream() int64 {
	return dv.stream
}

// UniformVariable draws uniformly from [Min, Max).
type UniformVariable struct {
	distVariable
	Min, Max float64
}

func NewUniformVariable(min, max float64) *UniformVariable {
	uv := &UniformVariable{Min: min, Max: max}
	uv.distVariable = newDistVariable(0, func(src rand.Source) distribution {
		return distuv.Uniform{Min: min, Max: max, Src: src}
	})
	return uv
}

// NormalVariable draws from a normal distribution.
type NormalVariable struct {
	distVariable
	Mean, Sigma float64
}

func NewNormalVariable(mean, sigma float64) *NormalVariable {
	nv := &NormalVariable{Mean: mean, Sigma: sigma}
	nv.distVariable = newDistVariable(0, func(src rand.Source) distribution {
		return distuv.Normal{Mu: mean, Sigma: sigma, Src: src}
	})
	return nv
}

// ExponentialVariable draws from an exponential distribution with the given mean.
type ExponentialVariable struct {
	distVariable
	Mean float64
}

func NewExponentialVariable(mean float64) *ExponentialVariable {
	ev := &ExponentialVariable{Mean: mean}
	ev.distVariable = newDistVariable(0, func(src rand.Source) distribution {
		return distuv.Exponential{Rate: 1.0 / mean, Src: src}
	})
	return ev
}

// NewRandomVariable creates a variable by kind name. Parameters: constant(a), uniform(a=min, b=max),
// normal(a=mean, b=sigma), exponential(a=mean).
func NewRandomVariable(kind string, a, b float64) (RandomVariable, error) {
	switch kind {
	case VariableConstant, "":
		return NewConstantVariable(a), nil
	case VariableUniform:
		if b < a {
			return nil, errors.Errorf("uniform variable needs min <= max, got [%v, %v]", a, b)
		}
		return NewUniformVariable(a, b), nil
	case VariableNormal:
		if b < 0 {
			return nil, errors.Errorf("normal variable needs sigma >= 0, got %v", b)
		}
		return NewNormalVariable(a, b), nil
	case VariableExponential:
		if a <= 0 {
			return nil, errors.Errorf("exponential variable needs mean > 0, got %v", a)
		}
		return NewExponentialVariable(a), nil
	default:
		return nil, errors.Errorf("unknown random variable kind: %s", kind)
	}
}
