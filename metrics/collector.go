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

// Package metrics exports gateway telemetry to Prometheus.
package metrics

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lorasim/lora-ns/gateway"
	. "github.com/lorasim/lora-ns/types"
)

// Collector turns gateway trace records into Prometheus metrics. It implements gateway.TraceSink.
type Collector struct {
	gatherer prometheus.Gatherer

	RxOutcomes    *prometheus.CounterVec
	RxPower       *prometheus.HistogramVec
	OccupiedPaths prometheus.Gauge
	Transmitting  prometheus.Gauge
}

// NewCollector registers the gateway metrics against reg, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lora_gateway_rx_outcomes_total",
		Help: "Reception attempts at the gateway, labeled by outcome, frequency and spreading factor.",
	}, []string{"outcome", "frequency", "sf"}), "lora_gateway_rx_outcomes_total")
	if err != nil {
		return nil, err
	}

	rxPower, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lora_gateway_rx_power_dbm",
		Help:    "Received power of finished receptions in dBm.",
		Buckets: prometheus.LinearBuckets(-140, 10, 13),
	}, []string{"sf"}), "lora_gateway_rx_power_dbm")
	if err != nil {
		return nil, err
	}

	occupied, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lora_gateway_occupied_paths",
		Help: "Current number of locked reception paths.",
	}), "lora_gateway_occupied_paths")
	if err != nil {
		return nil, err
	}

	transmitting, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lora_gateway_transmitting",
		Help: "1 while the gateway transmits, 0 otherwise.",
	}), "lora_gateway_transmitting")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		RxOutcomes:    outcomes,
		RxPower:       rxPower,
		OccupiedPaths: occupied,
		Transmitting:  transmitting,
	}, nil
}

func (c *Collector) OnTrace(rec gateway.TraceRecord) {
	if c == nil {
		return
	}
	c.OccupiedPaths.Set(float64(rec.Occupied))
	if !rec.Kind.IsOutcome() {
		return
	}
	c.RxOutcomes.WithLabelValues(rec.Kind.String(), FormatFrequency(rec.Frequency), rec.Sf.String()).Inc()
	if (rec.Kind == gateway.TraceRxSuccess || rec.Kind == gateway.TraceRxInterfered) && rec.RxPowerDbm != UndefinedDbValue {
		c.RxPower.WithLabelValues(rec.Sf.String()).Observe(rec.RxPowerDbm)
	}
}

// SetTransmitting updates the half-duplex state gauge.
func (c *Collector) SetTransmitting(transmitting bool) {
	if c == nil {
		return
	}
	if transmitting {
		c.Transmitting.Set(1)
	} else {
		c.Transmitting.Set(0)
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, errors.Wrapf(err, "register %s", name)
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, errors.Wrapf(err, "register %s", name)
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, errors.Wrapf(err, "register %s", name)
	}
	return g, nil
}
