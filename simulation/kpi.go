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
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/lorasim/lora-ns/gateway"
	"github.com/lorasim/lora-ns/logger"
	. "github.com/lorasim/lora-ns/types"
)

// KpiManager aggregates gateway trace records into KPIs over a measurement period. It implements gateway.TraceSink.
type KpiManager struct {
	clock     func() uint64
	data      *Kpi
	isRunning bool

	// occupancy over time, for the time-weighted average
	occValues   []float64
	occWeights  []float64
	occLast     int
	occLastTime uint64
}

// NewKpiManager creates a new KPI manager/bookkeeper that takes time from clock (us).
func NewKpiManager(clock func() uint64) *KpiManager {
	logger.AssertNotNil(clock)
	km := &KpiManager{
		clock: clock,
	}
	km.reset()
	return km
}

func (km *KpiManager) reset() {
	km.data = &Kpi{
		Status:           "ok",
		Total:            &KpiReception{},
		Frequencies:      map[string]*KpiReception{},
		SpreadingFactors: map[string]*KpiReception{},
	}
	km.occValues = nil
	km.occWeights = nil
}

// Start begins a new measurement period; previous data is discarded. occupied is the current number of locked
// paths.
func (km *KpiManager) Start(occupied int) {
	km.reset()
	km.data.TimeUs.StartTimeUs = km.clock()
	km.occLast = occupied
	km.occLastTime = km.data.TimeUs.StartTimeUs
	km.isRunning = true
}

// Stop ends the measurement period.
func (km *KpiManager) Stop() {
	if km.isRunning {
		km.calculateKpis()
		km.isRunning = false
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

func (km *KpiManager) OnTrace(rec gateway.TraceRecord) {
	if !km.isRunning {
		return
	}
	if rec.Kind == gateway.TraceOccupancy {
		km.trackOccupancy(rec.Occupied)
		return
	}

	for _, r := range []*KpiReception{
		km.data.Total,
		km.reception(km.data.Frequencies, FormatFrequency(rec.Frequency)),
		km.reception(km.data.SpreadingFactors, rec.Sf.String()),
	} {
		r.add(rec)
	}
}

// OnTransmit accounts a gateway transmission of the given duration.
func (km *KpiManager) OnTransmit(durationUs uint64) {
	if !km.isRunning {
		return
	}
	km.data.Gateway.NumTx++
	km.data.Gateway.TxTimeUs += durationUs
}

// Data returns the KPIs calculated up to now.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.calculateKpis()
	}
	return km.data
}

// SaveFile writes the KPIs as JSON.
func (km *KpiManager) SaveFile(fn string) error {
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	b, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "could not marshal KPI JSON data")
	}
	if err = os.WriteFile(fn, b, 0644); err != nil {
		return errors.Wrapf(err, "could not write KPI JSON file %s", fn)
	}
	logger.Infof("KPIs saved to %s", fn)
	return nil
}

func (km *KpiManager) reception(m map[string]*KpiReception, key string) *KpiReception {
	r := m[key]
	if r == nil {
		r = &KpiReception{}
		m[key] = r
	}
	return r
}

func (km *KpiManager) trackOccupancy(occupied int) {
	now := km.clock()
	if now > km.occLastTime {
		km.occValues = append(km.occValues, float64(km.occLast))
		km.occWeights = append(km.occWeights, float64(now-km.occLastTime))
	}
	km.occLast = occupied
	km.occLastTime = now
	if occupied > km.data.Gateway.PeakOccupied {
		km.data.Gateway.PeakOccupied = occupied
	}
}

func (km *KpiManager) calculateKpis() {
	// time
	km.data.TimeUs.EndTimeUs = km.clock()
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / 1e6
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / 1e6
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / 1e6

	// gateway
	values, weights := km.occValues, km.occWeights
	if km.data.TimeUs.EndTimeUs > km.occLastTime {
		values = append(values[:len(values):len(values)], float64(km.occLast))
		weights = append(weights[:len(weights):len(weights)], float64(km.data.TimeUs.EndTimeUs-km.occLastTime))
	}
	km.data.Gateway.AvgOccupied = 0
	if len(values) > 0 {
		km.data.Gateway.AvgOccupied = stat.Mean(values, weights)
	}
	km.data.Gateway.TxPercentage = 0
	if km.data.TimeUs.PeriodUs > 0 {
		km.data.Gateway.TxPercentage = 100.0 * float64(km.data.Gateway.TxTimeUs) / float64(km.data.TimeUs.PeriodUs)
	}

	// receptions
	km.data.Total.calculate()
	for _, r := range km.data.Frequencies {
		r.calculate()
	}
	for _, r := range km.data.SpreadingFactors {
		r.calculate()
	}
}

func (r *KpiReception) add(rec gateway.TraceRecord) {
	r.Attempts++
	switch rec.Kind {
	case gateway.TraceRxSuccess:
		r.Success++
		r.rxPowers = append(r.rxPowers, rec.RxPowerDbm)
	case gateway.TraceRxInterfered:
		r.Interfered++
	case gateway.TraceRxUnderSensitivity:
		r.UnderSensitivity++
	case gateway.TraceRxBlockedByTx:
		r.BlockedByTx++
	case gateway.TraceRxNoFreePath:
		r.NoFreePath++
	case gateway.TraceRxInterrupted:
		r.Interrupted++
	default:
		logger.Panicf("unexpected trace kind %s", rec.Kind)
	}
}

func (r *KpiReception) calculate() {
	r.SuccessPercent = 0
	if r.Attempts > 0 {
		r.SuccessPercent = 100.0 * float64(r.Success) / float64(r.Attempts)
	}
	r.RxPowerMeanDbm, r.RxPowerStdDevDb = 0, 0
	switch len(r.rxPowers) {
	case 0:
	case 1:
		r.RxPowerMeanDbm = r.rxPowers[0]
	default:
		r.RxPowerMeanDbm, r.RxPowerStdDevDb = stat.MeanStdDev(r.rxPowers, nil)
	}
}
