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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lorasim/lora-ns/gateway"
	. "github.com/lorasim/lora-ns/types"
)

func TestKpiManagerCounts(t *testing.T) {
	now := uint64(1000)
	km := NewKpiManager(func() uint64 { return now })

	// not running: ignored
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceRxSuccess, Frequency: 868.1, Sf: 7, RxPowerDbm: -80})
	km.Start(0)
	assert.True(t, km.IsRunning())

	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceRxSuccess, Frequency: 868.1, Sf: 7, RxPowerDbm: -80})
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceRxSuccess, Frequency: 868.1, Sf: 7, RxPowerDbm: -90})
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceRxNoFreePath, Frequency: 868.1, Sf: 9})
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceRxBlockedByTx, Frequency: 868.3, Sf: 7})

	now = 2000
	kpi := km.Data()
	assert.Equal(t, uint64(4), kpi.Total.Attempts)
	assert.Equal(t, uint64(2), kpi.Total.Success)
	assert.Equal(t, 50.0, kpi.Total.SuccessPercent)
	assert.Equal(t, uint64(3), kpi.Frequencies["868.1"].Attempts)
	assert.Equal(t, uint64(1), kpi.Frequencies["868.3"].BlockedByTx)
	assert.Equal(t, uint64(1), kpi.SpreadingFactors["SF9"].NoFreePath)
	assert.InDelta(t, -85.0, kpi.SpreadingFactors["SF7"].RxPowerMeanDbm, 1e-9)
	assert.InDelta(t, 7.0710678, kpi.SpreadingFactors["SF7"].RxPowerStdDevDb, 1e-6)
	assert.Equal(t, uint64(1000), kpi.TimeUs.PeriodUs)
}

func TestKpiManagerOccupancy(t *testing.T) {
	now := uint64(0)
	km := NewKpiManager(func() uint64 { return now })
	km.Start(0)

	now = 100
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceOccupancy, Occupied: 2})
	now = 300
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceOccupancy, Occupied: 1})
	now = 400
	km.OnTransmit(100)
	km.Stop()
	assert.False(t, km.IsRunning())

	kpi := km.Data()
	// 0 for 100us, 2 for 200us, 1 for 100us
	assert.InDelta(t, 5.0/4.0, kpi.Gateway.AvgOccupied, 1e-9)
	assert.Equal(t, 2, kpi.Gateway.PeakOccupied)
	assert.Equal(t, 25.0, kpi.Gateway.TxPercentage)
	assert.Equal(t, uint64(1), kpi.Gateway.NumTx)
}

func TestKpiSaveFile(t *testing.T) {
	km := NewKpiManager(func() uint64 { return 5 })
	km.Start(0)
	km.OnTrace(gateway.TraceRecord{Kind: gateway.TraceRxInterfered, Frequency: 868.5, Sf: 12, RxPowerDbm: -120})

	fn := filepath.Join(t.TempDir(), "0_kpi.json")
	assert.Nil(t, km.SaveFile(fn))
	data, err := os.ReadFile(fn)
	assert.Nil(t, err)

	var parsed map[string]interface{}
	assert.Nil(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "ok", parsed["status"])
	freqs := parsed["frequencies"].(map[string]interface{})
	assert.Contains(t, freqs, FormatFrequency(868.5))

	assert.Error(t, km.SaveFile(filepath.Join(t.TempDir(), "missing", "x.json")))
}
