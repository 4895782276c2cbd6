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

type KpiTimeUs struct {
	StartTimeUs uint64 `json:"start"`
	EndTimeUs   uint64 `json:"end"`
	PeriodUs    uint64 `json:"duration"`
}

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start"`
	EndTimeSec   float64 `json:"end"`
	PeriodSec    float64 `json:"duration"`
}

// KpiReception aggregates reception outcomes for one frequency, one spreading factor, or all of them.
type KpiReception struct {
	Attempts         uint64  `json:"attempts"`
	Success          uint64  `json:"success"`
	Interfered       uint64  `json:"interfered"`
	UnderSensitivity uint64  `json:"under_sensitivity"`
	BlockedByTx      uint64  `json:"blocked_by_tx"`
	NoFreePath       uint64  `json:"no_free_path"`
	Interrupted      uint64  `json:"interrupted"`
	SuccessPercent   float64 `json:"success_percent"`
	RxPowerMeanDbm   float64 `json:"rx_power_mean_dbm"`
	RxPowerStdDevDb  float64 `json:"rx_power_stddev_db"`

	rxPowers []float64
}

type KpiGateway struct {
	PeakOccupied int     `json:"peak_occupied_paths"`
	AvgOccupied  float64 `json:"avg_occupied_paths"`
	TxTimeUs     uint64  `json:"tx_time_us"`
	TxPercentage float64 `json:"tx_percent"`
	NumTx        uint64  `json:"tx_count"`
}

type Kpi struct {
	FileTime         string                   `json:"created"`
	Status           string                   `json:"status"`
	TimeUs           KpiTimeUs                `json:"time_us"`
	TimeSec          KpiTimeSec               `json:"time_sec"`
	Gateway          KpiGateway               `json:"gateway"`
	Total            *KpiReception            `json:"total"`
	Frequencies      map[string]*KpiReception `json:"frequencies"`
	SpreadingFactors map[string]*KpiReception `json:"sf"`
}
