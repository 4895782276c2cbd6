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

package gateway

import (
	"github.com/lorasim/lora-ns/event"
	"github.com/lorasim/lora-ns/interference"
	"github.com/lorasim/lora-ns/logger"
	"github.com/lorasim/lora-ns/radiomodel"
	. "github.com/lorasim/lora-ns/types"
)

// Transmission is an uplink arriving at the gateway. If Position is nil, Distance (meters) is used instead.
type Transmission struct {
	SenderId   NodeId
	Frequency  FrequencyMhz
	Sf         SpreadingFactor
	TxPowerDbm DbValue
	DurationUs uint64
	Position   radiomodel.Position
	Distance   float64
}

type RxResult int

const (
	RxStarted RxResult = iota
	RxNotListening
	RxBlockedByTx
	RxNoFreePath
	RxUnderSensitivity
)

func (r RxResult) String() string {
	switch r {
	case RxStarted:
		return "started"
	case RxNotListening:
		return "not_listening"
	case RxBlockedByTx:
		return "blocked_by_tx"
	case RxNoFreePath:
		return "no_free_path"
	case RxUnderSensitivity:
		return "under_sensitivity"
	default:
		return "unknown"
	}
}

// GatewayPhy is the physical layer of a half-duplex multi-demodulator gateway. It runs in the scheduler's
// goroutine.
type GatewayPhy struct {
	sched   *event.Scheduler
	model   radiomodel.LossModel
	decider interference.Decider
	tracker *interference.Tracker
	pool    *ReceptionPathPool
	pos     radiomodel.Position

	txTimer     event.TimerId
	txFrequency FrequencyMhz
	onRxOk      func(evt interference.Event)
	onTxDone    func()
}

func NewGatewayPhy(sched *event.Scheduler, model radiomodel.LossModel, decider interference.Decider,
	pos radiomodel.Position) *GatewayPhy {
	logger.AssertNotNil(sched)
	logger.AssertNotNil(model)
	if decider == nil {
		decider = interference.NoInterference{}
	}
	if pos == nil {
		pos = radiomodel.Vector3{}
	}
	gp := &GatewayPhy{
		sched:       sched,
		model:       model,
		decider:     decider,
		tracker:     interference.NewTracker(),
		pool:        NewReceptionPathPool(),
		pos:         pos,
		txTimer:     event.InvalidTimerId,
		txFrequency: InvalidFrequency,
	}
	gp.pool.SetClock(sched.Now)
	gp.pool.SetTimerCanceller(sched)
	return gp
}

func (gp *GatewayPhy) Pool() *ReceptionPathPool {
	return gp.pool
}

func (gp *GatewayPhy) Tracker() *interference.Tracker {
	return gp.tracker
}

func (gp *GatewayPhy) GetLossModel() radiomodel.LossModel {
	return gp.model
}

func (gp *GatewayPhy) SetLossModel(model radiomodel.LossModel) {
	logger.AssertNotNil(model)
	gp.model = model
}

func (gp *GatewayPhy) GetPosition() radiomodel.Position {
	return gp.pos
}

func (gp *GatewayPhy) SetTraceSink(sink TraceSink) {
	gp.pool.SetTraceSink(sink)
}

// SetRxOkCallback sets a function called after each successful reception.
func (gp *GatewayPhy) SetRxOkCallback(fn func(evt interference.Event)) {
	gp.onRxOk = fn
}

// SetTxDoneCallback sets a function called when a transmission ends.
func (gp *GatewayPhy) SetTxDoneCallback(fn func()) {
	gp.onTxDone = fn
}

func (gp *GatewayPhy) AddReceptionPath(f FrequencyMhz) {
	gp.pool.AddReceptionPath(f)
}

func (gp *GatewayPhy) IsOnFrequency(f FrequencyMhz) bool {
	return gp.pool.IsOnFrequency(f)
}

func (gp *GatewayPhy) IsTransmitting() bool {
	return gp.pool.IsTransmitting()
}

// TxFrequency returns the frequency of the ongoing transmission, or InvalidFrequency.
func (gp *GatewayPhy) TxFrequency() FrequencyMhz {
	return gp.txFrequency
}

// RxPower computes the received power of a transmission at the gateway. The ambient spreading factor of the
// loss model is left unchanged.
func (gp *GatewayPhy) RxPower(tx *Transmission) DbValue {
	d := tx.Distance
	if tx.Position != nil {
		d = tx.Position.GetDistanceFrom(gp.pos)
	}
	return gp.model.CalcRxPower(tx.TxPowerDbm, tx.Sf, d)
}

// StartReceive handles the start of an uplink and returns the outcome together with the rx power computed for
// it. Transmissions on frequencies the gateway does not listen to are ignored and get UndefinedDbValue. All others
// are tracked as interferers for their whole air time, whether or not a path locks on them. A packet below the
// gateway sensitivity never locks a path.
func (gp *GatewayPhy) StartReceive(tx Transmission) (RxResult, DbValue) {
	if !gp.pool.IsOnFrequency(tx.Frequency) {
		logger.Tracef("gateway not listening on %s MHz", FormatFrequency(tx.Frequency))
		return RxNotListening, UndefinedDbValue
	}

	rxPower := gp.RxPower(&tx)
	evtId := gp.tracker.Add(interference.Event{
		StartUs:    gp.sched.Now(),
		DurationUs: tx.DurationUs,
		Frequency:  tx.Frequency,
		Sf:         tx.Sf,
		RxPowerDbm: rxPower,
		SenderId:   tx.SenderId,
	})
	gp.sched.Schedule(tx.DurationUs, func() {
		gp.tracker.Release(evtId)
	})

	if !gp.pool.IsTransmitting() && gp.pool.HasFreePath(tx.Frequency) && rxPower < GatewaySensitivity(tx.Sf) {
		gp.trace(TraceRxUnderSensitivity, tx.Frequency, tx.Sf, rxPower, evtId)
		return RxUnderSensitivity, rxPower
	}

	h, res := gp.pool.tryAcquire(tx.Frequency, tx.Sf, evtId, rxPower)
	switch res {
	case AcquireBlockedByTx:
		return RxBlockedByTx, rxPower
	case AcquireNoFreePath:
		return RxNoFreePath, rxPower
	}

	gp.tracker.Retain(evtId)
	timerId := gp.sched.Schedule(tx.DurationUs, func() {
		gp.endReceive(h, evtId)
	})
	gp.pool.Bind(h, evtId, timerId)
	logger.Debugf("rx started on %s MHz %s rx=%.1f dBm from %d", FormatFrequency(tx.Frequency), tx.Sf, rxPower,
		tx.SenderId)
	return RxStarted, rxPower
}

func (gp *GatewayPhy) endReceive(h PathHandle, evtId interference.EventId) {
	evt, ok := gp.tracker.Get(evtId)
	logger.AssertTrue(ok)

	destroyed := gp.decider.IsDestroyed(gp.tracker, evtId)
	// the timer already fired; clear it so Release does not cancel it
	gp.pool.Path(h).endReceive = event.InvalidTimerId
	gp.pool.Release(h)
	gp.tracker.Release(evtId)

	if destroyed {
		gp.trace(TraceRxInterfered, evt.Frequency, evt.Sf, evt.RxPowerDbm, evtId)
		return
	}
	gp.trace(TraceRxSuccess, evt.Frequency, evt.Sf, evt.RxPowerDbm, evtId)
	if gp.onRxOk != nil {
		gp.onRxOk(evt)
	}
}

// Send starts a downlink of the given duration. The gateway is half-duplex: receptions in progress are
// interrupted and no reception can start until the transmission ends. It returns false if the gateway is
// already transmitting.
func (gp *GatewayPhy) Send(durationUs uint64, f FrequencyMhz) bool {
	if gp.pool.IsTransmitting() {
		logger.Warnf("gateway already transmitting, dropping send on %s MHz", FormatFrequency(f))
		return false
	}

	for _, h := range gp.pool.LockedHandles() {
		rp := gp.pool.Path(h)
		evtId, sf, freq := rp.event, rp.sf, rp.frequency
		evt, _ := gp.tracker.Get(evtId)
		gp.pool.Release(h)
		gp.tracker.Release(evtId)
		gp.trace(TraceRxInterrupted, freq, sf, evt.RxPowerDbm, evtId)
	}

	gp.pool.BeginTransmit()
	gp.txFrequency = f
	gp.txTimer = gp.sched.Schedule(durationUs, gp.txFinished)
	logger.Debugf("gateway transmitting on %s MHz for %d us", FormatFrequency(f), durationUs)
	return true
}

func (gp *GatewayPhy) txFinished() {
	gp.pool.EndTransmit()
	gp.txTimer = event.InvalidTimerId
	gp.txFrequency = InvalidFrequency
	if gp.onTxDone != nil {
		gp.onTxDone()
	}
}

// ResetReceptionPaths removes all paths. Receptions in progress are dropped without an outcome.
func (gp *GatewayPhy) ResetReceptionPaths() {
	for _, h := range gp.pool.LockedHandles() {
		gp.tracker.Release(gp.pool.Path(h).event)
	}
	gp.pool.Reset()
}

func (gp *GatewayPhy) trace(kind TraceKind, f FrequencyMhz, sf SpreadingFactor, rxPower DbValue,
	evtId interference.EventId) {
	gp.pool.trace(TraceRecord{Kind: kind, Frequency: f, Sf: sf, RxPowerDbm: rxPower, EventId: evtId})
}
