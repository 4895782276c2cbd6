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
	"fmt"
	"io/fs"
	"math"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/lorasim/lora-ns/event"
	"github.com/lorasim/lora-ns/gateway"
	"github.com/lorasim/lora-ns/interference"
	"github.com/lorasim/lora-ns/logger"
	"github.com/lorasim/lora-ns/metrics"
	"github.com/lorasim/lora-ns/prng"
	"github.com/lorasim/lora-ns/progctx"
	"github.com/lorasim/lora-ns/radiomodel"
	. "github.com/lorasim/lora-ns/types"
)

// runSliceUs is how much simulated time Run advances between checks for cancellation.
const runSliceUs uint64 = 10_000_000

// Stats counts simulation-level activity that the gateway pool does not see.
type Stats struct {
	Uplinks           uint64
	NotListening      uint64
	Downlinks         uint64
	DownlinksDropped  uint64
	LossModelWarnings uint64
}

// Simulation runs a population of devices against one gateway. All exported methods are safe to call from
// other goroutines; simulation callbacks run while the simulation lock is held.
type Simulation struct {
	mu        sync.Mutex
	ctx       *progctx.ProgCtx
	cfg       *Config
	sched     *event.Scheduler
	phy       *gateway.GatewayPhy
	devices   []*Device
	channels  []FrequencyMhz
	kpiMgr    *KpiManager
	collector *metrics.Collector
	sinks     gateway.MultiSink
	downlink  *prng.UniformVariable
	stats     Stats
	endUs     uint64
	stopped   bool
}

func NewSimulation(ctx *progctx.ProgCtx, cfg *Config) (*Simulation, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prng.Init(cfg.Seed)

	model, err := cfg.newLossModel()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		ctx:      ctx,
		cfg:      cfg,
		sched:    event.NewScheduler(),
		channels: cfg.Channels(),
		endUs:    cfg.DurationUs(),
	}
	model.SetWarningHook(s.onLossModelWarning)
	gwPos := radiomodel.Vector3{X: cfg.Gateway.Position[0], Y: cfg.Gateway.Position[1], Z: cfg.Gateway.Position[2]}
	s.phy = gateway.NewGatewayPhy(s.sched, model, cfg.newDecider(), gwPos)
	s.phy.Pool().Configure(cfg.Gateway.Paths...)
	s.phy.SetRxOkCallback(s.onRxOk)
	s.phy.SetTxDoneCallback(s.onTxDone)

	logger.SetTimeSource(s.sched.SyncNow)
	s.kpiMgr = NewKpiManager(s.sched.Now)
	s.sinks = gateway.MultiSink{s.kpiMgr}
	s.phy.SetTraceSink(s.sinks)

	stream := model.AssignStreams(0)
	s.downlink = prng.NewUniformVariable(0, 1)
	s.downlink.SetStream(stream)
	stream++
	stream = s.createDevices(stream)
	logger.Debugf("simulation %d created: %d devices, %d paths, %d prng streams", cfg.Id, len(s.devices),
		len(cfg.Gateway.Paths), stream)

	s.kpiMgr.Start(0)
	for _, d := range s.devices {
		s.scheduleUplink(d)
	}
	return s, nil
}

// createDevices places the configured devices uniformly on a disc around the gateway.
func (s *Simulation) createDevices(stream int64) int64 {
	dc := &s.cfg.Devices
	placement := prng.NewUniformVariable(0, 1)
	placement.SetStream(stream)
	stream++
	sfPick := prng.NewUniformVariable(0, 1)
	sfPick.SetStream(stream)
	stream++

	gw := s.phy.GetPosition().GetVector()
	for i := 0; i < dc.Count; i++ {
		r := dc.RadiusMeters * math.Sqrt(placement.Value())
		theta := 2 * math.Pi * placement.Value()
		pos := radiomodel.Vector3{X: gw.X + r*math.Cos(theta), Y: gw.Y + r*math.Sin(theta), Z: gw.Z}

		cfg := &deviceConfig{
			Id:           i + 1,
			Position:     pos,
			TxPowerDbm:   dc.TxPowerDbm,
			PayloadBytes: dc.PayloadBytes,
			PeriodUs:     dc.PeriodSec * 1e6,
		}
		if len(dc.SpreadingFactors) > 0 {
			idx := int(sfPick.Value() * float64(len(dc.SpreadingFactors)))
			if idx >= len(dc.SpreadingFactors) {
				idx = len(dc.SpreadingFactors) - 1
			}
			cfg.Sf = SpreadingFactor(dc.SpreadingFactors[idx])
		} else {
			cfg.Sf = s.lowestReachingSf(pos, dc.TxPowerDbm)
		}

		d, used := newDevice(cfg, stream)
		stream += used
		s.devices = append(s.devices, d)
		logger.Tracef("%v", d)
	}
	return stream
}

// lowestReachingSf returns the lowest spreading factor whose received power at the gateway is above the
// gateway sensitivity, or SF12.
func (s *Simulation) lowestReachingSf(pos radiomodel.Position, txPower DbValue) SpreadingFactor {
	for _, sf := range AllSpreadingFactors() {
		tx := gateway.Transmission{Sf: sf, TxPowerDbm: txPower, Position: pos}
		if s.phy.RxPower(&tx) >= GatewaySensitivity(sf) {
			return sf
		}
	}
	return MaxSpreadingFactor
}

func (s *Simulation) scheduleUplink(d *Device) {
	s.sched.Schedule(d.nextIntervalUs(), func() {
		s.sendUplink(d)
		s.scheduleUplink(d)
	})
}

func (s *Simulation) sendUplink(d *Device) {
	tx := gateway.Transmission{
		SenderId:   d.Id,
		Frequency:  d.pickChannel(s.channels),
		Sf:         d.Sf,
		TxPowerDbm: d.TxPowerDbm,
		DurationUs: d.AirtimeUs(),
		Position:   d.Position,
	}
	s.startReceive(tx)
}

func (s *Simulation) startReceive(tx gateway.Transmission) (gateway.RxResult, DbValue) {
	s.stats.Uplinks++
	res, rxPower := s.phy.StartReceive(tx)
	if res == gateway.RxNotListening {
		s.stats.NotListening++
	}
	return res, rxPower
}

func (s *Simulation) onRxOk(evt interference.Event) {
	if s.cfg.Gateway.DownlinkProb <= 0 || s.downlink.Value() >= s.cfg.Gateway.DownlinkProb {
		return
	}
	durationUs := UplinkAirtime(evt.Sf, s.cfg.Gateway.DownlinkPayload)
	s.sched.Schedule(secToUs(s.cfg.Gateway.DownlinkDelaySec), func() {
		s.send(durationUs, s.cfg.Gateway.DownlinkFrequency)
	})
}

func (s *Simulation) send(durationUs uint64, f FrequencyMhz) bool {
	if !s.phy.Send(durationUs, f) {
		s.stats.DownlinksDropped++
		return false
	}
	s.stats.Downlinks++
	s.kpiMgr.OnTransmit(durationUs)
	s.collector.SetTransmitting(true)
	return true
}

func (s *Simulation) onTxDone() {
	s.collector.SetTransmitting(false)
}

func (s *Simulation) onLossModelWarning(w radiomodel.Warning) {
	s.stats.LossModelWarnings++
}

// SetMetricsCollector exports gateway telemetry to a Prometheus collector.
func (s *Simulation) SetMetricsCollector(c *metrics.Collector) {
	s.AddTraceSink(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collector = c
	c.SetTransmitting(s.phy.IsTransmitting())
}

// AddTraceSink adds a receiver of gateway trace records.
func (s *Simulation) AddTraceSink(sink gateway.TraceSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
	s.phy.SetTraceSink(s.sinks)
}

// Go advances the simulation by durationUs.
func (s *Simulation) Go(durationUs uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goLocked(durationUs)
}

func (s *Simulation) goLocked(durationUs uint64) {
	target := Ever
	if durationUs < Ever-s.sched.Now() {
		target = s.sched.Now() + durationUs
	}
	s.sched.RunUntil(target)
}

// Run advances the simulation to the configured end, or until the program context is cancelled.
func (s *Simulation) Run() {
	for {
		if s.ctx != nil && s.ctx.Err() != nil {
			logger.Infof("simulation run interrupted at %d us", s.Now())
			return
		}
		s.mu.Lock()
		now := s.sched.Now()
		if now >= s.endUs {
			s.mu.Unlock()
			logger.Notef("simulation %d reached its end at %d us", s.cfg.Id, now)
			return
		}
		s.goLocked(min(runSliceUs, s.endUs-now))
		s.mu.Unlock()
	}
}

// Stop ends the KPI period. The simulation can still be inspected afterwards.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.kpiMgr.Stop()
	logger.Debugf("simulation stopped at %d us", s.sched.Now())
}

func (s *Simulation) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Now returns the simulation time in us.
func (s *Simulation) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Now()
}

// EndTimeUs returns the time at which Run stops.
func (s *Simulation) EndTimeUs() uint64 {
	return s.endUs
}

// Transmit injects an uplink at the current time. It returns the reception result and the rx power that
// the gateway computed for the uplink, or UndefinedDbValue if the gateway does not listen on its frequency.
func (s *Simulation) Transmit(tx gateway.Transmission) (gateway.RxResult, DbValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startReceive(tx)
}

// Send starts a gateway transmission at the current time.
func (s *Simulation) Send(durationUs uint64, f FrequencyMhz) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(durationUs, f)
}

func (s *Simulation) AddReceptionPath(f FrequencyMhz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phy.AddReceptionPath(f)
	s.channels = s.pathChannels()
}

func (s *Simulation) ResetReceptionPaths() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phy.ResetReceptionPaths()
	s.channels = nil
}

func (s *Simulation) pathChannels() []FrequencyMhz {
	var res []FrequencyMhz
	seen := map[FrequencyMhz]bool{}
	for _, rp := range s.phy.Pool().Paths() {
		if f := rp.GetFrequency(); !seen[f] {
			seen[f] = true
			res = append(res, f)
		}
	}
	return res
}

// PathInfo is a snapshot of one reception path.
type PathInfo struct {
	Frequency FrequencyMhz
	Available bool
	Sf        SpreadingFactor
}

// Paths returns a snapshot of the reception paths.
func (s *Simulation) Paths() []PathInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []PathInfo
	for _, rp := range s.phy.Pool().Paths() {
		res = append(res, PathInfo{Frequency: rp.GetFrequency(), Available: rp.IsAvailable(), Sf: rp.GetSpreadingFactor()})
	}
	return res
}

// Counters returns the pool counters and the simulation counters.
func (s *Simulation) Counters() (gateway.PoolStats, Stats, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phy.Pool().Stats(), s.stats, s.phy.Pool().OccupiedCount()
}

func (s *Simulation) IsTransmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phy.IsTransmitting()
}

// LossModelInfo returns the name and ambient spreading factor of the loss model.
func (s *Simulation) LossModelInfo() (string, SpreadingFactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.phy.GetLossModel()
	return m.GetName(), m.GetSpreadingFactor()
}

// SetLossModel replaces the loss model by a default one of the given name.
func (s *Simulation) SetLossModel(name string) error {
	model, err := radiomodel.NewLossModel(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	model.SetWarningHook(s.onLossModelWarning)
	model.AssignStreams(0)
	s.phy.SetLossModel(model)
	return nil
}

// SetLossModelSpreadingFactor sets the ambient spreading factor of the loss model.
func (s *Simulation) SetLossModelSpreadingFactor(sf SpreadingFactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phy.GetLossModel().SetSpreadingFactor(sf)
}

// Kpi returns the KPIs calculated up to now.
func (s *Simulation) Kpi() Kpi {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.kpiMgr.Data()
}

// SaveKpi writes the KPI file. An empty file name selects the configured KPI file, or <output>/<id>_kpi.json.
func (s *Simulation) SaveKpi(fn string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == "" {
		fn = s.cfg.KpiFile
	}
	if fn == "" {
		if err := s.createOutputDir(); err != nil {
			return "", err
		}
		fn = s.getDefaultKpiFileName()
	}
	return fn, s.kpiMgr.SaveFile(fn)
}

func (s *Simulation) GetConfig() *Config {
	return s.cfg
}

func (s *Simulation) Devices() []*Device {
	return s.devices
}

func (s *Simulation) getDefaultKpiFileName() string {
	return fmt.Sprintf("%s/%d_kpi.json", s.cfg.OutputDir, s.cfg.Id)
}

func (s *Simulation) createOutputDir() error {
	err := os.MkdirAll(s.cfg.OutputDir, 0775)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return errors.Wrapf(err, "creating output directory %s failed", s.cfg.OutputDir)
	}
	return nil
}
