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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lorasim/lora-ns/interference"
	"github.com/lorasim/lora-ns/prng"
	"github.com/lorasim/lora-ns/radiomodel"
	. "github.com/lorasim/lora-ns/types"
)

const (
	DefaultDurationSec         = 3600.0
	DefaultOutputDir           = "tmp"
	DefaultDownlinkFrequency   = 869.525
	DefaultDownlinkDelaySec    = 1.0
	DefaultDownlinkPayload     = 12
	DefaultDeviceCount         = 100
	DefaultDeviceRadius        = 1000.0
	DefaultDeviceTxPowerDbm    = 14.0
	DefaultDevicePeriodSec     = 600.0
	DefaultDevicePayload       = 20
	InterferenceNone           = "none"
	InterferenceCapture        = "capture"
	maxLoRaPayloadBytes        = 255
	defaultPathsPerGatewayUnit = 8
)

type Config struct {
	Id          int     `yaml:"id"`
	Seed        int64   `yaml:"seed"`
	DurationSec float64 `yaml:"duration"`
	OutputDir   string  `yaml:"output"`
	// KpiFile overrides the default KPI file name <output>/<id>_kpi.json.
	KpiFile      string             `yaml:"kpiFile,omitempty"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	LossModel    LossModelConfig    `yaml:"lossModel"`
	Interference InterferenceConfig `yaml:"interference"`
	Devices      DevicesConfig      `yaml:"devices"`
}

type GatewayConfig struct {
	Position [3]float64 `yaml:"pos"`
	// Paths holds one entry per demodulator; repeated frequencies add demodulators on that channel.
	Paths             []FrequencyMhz `yaml:"paths"`
	DownlinkProb      float64        `yaml:"downlinkProb"`
	DownlinkFrequency FrequencyMhz   `yaml:"downlinkFreq"`
	DownlinkDelaySec  float64        `yaml:"downlinkDelay"`
	DownlinkPayload   int            `yaml:"downlinkPayload"`
}

type LossModelConfig struct {
	Type     string  `yaml:"type"`
	Variable string  `yaml:"variable"`
	A        float64 `yaml:"a"`
	B        float64 `yaml:"b"`
}

type InterferenceConfig struct {
	Type        string  `yaml:"type"`
	ThresholdDb float64 `yaml:"threshold"`
}

type DevicesConfig struct {
	Count        int     `yaml:"count"`
	RadiusMeters float64 `yaml:"radius"`
	TxPowerDbm   DbValue `yaml:"txPower"`
	// SpreadingFactors lists the SFs devices pick from uniformly. Empty selects the lowest SF that reaches the
	// gateway above its sensitivity.
	SpreadingFactors []int   `yaml:"sf,flow,omitempty"`
	PeriodSec        float64 `yaml:"period"`
	PayloadBytes     int     `yaml:"payload"`
}

func DefaultConfig() *Config {
	paths := make([]FrequencyMhz, 0, defaultPathsPerGatewayUnit)
	for i := 0; i < defaultPathsPerGatewayUnit; i++ {
		paths = append(paths, DefaultChannels[i%len(DefaultChannels)])
	}
	return &Config{
		Id:          0,
		Seed:        int64(prng.DefaultRunSeed),
		DurationSec: DefaultDurationSec,
		OutputDir:   DefaultOutputDir,
		Gateway: GatewayConfig{
			Paths:             paths,
			DownlinkProb:      0.0,
			DownlinkFrequency: DefaultDownlinkFrequency,
			DownlinkDelaySec:  DefaultDownlinkDelaySec,
			DownlinkPayload:   DefaultDownlinkPayload,
		},
		LossModel: LossModelConfig{
			Type: radiomodel.LossModelCurveFit,
		},
		Interference: InterferenceConfig{
			Type:        InterferenceCapture,
			ThresholdDb: interference.DefaultCaptureThresholdDb,
		},
		Devices: DevicesConfig{
			Count:        DefaultDeviceCount,
			RadiusMeters: DefaultDeviceRadius,
			TxPowerDbm:   DefaultDeviceTxPowerDbm,
			PeriodSec:    DefaultDevicePeriodSec,
			PayloadBytes: DefaultDevicePayload,
		},
	}
}

// LoadConfig reads a YAML scenario file on top of the default configuration.
func LoadConfig(fn string) (*Config, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", fn)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", fn)
	}
	return cfg, nil
}

// ParseConfig parses YAML scenario data on top of the default configuration.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.DurationSec <= 0 {
		return errors.Errorf("duration must be positive, got %v", cfg.DurationSec)
	}
	if len(cfg.Gateway.Paths) == 0 {
		return errors.New("gateway needs at least one reception path")
	}
	for _, f := range cfg.Gateway.Paths {
		if f <= 0 {
			return errors.Errorf("invalid reception path frequency %v", f)
		}
	}
	if cfg.Gateway.DownlinkProb < 0 || cfg.Gateway.DownlinkProb > 1 {
		return errors.Errorf("downlink probability must be in [0,1], got %v", cfg.Gateway.DownlinkProb)
	}
	if cfg.Gateway.DownlinkDelaySec < 0 {
		return errors.Errorf("downlink delay must not be negative, got %v", cfg.Gateway.DownlinkDelaySec)
	}
	if cfg.Gateway.DownlinkPayload < 0 || cfg.Gateway.DownlinkPayload > maxLoRaPayloadBytes {
		return errors.Errorf("downlink payload must be in [0,%d], got %d", maxLoRaPayloadBytes, cfg.Gateway.DownlinkPayload)
	}
	if _, err := cfg.newLossModel(); err != nil {
		return err
	}
	switch cfg.Interference.Type {
	case InterferenceNone, InterferenceCapture:
	default:
		return errors.Errorf("unknown interference type: %s", cfg.Interference.Type)
	}

	d := &cfg.Devices
	if d.Count < 0 {
		return errors.Errorf("device count must not be negative, got %d", d.Count)
	}
	if d.RadiusMeters < 0 {
		return errors.Errorf("device radius must not be negative, got %v", d.RadiusMeters)
	}
	if d.Count > 0 && d.PeriodSec <= 0 {
		return errors.Errorf("device period must be positive, got %v", d.PeriodSec)
	}
	if d.PayloadBytes < 0 || d.PayloadBytes > maxLoRaPayloadBytes {
		return errors.Errorf("device payload must be in [0,%d], got %d", maxLoRaPayloadBytes, d.PayloadBytes)
	}
	for _, sf := range d.SpreadingFactors {
		if sf < int(MinSpreadingFactor) || sf > int(MaxSpreadingFactor) {
			return errors.Errorf("invalid spreading factor %d", sf)
		}
	}
	return nil
}

// Channels returns the distinct path frequencies in first-seen order.
func (cfg *Config) Channels() []FrequencyMhz {
	var res []FrequencyMhz
	seen := map[FrequencyMhz]bool{}
	for _, f := range cfg.Gateway.Paths {
		if !seen[f] {
			seen[f] = true
			res = append(res, f)
		}
	}
	return res
}

// DurationUs returns the configured run length in us.
func (cfg *Config) DurationUs() uint64 {
	return secToUs(cfg.DurationSec)
}

// newLossModel creates the configured loss model.
func (cfg *Config) newLossModel() (radiomodel.LossModel, error) {
	model, err := radiomodel.NewLossModel(cfg.LossModel.Type)
	if err != nil {
		return nil, err
	}
	if rm, ok := model.(*radiomodel.RandomLossModel); ok && cfg.LossModel.Variable != "" {
		v, err := prng.NewRandomVariable(cfg.LossModel.Variable, cfg.LossModel.A, cfg.LossModel.B)
		if err != nil {
			return nil, errors.Wrap(err, "loss model variable")
		}
		rm.SetVariable(v)
	}
	return model, nil
}

func (cfg *Config) newDecider() interference.Decider {
	if cfg.Interference.Type == InterferenceNone {
		return interference.NoInterference{}
	}
	return &interference.CoSfCaptureDecider{ThresholdDb: cfg.Interference.ThresholdDb}
}

func secToUs(sec float64) uint64 {
	if sec <= 0 {
		return 0
	}
	return uint64(sec*1e6 + 0.5)
}
