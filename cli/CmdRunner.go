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

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/lorasim/lora-ns/gateway"
	"github.com/lorasim/lora-ns/logger"
	"github.com/lorasim/lora-ns/progctx"
	"github.com/lorasim/lora-ns/simulation"
	. "github.com/lorasim/lora-ns/types"
)

const (
	Prompt = "> "

	// cliSenderId marks transmissions injected with the 'tx' command.
	cliSenderId NodeId = 0
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// RunCommand parses and executes one command line, writing the result to output. The returned error is
// non-nil once the program context has ended, e.g. after 'exit'.
func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}
		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

// Commands returns the names of all documented commands.
func (rt *CmdRunner) Commands() []string {
	return append([]string(nil), rt.help.topics...)
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Tx != nil {
		rt.executeTx(cc, cmd.Tx)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Path != nil {
		rt.executePath(cc, cmd.Path)
	} else if cmd.Paths != nil {
		rt.executePaths(cc)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.LossModel != nil {
		rt.executeLossModel(cc, cmd.LossModel)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Time != nil {
		rt.executeTime(cc)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// parseDurationUs parses a duration such as "10", "250ms" or "1.5s". A missing unit means seconds.
func parseDurationUs(s string) (uint64, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, err = time.ParseDuration(s + "s")
		if err != nil {
			return 0, errors.Errorf("could not parse time duration: %s", s)
		}
	}
	if d < 0 {
		return 0, errors.Errorf("negative time duration: %s", s)
	}
	return uint64(d / time.Microsecond), nil
}

func parseSpreadingFactor(p *SfParam) (SpreadingFactor, error) {
	sf := SpreadingFactor(p.Val)
	if p.Val < 0 || p.Val > 255 || !sf.IsValid() {
		return UnsetSpreadingFactor, errors.Errorf("invalid spreading factor: %d", p.Val)
	}
	return sf, nil
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Ever != nil {
		rt.sim.Run()
		return
	}
	durUs, err := parseDurationUs(cmd.Time)
	if err != nil {
		cc.error(err)
		return
	}
	rt.sim.Go(durUs)
}

func (rt *CmdRunner) executeTx(cc *CommandContext, cmd *TxCmd) {
	sf, err := parseSpreadingFactor(&cmd.Sf)
	if err != nil {
		cc.error(err)
		return
	}
	cfg := rt.sim.GetConfig()
	tx := gateway.Transmission{
		SenderId:   cliSenderId,
		Frequency:  cmd.Frequency,
		Sf:         sf,
		TxPowerDbm: cfg.Devices.TxPowerDbm,
		DurationUs: simulation.UplinkAirtime(sf, cfg.Devices.PayloadBytes),
		Distance:   1,
	}
	for _, p := range cmd.Params {
		if p.Dist != nil {
			if *p.Dist < 0 {
				cc.errorf("negative distance: %v", *p.Dist)
				return
			}
			tx.Distance = *p.Dist
		} else if p.Power != nil {
			pw, err := strconv.ParseFloat(*p.Power, 64)
			if err != nil {
				cc.error(errors.Wrapf(err, "invalid tx power"))
				return
			}
			tx.TxPowerDbm = pw
		} else if p.Duration != nil {
			if tx.DurationUs, err = parseDurationUs(*p.Duration); err != nil {
				cc.error(err)
				return
			}
		}
	}
	if tx.DurationUs == 0 {
		cc.errorf("zero transmission duration")
		return
	}

	res, rxPower := rt.sim.Transmit(tx)
	if rxPower == UndefinedDbValue {
		cc.outputf("%s airtime=%d us\n", res, tx.DurationUs)
		return
	}
	cc.outputf("%s rx=%.1f dBm airtime=%d us\n", res, rxPower, tx.DurationUs)
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	durUs, err := parseDurationUs(cmd.Duration)
	if err != nil {
		cc.error(err)
		return
	}
	f := rt.sim.GetConfig().Gateway.DownlinkFrequency
	if cmd.Frequency != nil {
		f = *cmd.Frequency
	}
	if durUs == 0 {
		cc.errorf("zero transmission duration")
		return
	}
	if !rt.sim.Send(durUs, f) {
		cc.errorf("gateway is already transmitting")
	}
}

func (rt *CmdRunner) executePath(cc *CommandContext, cmd *PathCmd) {
	if cmd.Reset != nil {
		rt.sim.ResetReceptionPaths()
		return
	}
	for _, f := range cmd.Add.Frequencies {
		if f <= 0 {
			cc.errorf("invalid frequency: %v", f)
			return
		}
	}
	for _, f := range cmd.Add.Frequencies {
		rt.sim.AddReceptionPath(f)
	}
}

func (rt *CmdRunner) executePaths(cc *CommandContext) {
	for i, p := range rt.sim.Paths() {
		if p.Available {
			cc.outputf("%-3d %-9s free\n", i, FormatFrequency(p.Frequency))
		} else {
			cc.outputf("%-3d %-9s busy %s\n", i, FormatFrequency(p.Frequency), p.Sf)
		}
	}
}

func (rt *CmdRunner) executeCounters(cc *CommandContext) {
	pool, stats, occupied := rt.sim.Counters()
	counters := []struct {
		name string
		val  uint64
	}{
		{"Uplinks", stats.Uplinks},
		{"NotListening", stats.NotListening},
		{"PathsAcquired", pool.Acquired},
		{"PathsReleased", pool.Released},
		{"RxBlockedByTx", pool.BlockedByTx},
		{"RxNoFreePath", pool.NoFreePath},
		{"Downlinks", stats.Downlinks},
		{"DownlinksDropped", stats.DownlinksDropped},
		{"LossModelWarnings", stats.LossModelWarnings},
	}
	for _, c := range counters {
		cc.outputf("%-24s %s\n", c.name, humanize.Comma(int64(c.val)))
	}
	cc.outputf("%-24s %d\n", "PathsOccupied", occupied)
	cc.outputf("%-24s %d\n", "PathsPeakOccupied", pool.PeakOccupied)
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	if cmd.Save != nil {
		fn := ""
		if cmd.Filename != nil {
			fn = unquote(*cmd.Filename)
		}
		saved, err := rt.sim.SaveKpi(fn)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%s\n", saved)
		return
	}

	kpi := rt.sim.Kpi()
	cc.outputf("period   %s (%s simulated)\n", kpi.Status,
		humanize.FtoaWithDigits(kpi.TimeSec.PeriodSec, 3)+" s")
	cc.outputf("gateway  peak=%d avg=%.2f paths, tx=%s (%.2f%%)\n", kpi.Gateway.PeakOccupied,
		kpi.Gateway.AvgOccupied, humanize.Comma(int64(kpi.Gateway.NumTx)), kpi.Gateway.TxPercentage)
	outputKpiReception(cc, "total", kpi.Total)
	for _, key := range sortedKeys(kpi.Frequencies) {
		outputKpiReception(cc, key, kpi.Frequencies[key])
	}
	for _, key := range sortedKeys(kpi.SpreadingFactors) {
		outputKpiReception(cc, key, kpi.SpreadingFactors[key])
	}
}

func outputKpiReception(cc *CommandContext, name string, r *simulation.KpiReception) {
	if r == nil {
		return
	}
	cc.outputf("%-8s attempts=%s ok=%s (%.1f%%) interfered=%s undersens=%s blocked=%s nopath=%s interrupted=%s\n",
		name, humanize.Comma(int64(r.Attempts)), humanize.Comma(int64(r.Success)), r.SuccessPercent,
		humanize.Comma(int64(r.Interfered)), humanize.Comma(int64(r.UnderSensitivity)),
		humanize.Comma(int64(r.BlockedByTx)), humanize.Comma(int64(r.NoFreePath)),
		humanize.Comma(int64(r.Interrupted)))
}

func sortedKeys(m map[string]*simulation.KpiReception) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

func (rt *CmdRunner) executeLossModel(cc *CommandContext, cmd *LossModelCmd) {
	if len(cmd.Model) > 0 {
		if err := rt.sim.SetLossModel(cmd.Model); err != nil {
			cc.error(err)
			return
		}
	}
	if p := cmd.SpreadingFactor(); p != nil {
		sf, err := parseSpreadingFactor(p)
		if err != nil {
			cc.error(err)
			return
		}
		rt.sim.SetLossModelSpreadingFactor(sf)
	}
	name, sf := rt.sim.LossModelInfo()
	cc.outputf("%s %s\n", name, sf)
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	cc.outputf("%d\n", rt.sim.Now())
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.sim.Stop()
	rt.ctx.Cancel("exit")
}
