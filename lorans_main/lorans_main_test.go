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

package lorans_main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lorasim/lora-ns/logger"
	"github.com/lorasim/lora-ns/progctx"
	"github.com/lorasim/lora-ns/simulation"
)

func TestParseArgs(t *testing.T) {
	args, err := parseArgs(nil)
	assert.Nil(t, err)
	assert.Equal(t, "warn", args.LogLevel)
	assert.False(t, args.SeedSet)
	assert.False(t, args.Batch)

	args, err = parseArgs([]string{"-batch", "-seed", "42", "-kpi", "out.json", "-metrics", "localhost:0",
		"-logfile", "lorans.log"})
	assert.Nil(t, err)
	assert.Equal(t, "lorans.log", args.LogFile)
	assert.True(t, args.Batch)
	assert.True(t, args.SeedSet)
	assert.Equal(t, int64(42), args.Seed)
	assert.Equal(t, "out.json", args.KpiFile)
	assert.Equal(t, "localhost:0", args.MetricsAddr)

	_, err = parseArgs([]string{"-nosuchflag"})
	assert.NotNil(t, err)
	_, err = parseArgs([]string{"stray"})
	assert.NotNil(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(&MainArgs{})
	assert.Nil(t, err)
	assert.Equal(t, simulation.DefaultConfig().Gateway.Paths, cfg.Gateway.Paths)

	fn := filepath.Join(t.TempDir(), "scenario.yaml")
	assert.Nil(t, os.WriteFile(fn, []byte("id: 7\nseed: 3\nduration: 60\n"), 0644))
	cfg, err = loadConfig(&MainArgs{Scenario: fn, Seed: 11, SeedSet: true})
	assert.Nil(t, err)
	assert.Equal(t, 7, cfg.Id)
	assert.Equal(t, int64(11), cfg.Seed)

	_, err = loadConfig(&MainArgs{Scenario: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.NotNil(t, err)
}

func TestRunBatch(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.DurationSec = 120
	cfg.OutputDir = t.TempDir()
	cfg.Devices.Count = 20
	cfg.Devices.PeriodSec = 10

	ctx := progctx.New(context.Background())
	sim, err := simulation.NewSimulation(ctx, cfg)
	assert.Nil(t, err)

	var out bytes.Buffer
	kpiFile := filepath.Join(cfg.OutputDir, "batch_kpi.json")
	assert.Nil(t, runBatch(ctx, sim, kpiFile, &out))
	assert.Contains(t, out.String(), "Simulated 120 s")
	assert.Contains(t, out.String(), "Uplinks:")
	assert.Contains(t, out.String(), "KPI saved to "+kpiFile)
	assert.FileExists(t, kpiFile)
	assert.True(t, sim.IsStopped())
}

func TestRunBatchCancelled(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	ctx := progctx.New(context.Background())
	sim, err := simulation.NewSimulation(ctx, cfg)
	assert.Nil(t, err)
	ctx.Cancel(nil)

	var out bytes.Buffer
	assert.Equal(t, context.Canceled, runBatch(ctx, sim, "", &out))
	assert.Empty(t, out.String())
	assert.Less(t, sim.Now(), sim.EndTimeUs())
}

func TestMainBatch(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "scenario.yaml")
	scenario := "duration: 30\noutput: " + dir + "\ndevices:\n  count: 5\n  period: 5\n"
	assert.Nil(t, os.WriteFile(fn, []byte(scenario), 0644))

	ctx := progctx.New(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Main(ctx, []string{"-batch", "-scenario", fn, "-log", "off"}, nil)
	}()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("batch run did not finish")
	}
	assert.FileExists(t, filepath.Join(dir, "0_kpi.json"))
	assert.NotNil(t, ctx.Err())
}

func TestMainBatchLogFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "lorans.log")
	t.Cleanup(func() {
		logger.SetLevel(logger.DefaultLevel)
		logger.SetOutput([]string{"stderr"})
	})

	ctx := progctx.New(context.Background())
	argv := []string{"-batch", "-log", "note", "-logfile", logFile, "-kpi", filepath.Join(dir, "kpi.json")}
	assert.Nil(t, Main(ctx, argv, nil))

	data, err := os.ReadFile(logFile)
	assert.Nil(t, err)
	assert.Contains(t, string(data), "reached its end")
}
