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
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lorasim/lora-ns/cli"
	"github.com/lorasim/lora-ns/logger"
	"github.com/lorasim/lora-ns/metrics"
	"github.com/lorasim/lora-ns/progctx"
	"github.com/lorasim/lora-ns/simulation"
)

type MainArgs struct {
	Scenario    string
	LogLevel    string
	LogFile     string
	Seed        int64
	SeedSet     bool
	MetricsAddr string
	Batch       bool
	KpiFile     string
	HistoryFile string
}

func parseArgs(argv []string) (*MainArgs, error) {
	args := &MainArgs{}
	fs := flag.NewFlagSet("lorans", flag.ContinueOnError)
	fs.StringVar(&args.Scenario, "scenario", "", "scenario YAML file; the built-in EU868 scenario is used if empty.")
	fs.StringVar(&args.LogLevel, "log", "warn", "set logging level: trace, debug, info, note, warn, error, off.")
	fs.StringVar(&args.LogFile, "logfile", "", "also write the log to this file.")
	fs.Int64Var(&args.Seed, "seed", 0, "override the scenario's random seed (0 selects a time-based seed).")
	fs.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics at this address, e.g. localhost:9100.")
	fs.BoolVar(&args.Batch, "batch", false, "run the scenario to its end without CLI and print a summary.")
	fs.StringVar(&args.KpiFile, "kpi", "", "KPI output file; defaults to <output>/<id>_kpi.json.")
	fs.StringVar(&args.HistoryFile, "history", "", "CLI history file.")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			args.SeedSet = true
		}
	})
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", fs.Args())
	}
	return args, nil
}

func loadConfig(args *MainArgs) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if args.Scenario != "" {
		var err error
		if cfg, err = simulation.LoadConfig(args.Scenario); err != nil {
			return nil, err
		}
	}
	if args.SeedSet {
		cfg.Seed = args.Seed
	}
	return cfg, nil
}

// Main runs the simulator with the command-line arguments in argv, either as interactive CLI or in batch mode.
func Main(ctx *progctx.ProgCtx, argv []string, cliOptions *cli.CliOptions) error {
	args, err := parseArgs(argv)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}
	level, err := logger.ParseLevelString(args.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if args.LogFile != "" {
		logger.SetOutput([]string{"stderr", args.LogFile})
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	handleSignals(ctx)

	sim, err := simulation.NewSimulation(ctx, cfg)
	if err != nil {
		return err
	}
	if args.MetricsAddr != "" {
		if err = serveMetrics(ctx, sim, args.MetricsAddr); err != nil {
			return err
		}
	}

	if args.Batch {
		err = runBatch(ctx, sim, args.KpiFile, os.Stdout)
	} else {
		err = runConsole(ctx, sim, args, cliOptions)
	}
	ctx.Cancel(err)
	logger.Debugf("waiting for lorans to stop gracefully ...")
	ctx.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runBatch(ctx *progctx.ProgCtx, sim *simulation.Simulation, kpiFile string, out io.Writer) error {
	start := time.Now()
	sim.Run()
	sim.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	printSummary(out, sim, time.Since(start))
	fn, err := sim.SaveKpi(kpiFile)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "KPI saved to %s\n", fn)
	return nil
}

func runConsole(ctx *progctx.ProgCtx, sim *simulation.Simulation, args *MainArgs, cliOptions *cli.CliOptions) error {
	rt := cli.NewCmdRunner(ctx, sim)
	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
	}
	cliOptions.HistoryFile = args.HistoryFile
	cliOptions.Completions = rt.Commands()

	// closing stdin ends a blocked readline when the program is cancelled from elsewhere
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})
	logger.SetStdoutCallback(cli.Cli)
	defer logger.SetStdoutCallback(nil)

	err := cli.Cli.Run(rt, cliOptions)
	sim.Stop()
	if args.KpiFile != "" {
		if _, kerr := sim.SaveKpi(args.KpiFile); kerr != nil {
			logger.Errorf("saving KPI failed: %v", kerr)
		}
	}
	if err != nil {
		return errors.Wrapf(err, "console exit")
	}
	return nil
}

func serveMetrics(ctx *progctx.ProgCtx, sim *simulation.Simulation, addr string) error {
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	sim.SetMetricsCollector(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx.Defer(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	ctx.Go("metrics", func() error {
		logger.Infof("serving metrics at http://%s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return nil
}

func printSummary(out io.Writer, sim *simulation.Simulation, wallTime time.Duration) {
	kpi := sim.Kpi()
	pool, stats, _ := sim.Counters()
	total := kpi.Total

	_, _ = fmt.Fprintf(out, "Simulated %s s in %s\n", humanize.FtoaWithDigits(kpi.TimeSec.PeriodSec, 3),
		wallTime.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "Uplinks:           %s\n", humanize.Comma(int64(stats.Uplinks)))
	_, _ = fmt.Fprintf(out, "Received:          %s (%.1f%%)\n", humanize.Comma(int64(total.Success)), total.SuccessPercent)
	_, _ = fmt.Fprintf(out, "Interfered:        %s\n", humanize.Comma(int64(total.Interfered)))
	_, _ = fmt.Fprintf(out, "Under sensitivity: %s\n", humanize.Comma(int64(total.UnderSensitivity)))
	_, _ = fmt.Fprintf(out, "No free path:      %s\n", humanize.Comma(int64(pool.NoFreePath)))
	_, _ = fmt.Fprintf(out, "Blocked by tx:     %s\n", humanize.Comma(int64(pool.BlockedByTx)))
	_, _ = fmt.Fprintf(out, "Interrupted:       %s\n", humanize.Comma(int64(total.Interrupted)))
	_, _ = fmt.Fprintf(out, "Downlinks:         %s (%s dropped)\n", humanize.Comma(int64(stats.Downlinks)),
		humanize.Comma(int64(stats.DownlinksDropped)))
	_, _ = fmt.Fprintf(out, "Peak paths in use: %d of %d\n", pool.PeakOccupied, len(sim.Paths()))
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	ctx.Go("handleSignals", func() error {
		defer signal.Stop(c)
		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return nil
			}
		}
	})
}
