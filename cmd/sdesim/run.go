package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/sim"
	"github.com/san-kum/sdesim/internal/solver"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/viz"
	"github.com/spf13/cobra"
)

// buildConfig layers defaults, then a preset, then a config file, then
// any flags set explicitly on the command line.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, errors.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
		if loaded.Model != model {
			return nil, errors.Errorf("config %s is for model %s, not %s", configFile, loaded.Model, model)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("method") {
		cfg.Method = method
	}
	if f.Changed("brownian") {
		cfg.Brownian = bmKind
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("adaptive") {
		cfg.Adaptive = adaptive
	}
	if f.Changed("rtol") {
		cfg.Rtol = rtol
	}
	if f.Changed("atol") {
		cfg.Atol = atol
	}
	if f.Changed("dt-min") {
		cfg.DtMin = dtMin
	}
	if f.Changed("t1") {
		cfg.T1 = t1
		cfg.Ts = nil
	}
	if f.Changed("samples") {
		cfg.Samples = samples
		cfg.Ts = nil
	}
	if f.Changed("batch") {
		cfg.Batch = batch
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("logqp") {
		cfg.Logqp = logqp
	}
	if f.Changed("init") {
		cfg.Init = initRow
	}
	if f.Changed("metrics") {
		cfg.Metrics = metricList
	}
	if len(params) > 0 && cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(params))
	}
	for k, v := range params {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", k)
		}
		cfg.Params[k] = x
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp, err := experiment.New(cfg, registry)
	if err != nil {
		return err
	}
	metrics, err := registry.Metrics(cfg.Metrics)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	traj, err := exp.Run(ctx, metrics)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("%s with %s: %d outputs, batch %d, %s\n\n", cfg.Model, exp.Method(), traj.Len(), cfg.Batch, elapsed.Round(time.Microsecond))
	printResult(traj.Result)

	if noSave {
		return nil
	}
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := saveRun(ctx, st, exp, traj)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved run %s\n", runID)
	return nil
}

func saveRun(ctx context.Context, st *storage.Store, exp *experiment.Experiment, traj *solver.Trajectory) (string, error) {
	cfg := exp.Config()
	meta := storage.RunMetadata{
		Model:    cfg.Model,
		Method:   string(exp.Method()),
		Noise:    string(exp.Model().NoiseType()),
		Brownian: cfg.Brownian,
		Seed:     cfg.Seed,
		Dt:       cfg.Dt,
		Adaptive: cfg.Adaptive,
		Logqp:    cfg.Logqp,
		Params:   exp.Model().GetParams(),
	}
	return st.Save(ctx, meta, traj.Result)
}

func printResult(r *sim.Result) {
	rows := [][]string{
		{"steps", humanize.Comma(int64(r.Stats.Steps))},
		{"rejected", humanize.Comma(int64(r.Stats.Rejected))},
		{"forced", humanize.Comma(int64(r.Stats.Forced))},
		{"min step", fmt.Sprintf("%.3g", r.Stats.MinStep)},
		{"max step", fmt.Sprintf("%.3g", r.Stats.MaxStep)},
	}
	names := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		rows = append(rows, []string{k, fmt.Sprintf("%.6g", r.Metrics[k])})
	}
	if lr := r.TotalLogRatio(); lr != nil {
		var sum float64
		for _, v := range lr {
			sum += v
		}
		rows = append(rows, []string{"mean logqp", fmt.Sprintf("%.6g", sum/float64(len(lr)))})
	}
	fmt.Print(viz.Table([]string{"stat", "value"}, rows))

	for _, d := range r.Diagnostics {
		fmt.Println(viz.StatusPaused.Render("warning: ") + d.String())
	}
}
