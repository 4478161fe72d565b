package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/solver"
	"github.com/san-kum/sdesim/internal/viz"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func compareMethods(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()
	exp, err := experiment.New(cfg, registry)
	if err != nil {
		return err
	}

	methods := make([]dynamo.Method, 0, len(args)-1)
	for _, name := range args[1:] {
		m, err := dynamo.ParseMethod(name)
		if err != nil {
			return err
		}
		methods = append(methods, m)
	}
	if len(methods) == 0 {
		if methods, err = registry.ListMethods(cfg.Model); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing methods for %s (dt=%g, adaptive=%v, batch=%d, seed=%d)\n\n", cfg.Model, cfg.Dt, cfg.Adaptive, cfg.Batch, cfg.Seed)

	var reference dynamo.State
	rows := make([][]string, 0, len(methods))
	for _, m := range methods {
		start := time.Now()
		traj, err := exp.WithMethod(m).Run(ctx, nil)
		elapsed := time.Since(start)
		if err != nil {
			rows = append(rows, []string{string(m), "error: " + err.Error(), "", "", "", ""})
			continue
		}
		final := traj.Final()
		mean, _ := analysis.BatchMoments(final[0])
		diff := "-"
		if reference == nil {
			reference = final
		} else {
			diff = fmt.Sprintf("%.3e", analysis.StrongError(final, reference))
		}
		rows = append(rows, []string{
			string(solver.Resolve(m, exp.Model().NoiseType())),
			fmt.Sprintf("%d", traj.Stats.Steps),
			fmt.Sprintf("%d", traj.Stats.Rejected),
			fmt.Sprintf("%.6g", mean[0]),
			diff,
			fmt.Sprintf("%.2f", float64(elapsed.Microseconds())/1000),
		})
	}
	fmt.Print(viz.Table([]string{"method", "steps", "rejected", "mean y0(T)", "vs first", "time_ms"}, rows))
	return nil
}

func convergeModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	bar := progressbar.Default(int64(len(dtList)), "integrating")
	res, err := analysis.Converge(ctx, exp.Model(), exp.Initial(), cfg.T1, exp.Method(), dtList, cfg.Seed, func() {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	rows := make([][]string, len(res.Dts))
	for i := range res.Dts {
		rows[i] = []string{fmt.Sprintf("%.4g", res.Dts[i]), fmt.Sprintf("%.4e", res.Errors[i])}
	}
	fmt.Println()
	fmt.Print(viz.Table([]string{"dt", "E|y_dt(T) - y(T)|"}, rows))

	ref := "fine-step reference"
	if res.Exact {
		ref = "closed form"
	}
	st, err := exp.Solver()
	if err != nil {
		return err
	}
	expected := st.Stepper().StrongOrder()
	fmt.Printf("\nempirical strong order %.3f against %s (%s reports %.1f)\n", res.Order, ref, st.Method(), expected)
	if math.Abs(res.Order-expected) > 0.3 {
		fmt.Println(viz.StatusPaused.Render("warning: ") + "order differs from the reported one; try more batch elements or smaller steps")
	}
	return nil
}

// spectrumModel integrates a model and prints the batch-averaged
// periodogram of one coordinate, next to the closed form when the model
// has one.
func spectrumModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if burnIn < 0 || burnIn >= 1 {
		return errors.Errorf("burn-in must be in [0, 1), got %g", burnIn)
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	traj, err := exp.Run(ctx, nil)
	if err != nil {
		return err
	}
	step, err := analysis.UniformStep(traj.Times)
	if err != nil {
		return err
	}
	paths, err := analysis.BatchPaths(traj.Block(0), coord, int(burnIn*float64(traj.Len())))
	if err != nil {
		return err
	}
	s, err := analysis.Periodogram(paths, step)
	if err != nil {
		return err
	}

	closed, hasClosed := exp.Model().(interface{ Spectrum(omega float64) float64 })
	series := [][]float64{s.Power}
	if hasClosed {
		want := make([]float64, len(s.Omegas))
		for k, w := range s.Omegas {
			want[k] = closed.Spectrum(w)
		}
		series = append(series, want)
	}
	fmt.Println(viz.PlotPaths(series, 80, 15, fmt.Sprintf("%s: P(ω) of y[%d], ω up to %.3g", cfg.Model, coord, s.Omegas[len(s.Omegas)-1])))

	rows := [][]string{}
	for lo := s.Omegas[0]; lo < s.Omegas[len(s.Omegas)-1]; lo *= 2 {
		got, ok := s.BandMean(lo, 2*lo)
		if !ok {
			continue
		}
		row := []string{fmt.Sprintf("[%.3g, %.3g)", lo, 2*lo), fmt.Sprintf("%.4e", got), "-"}
		if hasClosed {
			row[2] = fmt.Sprintf("%.4e", closed.Spectrum(math.Sqrt(2)*lo))
		}
		rows = append(rows, row)
	}
	fmt.Println()
	fmt.Print(viz.Table([]string{"ω band", "periodogram", "closed form at band centre"}, rows))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets(args[0])
	if len(names) == 0 {
		return errors.Errorf("no presets for model %s", args[0])
	}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := config.GetPreset(args[0], name)
		mode := "fixed"
		if p.Adaptive {
			mode = "adaptive"
		}
		rows = append(rows, []string{name, p.Method, mode, fmt.Sprintf("%g", p.Dt), fmt.Sprintf("%g", p.T1), fmt.Sprintf("%d", p.Batch)})
	}
	fmt.Print(viz.Table([]string{"preset", "method", "steps", "dt", "t1", "batch"}, rows))
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	rows := [][]string{}
	for _, name := range registry.ListModels() {
		m, err := registry.GetModel(name, nil)
		if err != nil {
			return err
		}
		methods, err := registry.ListMethods(name)
		if err != nil {
			return err
		}
		ms := make([]string, len(methods))
		for i, x := range methods {
			ms[i] = string(x)
		}
		ps := make([]string, 0)
		for k, v := range m.GetParams() {
			ps = append(ps, fmt.Sprintf("%s=%g", k, v))
		}
		rows = append(rows, []string{name, string(m.NoiseType()), fmt.Sprintf("%d", m.Dim()), strings.Join(ms, ","), strings.Join(sorted(ps), " ")})
	}
	fmt.Print(viz.Table([]string{"model", "noise", "dim", "methods", "params"}, rows))
	return nil
}
