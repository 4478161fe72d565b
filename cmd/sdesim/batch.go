package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/automation"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/export"
	"github.com/san-kum/sdesim/internal/optim"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/viz"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func searchGrid(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if len(gridAxes) == 0 {
		return errors.New("at least one --grid axis is required")
	}

	names := make([]string, 0, len(gridAxes))
	ranges := make([][]float64, 0, len(gridAxes))
	for _, a := range gridAxes {
		name, values, err := optim.ParseAxis(a)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	bar := progressbar.Default(int64(g.Size()), "searching")
	res, err := g.Search(ctx, cfg, experiment.NewRegistry(), searchMetric, func(optim.Evaluation) { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil && res == nil {
		return err
	}

	header := append(append([]string(nil), names...), searchMetric)
	rows := make([][]string, 0, len(res.Evaluations))
	for _, ev := range res.Evaluations {
		row := make([]string, 0, len(header))
		for _, n := range names {
			row = append(row, fmt.Sprintf("%.4g", ev.Params[n]))
		}
		if ev.Err != nil {
			row = append(row, viz.StatusFailed.Render("failed"))
		} else {
			row = append(row, fmt.Sprintf("%.6g", ev.Value))
		}
		rows = append(rows, row)
	}
	fmt.Print(viz.Table(header, rows))
	if err != nil {
		return err
	}

	best := make([]string, 0, len(names))
	for _, n := range names {
		best = append(best, fmt.Sprintf("%s=%.4g", n, res.Best[n]))
	}
	fmt.Printf("\nbest: %v with %s %.6g\n", best, searchMetric, res.Value)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var st *storage.Store
	if !noSave {
		if st, err = openStore(ctx); err != nil {
			return err
		}
		defer st.Close()
	}

	if sc.Description != "" {
		fmt.Printf("%s: %s\n\n", sc.Name, sc.Description)
	}
	rows := make([][]string, 0, len(sc.Steps))
	_, err = automation.Run(ctx, sc, experiment.NewRegistry(), func(r automation.StepResult) error {
		runID := "-"
		if st != nil {
			id, err := saveRun(ctx, st, r.Experiment, r.Trajectory)
			if err != nil {
				return err
			}
			runID = id
		}
		stats := r.Trajectory.Stats
		rows = append(rows, []string{
			r.Step.Name,
			r.Step.Config.Model,
			string(r.Experiment.Method()),
			humanize.Comma(int64(stats.Steps)),
			humanize.Comma(int64(stats.Rejected)),
			metricSummary(r.Trajectory.Metrics),
			runID,
		})
		return nil
	})
	if len(rows) > 0 {
		fmt.Print(viz.Table([]string{"STEP", "MODEL", "METHOD", "STEPS", "REJECTED", "METRICS", "RUN"}, rows))
	}
	return err
}

func metricSummary(m map[string]float64) string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	var out string
	for i, k := range names {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.4g", k, m[k])
	}
	return out
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(result.States) == 0 {
		return errors.New("no data to export")
	}

	blocks := firstBlocks(result)
	mean, lo, hi, err := analysis.Envelope(blocks, coord, 0.1, 0.9)
	if err != nil {
		return err
	}
	rows, _ := blocks[0].Dims()
	paths := make([][]float64, 0, min(maxPaths, rows))
	for b := 0; b < rows && b < maxPaths; b++ {
		p, err := analysis.SamplePath(blocks, b, coord)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}

	fig := export.Envelope(result.Times, mean, lo, hi, paths, viz.GetTheme(themeName), svgWidth, svgHeight)
	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return fig.WriteSVG(w)
}
