package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/sim"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func openStore(ctx context.Context) (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func loadRun(ctx context.Context, runID string) (*storage.RunMetadata, *sim.Result, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadResult(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, result, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Model,
			run.Method,
			run.Noise,
			humanize.Comma(int64(run.Batch)),
			humanize.Comma(int64(run.Steps)),
			fmt.Sprintf("%.4g", run.Dt),
			humanize.Time(run.Timestamp),
		})
	}
	fmt.Print(viz.Table([]string{"ID", "MODEL", "METHOD", "NOISE", "BATCH", "STEPS", "DT", "CREATED"}, rows))
	return nil
}

// firstBlocks returns block 0 of every state.
func firstBlocks(r *sim.Result) []*mat.Dense {
	out := make([]*mat.Dense, len(r.States))
	for i, s := range r.States {
		out[i] = s[0]
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(result.States) == 0 {
		return errors.New("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s (%s, %s noise)\n", meta.Model, meta.Method, meta.Noise)
	fmt.Printf("outputs: %d over [%g, %g], batch %d\n\n", len(result.Times), meta.T0, meta.T1, meta.Batch)

	blocks := firstBlocks(result)
	if len(phase) > 0 {
		return plotPhase(blocks)
	}

	mean, lo, hi, err := analysis.Envelope(blocks, coord, 0.1, 0.9)
	if err != nil {
		return err
	}
	fmt.Println(viz.PlotPaths([][]float64{mean, lo, hi}, 80, 12, fmt.Sprintf("y[%d]: batch mean with 10%%-90%% band", coord)))
	fmt.Println()

	path, err := analysis.SamplePath(blocks, element, coord)
	if err != nil {
		return err
	}
	fmt.Println(viz.PlotPaths([][]float64{path}, 80, 8, fmt.Sprintf("y[%d] of batch element %d", coord, element)))

	if len(result.LogRatio) > 0 {
		fmt.Println()
		totals := result.TotalLogRatio()
		fmt.Println(viz.PlotPaths([][]float64{totals}, 80, 6, "total logqp per batch element"))
	}
	return nil
}

func plotPhase(blocks []*mat.Dense) error {
	if len(phase) != 2 {
		return errors.Errorf("--phase takes two coordinates, got %v", phase)
	}
	rows, _ := blocks[0].Dims()
	n := min(maxPaths, rows)
	xs, ys := make([][]float64, n), make([][]float64, n)
	for b := 0; b < n; b++ {
		var err error
		if xs[b], err = analysis.SamplePath(blocks, b, phase[0]); err != nil {
			return err
		}
		if ys[b], err = analysis.SamplePath(blocks, b, phase[1]); err != nil {
			return err
		}
	}
	fmt.Println(viz.PhasePortrait(xs, ys, 60, 20))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteTrajectoryCSV(os.Stdout, result)
	}
	if err := storage.ExportCSVFile(outPath, result); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.ExportJSON(os.Stdout, *meta, result)
	}
	if err := storage.ExportJSONFile(outPath, *meta, result); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}
