package main

import (
	"flag"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	dataDir string
	// Run configuration flags, shared by the commands that build a config.
	configFile string
	preset     string
	method     string
	bmKind     string
	dt         float64
	adaptive   bool
	rtol       float64
	atol       float64
	dtMin      float64
	t1         float64
	samples    int
	batch      int
	seed       uint64
	logqp      bool
	params     map[string]string
	initRow    []float64
	metricList []string
	// Output flags
	noSave   bool
	outPath  string
	coord    int
	element  int
	phase    []int
	dtList   []float64
	maxPaths int
	// svg and search flags
	svgWidth     int
	svgHeight    int
	themeName    string
	gridAxes     []string
	searchMetric string
	burnIn       float64
)

// main registers the sdesim commands and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "sdesim",
		Short:         "stochastic differential equation solver lab",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sdesim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "integrate a model and store the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&coord, "coord", 0, "state coordinate to plot")
	plotCmd.Flags().IntVar(&element, "element", 0, "batch element whose sample path is drawn")
	plotCmd.Flags().IntSliceVar(&phase, "phase", nil, "two coordinates for a phase portrait, e.g. --phase 0,1")
	plotCmd.Flags().IntVar(&maxPaths, "paths", 8, "sample paths in a phase portrait")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a run's trajectory as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [method...]",
		Short: "integrate one model with several methods on a shared brownian path",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareMethods,
	}
	addRunFlags(compareCmd)

	convergeCmd := &cobra.Command{
		Use:   "converge [model]",
		Short: "estimate the empirical strong order of a method",
		Args:  cobra.ExactArgs(1),
		RunE:  convergeModel,
	}
	addRunFlags(convergeCmd)
	convergeCmd.Flags().Float64SliceVar(&dtList, "dts", []float64{1.0 / 16, 1.0 / 32, 1.0 / 64, 1.0 / 128}, "step sizes")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "follow an integration in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&coord, "coord", 0, "state coordinate to follow")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw a run's batch envelope and sample paths as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&coord, "coord", 0, "state coordinate to draw")
	exportSVGCmd.Flags().IntVar(&maxPaths, "paths", 8, "sample paths drawn behind the envelope")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")
	exportSVGCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "colour theme")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [model]",
		Short: "estimate the power spectrum of one coordinate across the batch",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumModel,
	}
	addRunFlags(spectrumCmd)
	spectrumCmd.Flags().IntVar(&coord, "coord", 0, "state coordinate to analyse")
	spectrumCmd.Flags().Float64Var(&burnIn, "burn-in", 0.2, "fraction of the output times dropped before estimating")

	searchCmd := &cobra.Command{
		Use:   "search [model]",
		Short: "find the model parameters minimising a metric over a grid",
		Args:  cobra.ExactArgs(1),
		RunE:  searchGrid,
	}
	addRunFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&gridAxes, "grid", nil, "grid axis, name=lo:hi:n or name=a,b,c (repeatable)")
	searchCmd.Flags().StringVar(&searchMetric, "metric", "mean_square", "metric to minimise")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models, their noise types and supported methods",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd,
		exportSVGCmd, compareCmd, convergeCmd, spectrumCmd, searchCmd, scenarioCmd, liveCmd,
		presetsCmd, modelsCmd)

	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&method, "method", "srk", "euler, milstein or srk")
	f.StringVar(&bmKind, "brownian", "tree", "tree, path or zero")
	f.Float64Var(&dt, "dt", 1e-3, "step size (initial step when adaptive)")
	f.BoolVar(&adaptive, "adaptive", false, "adaptive step size")
	f.Float64Var(&rtol, "rtol", 1e-6, "relative tolerance")
	f.Float64Var(&atol, "atol", 1e-5, "absolute tolerance")
	f.Float64Var(&dtMin, "dt-min", 1e-4, "step floor for adaptive stepping")
	f.Float64Var(&t1, "t1", 1, "end time")
	f.IntVar(&samples, "samples", 101, "output times spanning [0, t1]")
	f.IntVar(&batch, "batch", 16, "batch size")
	f.Uint64Var(&seed, "seed", 1, "brownian seed")
	f.BoolVar(&logqp, "logqp", false, "accumulate the log-ratio against the prior drift")
	f.StringToStringVar(&params, "param", nil, "model parameters, e.g. --param mu=0.1,sigma=1")
	f.Float64SliceVar(&initRow, "init", nil, "initial state row, repeated over the batch")
	f.StringSliceVar(&metricList, "metrics", nil, "metrics to record")
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
