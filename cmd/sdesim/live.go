package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/viz"
	"github.com/spf13/cobra"
)

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}
	if _, err := exp.Solver(); err != nil {
		return err
	}

	run := func(ctx context.Context, emit func(float64, dynamo.State) bool) error {
		s, err := exp.Solver()
		if err != nil {
			return err
		}
		return s.IntegrateWithCallback(ctx, exp.Initial(), exp.Times(), emit)
	}

	live := viz.NewLive(cfg.Model, coord, exp.Model(), run)
	_, err = tea.NewProgram(live, tea.WithAltScreen()).Run()
	return err
}
