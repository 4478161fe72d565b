package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ladder = `
name: ladder
description: calm then wild
steps:
  - name: calm
    model: gbm
    preset: market
    samples: 5
    batch: 4
  - model: gbm
    preset: market
    samples: 5
    batch: 4
    params: {sigma: 0.8}
  - model: decay
    method: euler
    samples: 3
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(ladder))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 3)

	calm := sc.Steps[0]
	assert.Equal(t, "calm", calm.Name)
	assert.Equal(t, "market", calm.Preset)
	assert.Equal(t, 4, calm.Config.Batch)
	assert.Equal(t, 0.2, calm.Config.Params["sigma"])

	wild := sc.Steps[1]
	assert.Equal(t, "gbm-2", wild.Name)
	assert.Equal(t, 0.8, wild.Config.Params["sigma"])
	assert.Equal(t, 0.05, wild.Config.Params["mu"], "preset params are merged, not replaced")

	assert.Equal(t, "euler", sc.Steps[2].Config.Method)
	assert.Equal(t, 16, sc.Steps[2].Config.Batch)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no steps", "name: empty\n"},
		{"no model", "steps:\n  - preset: market\n"},
		{"bad preset", "steps:\n  - model: gbm\n    preset: nope\n"},
		{"bad method", "steps:\n  - model: gbm\n    method: rk4\n"},
		{"bad yaml", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("steps:\n  - preset: market\n"))
	assert.True(t, errors.Is(err, dynamo.ErrContractViolation))
}

func TestLoadAndRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ladder), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)

	var seen []string
	results, err := Run(context.Background(), sc, experiment.NewRegistry(), func(r StepResult) error {
		seen = append(seen, r.Step.Name)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"calm", "gbm-2", "decay-3"}, seen)

	for _, r := range results {
		assert.Equal(t, len(r.Step.Config.Times()), r.Trajectory.Len())
		assert.Contains(t, r.Trajectory.Metrics, "stability")
	}
}

func TestRunStopsOnCallbackError(t *testing.T) {
	sc, err := Parse([]byte(ladder))
	require.NoError(t, err)

	stop := errors.New("stop")
	results, err := Run(context.Background(), sc, experiment.NewRegistry(), func(StepResult) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Len(t, results, 1)
}
