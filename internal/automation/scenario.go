// Package automation runs scripted sequences of simulations described in
// YAML.
//
// A scenario file lists steps. Each step names a model and optionally a
// preset; any other config keys on the step override the preset:
//
//	name: volatility ladder
//	steps:
//	  - name: calm
//	    model: gbm
//	    preset: market
//	  - name: wild
//	    model: gbm
//	    preset: market
//	    params: {sigma: 0.8}
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/solver"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one run of a scenario. Config is fully resolved at load time.
type Step struct {
	Name   string
	Preset string
	Config *config.Config
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Name   string `yaml:"name"`
		Model  string `yaml:"model"`
		Preset string `yaml:"preset"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Model == "" {
		return errors.Wrapf(dynamo.ErrContractViolation, "scenario step at line %d has no model", node.Line)
	}

	cfg := config.DefaultConfig()
	cfg.Model = head.Model
	if head.Preset != "" {
		if cfg = config.GetPreset(head.Model, head.Preset); cfg == nil {
			return errors.Errorf("line %d: unknown preset %s for %s (available: %v)",
				node.Line, head.Preset, head.Model, config.ListPresets(head.Model))
		}
	}
	if err := node.Decode(cfg); err != nil {
		return err
	}

	s.Name, s.Preset, s.Config = head.Name, head.Preset, cfg
	return nil
}

// Parse decodes a scenario and validates every step.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "failed to parse scenario")
	}
	if len(sc.Steps) == 0 {
		return nil, errors.Wrapf(dynamo.ErrContractViolation, "scenario %q has no steps", sc.Name)
	}
	for i := range sc.Steps {
		st := &sc.Steps[i]
		if st.Name == "" {
			st.Name = fmt.Sprintf("%s-%d", st.Config.Model, i+1)
		}
		if err := st.Config.Validate(); err != nil {
			return nil, errors.Wrapf(err, "step %s", st.Name)
		}
	}
	return &sc, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step       Step
	Experiment *experiment.Experiment
	Trajectory *solver.Trajectory
}

// Run executes the steps in order. onStep, when not nil, sees each result
// as soon as it is available; an error from it stops the scenario.
func Run(ctx context.Context, sc *Scenario, reg *experiment.Registry, onStep func(StepResult) error) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	for i, st := range sc.Steps {
		klog.V(1).InfoS("scenario step", "scenario", sc.Name, "step", st.Name, "index", i+1, "of", len(sc.Steps))

		exp, err := experiment.New(st.Config, reg)
		if err != nil {
			return results, errors.Wrapf(err, "step %s", st.Name)
		}
		metrics, err := reg.Metrics(st.Config.Metrics)
		if err != nil {
			return results, errors.Wrapf(err, "step %s", st.Name)
		}
		traj, err := exp.Run(ctx, metrics)
		if err != nil {
			return results, errors.Wrapf(err, "step %s", st.Name)
		}

		res := StepResult{Step: st, Experiment: exp, Trajectory: traj}
		results = append(results, res)
		if onStep != nil {
			if err := onStep(res); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
