package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/sdesim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "gbm" {
		t.Errorf("expected model gbm, got %s", cfg.Model)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestTimes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.T0, cfg.T1, cfg.Samples = 0, 1, 5

	got := cfg.Times()
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d times, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("time %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	cfg.Ts = []float64{0, 0.3, 0.3, 2}
	if got := cfg.Times(); len(got) != 4 || got[3] != 2 {
		t.Errorf("explicit times should win, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"no model", func(c *Config) { c.Model = "" }},
		{"bad method", func(c *Config) { c.Method = "heun" }},
		{"bad brownian", func(c *Config) { c.Brownian = "levy" }},
		{"zero batch", func(c *Config) { c.Batch = 0 }},
		{"one sample", func(c *Config) { c.Samples = 1 }},
		{"negative dt", func(c *Config) { c.Dt = -1 }},
		{"decreasing ts", func(c *Config) { c.Ts = []float64{1, 0} }},
		{"adaptive without floor", func(c *Config) { c.Adaptive = true; c.DtMin = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, dynamo.ErrContractViolation) {
				t.Errorf("expected a contract violation, got %v", err)
			}
		})
	}
}

func TestInitRow(t *testing.T) {
	cfg := DefaultConfig()

	row, err := cfg.InitRow(3)
	if err != nil || len(row) != 3 || row[2] != 1 {
		t.Errorf("expected three ones, got %v (%v)", row, err)
	}

	cfg.Init = []float64{2, 3}
	if _, err := cfg.InitRow(3); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected a dimension mismatch, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("ou", "stationary")
	cfg.Seed = 99
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model != "ou" || loaded.Seed != 99 || loaded.Params["theta"] != 2 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if len(loaded.Init) != 2 || loaded.Init[0] != 3 {
		t.Errorf("expected init [3 -3], got %v", loaded.Init)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("model: ou\nbatch: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Method != "srk" || cfg.Batch != 4 || cfg.Samples != DefaultSamples {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("model: ou\nmethod: rk4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation to reject rk4")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("gbm", "market")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params["sigma"] != 0.2 {
		t.Errorf("expected sigma 0.2, got %f", cfg.Params["sigma"])
	}

	cfg.Params["sigma"] = 5
	if GetPreset("gbm", "market").Params["sigma"] != 0.2 {
		t.Error("presets must not be shared")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("gbm", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "market")
	if cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsValidate(t *testing.T) {
	for model, presets := range Presets {
		for name, cfg := range presets {
			if cfg.Model != model {
				t.Errorf("%s/%s: model field is %s", model, name, cfg.Model)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("gbm")
	if len(presets) != 3 || presets[0] != "market" {
		t.Errorf("expected sorted gbm presets, got %v", presets)
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}
