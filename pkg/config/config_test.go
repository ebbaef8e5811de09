package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pvidal/gopgrid/pkg/models"
)

func validConfig() *Config {
	c := &Config{
		Scenes:         []string{"coffee_martini", "sear_steak"},
		DataRoot:       "/data/n3dv",
		ResultsRoot:    "/results",
		TrainerCommand: []string{"python", "train.py"},
	}
	c.ApplyDefaults()
	return c
}

// TestLoad parses a YAML config file and applies defaults.
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	content := `
scenes: [coffee_martini, flame_salmon_1]
lambdas: [0.01, 0.02]
data_root: /data/n3dv
results_root: /results
trainer_command: [python, train.py]
devices: [0, 1]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Scenes) != 2 {
		t.Errorf("expected 2 scenes, got %d", len(cfg.Scenes))
	}
	if cfg.GOPSize != 60 {
		t.Errorf("expected default gop_size 60, got %d", cfg.GOPSize)
	}
	if cfg.TotalFrames != 300 {
		t.Errorf("expected default total_frames 300, got %d", cfg.TotalFrames)
	}
	if cfg.Milestones.Early != 10000 || cfg.Milestones.Final != 30000 {
		t.Errorf("unexpected default milestones: %+v", cfg.Milestones)
	}
	if cfg.RenderTrajectory != "ellipse" {
		t.Errorf("expected default trajectory ellipse, got %q", cfg.RenderTrajectory)
	}
	if len(cfg.Devices) != 2 {
		t.Errorf("expected 2 devices, got %d", len(cfg.Devices))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

// TestLoad_MissingFile reports a readable error for a bad path.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/grid.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

// TestValidate rejects each malformed field with ErrInvalidConfiguration.
func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no scenes", func(c *Config) { c.Scenes = nil }},
		{"duplicate scene", func(c *Config) { c.Scenes = []string{"A", "B", "A"} }},
		{"negative total frames", func(c *Config) { c.TotalFrames = -1 }},
		{"zero gop size", func(c *Config) { c.GOPSize = -5 }},
		{"negative first frame", func(c *Config) { c.FirstFrame = -1 }},
		{"non-positive lambda", func(c *Config) { c.Lambdas = []float64{0.01, 0} }},
		{"early after final", func(c *Config) { c.Milestones = Milestones{Early: 30000, Final: 10000} }},
		{"missing data root", func(c *Config) { c.DataRoot = "" }},
		{"missing results root", func(c *Config) { c.ResultsRoot = "" }},
		{"missing trainer command", func(c *Config) { c.TrainerCommand = nil }},
		{"bad task timeout", func(c *Config) { c.TaskTimeout = "eternity" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			if !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

// TestParseTaskTimeout treats an empty timeout as unlimited.
func TestParseTaskTimeout(t *testing.T) {
	c := validConfig()
	d, err := c.ParseTaskTimeout()
	if err != nil || d != 0 {
		t.Errorf("expected zero timeout, got %v %v", d, err)
	}
	c.TaskTimeout = "6h"
	d, err = c.ParseTaskTimeout()
	if err != nil || d.Hours() != 6 {
		t.Errorf("expected 6h, got %v %v", d, err)
	}
}
