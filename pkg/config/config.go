// Package config loads and validates the grid-run configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pvidal/gopgrid/pkg/models"
)

// Milestones is the fixed checkpoint cadence. Early is where later GOPs
// branch from; Final is what each job's evaluation consumes.
type Milestones struct {
	Early int `yaml:"early"`
	Final int `yaml:"final"`
}

// Retry configures the optional collaborator retry policy.
type Retry struct {
	MaxRetries     int    `yaml:"max_retries"`
	InitialBackoff string `yaml:"initial_backoff"` // e.g. "30s"
}

// Config represents the complete configuration of a grid run
type Config struct {
	// Grid shape
	Scenes      []string  `yaml:"scenes"`
	Lambdas     []float64 `yaml:"lambdas"` // rate-distortion weights, sweep order
	GOPSize     int       `yaml:"gop_size"`
	TotalFrames int       `yaml:"total_frames"`
	FirstFrame  int       `yaml:"first_frame"`

	// Storage
	DataRoot    string `yaml:"data_root"`
	ResultsRoot string `yaml:"results_root"`
	JournalPath string `yaml:"journal_path"` // run journal database; empty = in-memory

	// Training parameters passed through to the collaborator
	RenderTrajectory string `yaml:"render_trajectory"`
	DataFactor       int    `yaml:"data_factor"`
	BatchSize        int    `yaml:"batch_size"`
	UseNearest       bool   `yaml:"use_nearest"`

	Milestones Milestones `yaml:"milestones"`

	// External collaborators
	TrainerCommand []string `yaml:"trainer_command"`
	SummaryCommand []string `yaml:"summary_command"`

	// Scheduling
	Devices     []int  `yaml:"devices"`      // empty = single device 0
	TaskTimeout string `yaml:"task_timeout"` // e.g. "6h"; empty = none
	Retry       Retry  `yaml:"retry"`

	// Observability
	MetricsListen string `yaml:"metrics_listen"` // empty = disabled
	LogLevel      string `yaml:"log_level"`
	LogJSON       bool   `yaml:"log_json"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills in the baseline values for everything unset.
func (c *Config) ApplyDefaults() {
	if c.TotalFrames == 0 {
		c.TotalFrames = 300
	}
	if c.GOPSize == 0 {
		c.GOPSize = 60
	}
	if len(c.Lambdas) == 0 {
		c.Lambdas = []float64{0.005, 0.01, 0.02, 0.04}
	}
	if c.RenderTrajectory == "" {
		c.RenderTrajectory = "ellipse"
	}
	if c.DataFactor == 0 {
		c.DataFactor = 2
	}
	if c.BatchSize == 0 {
		c.BatchSize = 1
	}
	if c.Milestones.Early == 0 {
		c.Milestones.Early = 10000
	}
	if c.Milestones.Final == 0 {
		c.Milestones.Final = 30000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration before anything runs. Every violation
// is an ErrInvalidConfiguration: the run must fail fast, with no job
// partially executed.
func (c *Config) Validate() error {
	if len(c.Scenes) == 0 {
		return fmt.Errorf("%w: no scenes configured", models.ErrInvalidConfiguration)
	}
	// A repeated scene would collapse two grid cells onto one result
	// location and one journal entry.
	seenScenes := make(map[string]bool, len(c.Scenes))
	for _, s := range c.Scenes {
		if seenScenes[s] {
			return fmt.Errorf("%w: scene %q listed more than once",
				models.ErrInvalidConfiguration, s)
		}
		seenScenes[s] = true
	}
	if c.TotalFrames <= 0 {
		return fmt.Errorf("%w: total_frames must be positive, got %d",
			models.ErrInvalidConfiguration, c.TotalFrames)
	}
	if c.GOPSize <= 0 {
		return fmt.Errorf("%w: gop_size must be positive, got %d",
			models.ErrInvalidConfiguration, c.GOPSize)
	}
	if c.FirstFrame < 0 {
		return fmt.Errorf("%w: first_frame must not be negative, got %d",
			models.ErrInvalidConfiguration, c.FirstFrame)
	}
	for i, l := range c.Lambdas {
		if l <= 0 {
			return fmt.Errorf("%w: lambda %d must be positive, got %g",
				models.ErrInvalidConfiguration, i, l)
		}
	}
	if c.Milestones.Early <= 0 || c.Milestones.Final <= 0 {
		return fmt.Errorf("%w: milestones must be positive",
			models.ErrInvalidConfiguration)
	}
	if c.Milestones.Early >= c.Milestones.Final {
		return fmt.Errorf("%w: early milestone %d must precede final %d",
			models.ErrInvalidConfiguration, c.Milestones.Early, c.Milestones.Final)
	}
	if c.DataRoot == "" {
		return fmt.Errorf("%w: data_root is required", models.ErrInvalidConfiguration)
	}
	if c.ResultsRoot == "" {
		return fmt.Errorf("%w: results_root is required", models.ErrInvalidConfiguration)
	}
	if len(c.TrainerCommand) == 0 {
		return fmt.Errorf("%w: trainer_command is required", models.ErrInvalidConfiguration)
	}

	if _, err := c.ParseTaskTimeout(); err != nil {
		return fmt.Errorf("%w: bad task_timeout: %v", models.ErrInvalidConfiguration, err)
	}
	if _, err := c.ParseInitialBackoff(); err != nil {
		return fmt.Errorf("%w: bad retry.initial_backoff: %v", models.ErrInvalidConfiguration, err)
	}

	return nil
}

// ParseTaskTimeout returns the per-task timeout, zero when unlimited.
func (c *Config) ParseTaskTimeout() (time.Duration, error) {
	if c.TaskTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TaskTimeout)
}

// ParseInitialBackoff returns the retry backoff seed.
func (c *Config) ParseInitialBackoff() (time.Duration, error) {
	if c.Retry.InitialBackoff == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Retry.InitialBackoff)
}
