// Package trainer defines the configuration contract with the external
// training program and the exec-based collaborator that invokes it.
package trainer

import (
	"fmt"
	"strconv"
)

// CompressionMode selects which pipeline the collaborator runs.
type CompressionMode string

const (
	// ModeSimulated trains with compression effects modelled, not encoded.
	ModeSimulated CompressionMode = "simulated"
	// ModeEndToEnd runs the full compression pipeline for evaluation.
	ModeEndToEnd CompressionMode = "end_to_end"
)

// Config is one complete collaborator invocation. The executor fills it per
// phase; nothing else is passed across the process boundary.
type Config struct {
	Variant   string // model variant tag
	DataDir   string // scene dataset root
	ResultDir string // job output location

	// Checkpoint cadence: the two fixed step milestones. The second
	// (late) milestone is the checkpoint the evaluate phase consumes.
	EvalSteps []int
	SaveSteps []int

	BatchSize  int
	DataFactor int
	RenderTraj string // render trajectory identifier
	UseNearest bool

	StartFrame int
	GOPSize    int

	Mode      CompressionMode
	RateIndex int
	Lambda    float64 // rate-distortion weight; simulated mode only

	// Continuation input, set when the train phase branches off an
	// existing checkpoint. Evaluate phases set Checkpoint without the
	// continue flag: the checkpoint is an input, not a training resume.
	Checkpoint       string
	ContinueTraining bool
}

// Args assembles the collaborator's command-line arguments. The flag
// surface is the contract; keep it stable.
func (c *Config) Args() []string {
	args := []string{
		"--variant", c.Variant,
		"--data_dir", c.DataDir,
		"--result_dir", c.ResultDir,
		"--batch_size", strconv.Itoa(c.BatchSize),
		"--data_factor", strconv.Itoa(c.DataFactor),
		"--render_traj", c.RenderTraj,
		"--start_frame", strconv.Itoa(c.StartFrame),
		"--gop_size", strconv.Itoa(c.GOPSize),
		"--rate_idx", strconv.Itoa(c.RateIndex),
	}

	for _, s := range c.EvalSteps {
		args = append(args, "--eval_steps", strconv.Itoa(s))
	}
	for _, s := range c.SaveSteps {
		args = append(args, "--save_steps", strconv.Itoa(s))
	}

	if c.UseNearest {
		args = append(args, "--use_nearest")
	}

	switch c.Mode {
	case ModeEndToEnd:
		args = append(args, "--compression")
	case ModeSimulated:
		// Simulated training carries the rate-distortion weight.
		args = append(args, "--compression_sim",
			"--rd_lambda", strconv.FormatFloat(c.Lambda, 'g', -1, 64))
	}

	if c.Checkpoint != "" {
		args = append(args, "--ckpt", c.Checkpoint)
	}
	if c.ContinueTraining {
		args = append(args, "--continue_training")
	}

	return args
}

// Validate rejects configurations the collaborator would choke on.
func (c *Config) Validate() error {
	if c.ResultDir == "" {
		return fmt.Errorf("trainer config: result dir is empty")
	}
	if c.GOPSize <= 0 {
		return fmt.Errorf("trainer config: GOP size %d", c.GOPSize)
	}
	if c.StartFrame < 0 {
		return fmt.Errorf("trainer config: start frame %d", c.StartFrame)
	}
	if c.Mode != ModeSimulated && c.Mode != ModeEndToEnd {
		return fmt.Errorf("trainer config: unknown compression mode %q", c.Mode)
	}
	if c.Mode == ModeSimulated && c.Lambda <= 0 {
		return fmt.Errorf("trainer config: rate-distortion weight %g", c.Lambda)
	}
	if c.ContinueTraining && c.Checkpoint == "" {
		return fmt.Errorf("trainer config: continue flag without checkpoint")
	}
	return nil
}
