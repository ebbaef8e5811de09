package trainer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pvidal/gopgrid/pkg/device"
	"github.com/pvidal/gopgrid/pkg/logging"
)

// deviceEnv is the accelerator-visibility variable exported per invocation.
const deviceEnv = "CUDA_VISIBLE_DEVICES"

// Collaborator runs one configured training or evaluation invocation on a
// given device. Implementations own all side effects (checkpoints, metric
// files); the caller only assembles the configuration.
type Collaborator interface {
	Run(ctx context.Context, cfg *Config, dev device.Compute) error
}

// ExecCollaborator invokes the external training program as a subprocess.
type ExecCollaborator struct {
	// Command is the program plus any fixed leading arguments
	// (e.g. ["python", "train.py"]). Config args are appended.
	Command []string

	Log *logging.Logger
}

// NewExecCollaborator creates an exec-based collaborator
func NewExecCollaborator(command []string, log *logging.Logger) (*ExecCollaborator, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("trainer command is empty")
	}
	return &ExecCollaborator{Command: command, Log: log}, nil
}

// Run executes one invocation. Stdout/stderr are forwarded so training
// progress stays visible; a non-zero exit is returned as an error with the
// exit code preserved.
func (e *ExecCollaborator) Run(ctx context.Context, cfg *Config, dev device.Compute) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	args := append(append([]string{}, e.Command[1:]...), cfg.Args()...)

	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), deviceEnv+"="+dev.Selector())

	if e.Log != nil {
		e.Log.Debug(fmt.Sprintf("[Trainer] exec: %s %s (%s)",
			e.Command[0], strings.Join(args, " "), dev))
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start trainer: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("trainer exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("trainer failed: %w", err)
	}

	return nil
}
