// Package summary hands the finished results tree to the external
// aggregation tool.
package summary

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/pvidal/gopgrid/pkg/logging"
)

// Aggregator produces the run-level report from the results tree.
type Aggregator interface {
	Summarize(ctx context.Context, resultsRoot string) error
}

// ExecAggregator invokes the external summary program once with the
// results root. The aggregator walks the deterministic layout itself;
// nothing job-level crosses this boundary.
type ExecAggregator struct {
	Command []string
	Log     *logging.Logger
}

// NewExecAggregator creates an exec-based aggregator
func NewExecAggregator(command []string, log *logging.Logger) (*ExecAggregator, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("summary command is empty")
	}
	return &ExecAggregator{Command: command, Log: log}, nil
}

// Summarize runs the summary tool over the whole results tree.
func (a *ExecAggregator) Summarize(ctx context.Context, resultsRoot string) error {
	args := append(append([]string{}, a.Command[1:]...), "--results_dir", resultsRoot)

	if a.Log != nil {
		a.Log.Info(fmt.Sprintf("[Summary] aggregating results under %s", resultsRoot))
	}

	cmd := exec.CommandContext(ctx, a.Command[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("summary exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("summary failed: %w", err)
	}
	return nil
}
