package sched

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pvidal/gopgrid/pkg/deps"
	"github.com/pvidal/gopgrid/pkg/device"
	"github.com/pvidal/gopgrid/pkg/grid"
	"github.com/pvidal/gopgrid/pkg/logging"
	"github.com/pvidal/gopgrid/pkg/models"
	"github.com/pvidal/gopgrid/pkg/planner"
)

func buildTestGraph(t *testing.T, scenes []string, lambdas []float64, total, gop int) *deps.TaskGraph {
	t.Helper()
	segments, err := planner.Plan(total, 0, gop)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	jobs := grid.Enumerate(scenes, lambdas, segments)
	g, err := deps.BuildGraph(jobs, 10000)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	return g
}

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.FATAL, false)
}

// recorder collects execution order thread-safely.
type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

// TestRun_SingleDeviceSequentialOrder tests that one device reproduces the
// nested-loop baseline order exactly
func TestRun_SingleDeviceSequentialOrder(t *testing.T) {
	g := buildTestGraph(t, []string{"A"}, []float64{0.01}, 180, 60)
	s := New(g, Config{Devices: device.Pool(nil)}, quietLogger())

	rec := &recorder{}
	err := s.Run(context.Background(), func(ctx context.Context, task *deps.Task, dev device.Compute) error {
		rec.add(task.ID())
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"A/r0/g0:train", "A/r0/g0:evaluate",
		"A/r0/g1:train", "A/r0/g1:evaluate",
		"A/r0/g2:train", "A/r0/g2:evaluate",
	}
	if len(rec.ids) != len(want) {
		t.Fatalf("Expected %d executions, got %d", len(want), len(rec.ids))
	}
	for i := range want {
		if rec.ids[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], rec.ids[i])
		}
	}
}

// TestRun_AllTasksExecuteOnce tests the full 2x2x5 grid completes
func TestRun_AllTasksExecuteOnce(t *testing.T) {
	g := buildTestGraph(t, []string{"A", "B"}, []float64{0.01, 0.02}, 300, 60)
	s := New(g, Config{Devices: device.Pool([]int{0, 1, 2})}, quietLogger())

	rec := &recorder{}
	err := s.Run(context.Background(), func(ctx context.Context, task *deps.Task, dev device.Compute) error {
		rec.add(task.ID())
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.ids) != 40 {
		t.Fatalf("Expected 40 task executions (20 jobs x 2 phases), got %d", len(rec.ids))
	}

	seen := make(map[string]int)
	for _, id := range rec.ids {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Task %s executed %d times", id, n)
		}
	}

	m := s.Metrics()
	if m.TasksCompleted != 40 || m.TasksFailed != 0 || m.TasksSkipped != 0 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
}

// TestRun_DependencyOrderUnderParallelism tests that GOP-0 train always
// precedes its pair's GOP>0 trains even with many devices
func TestRun_DependencyOrderUnderParallelism(t *testing.T) {
	g := buildTestGraph(t, []string{"A", "B"}, []float64{0.01, 0.02}, 300, 60)
	s := New(g, Config{Devices: device.Pool([]int{0, 1, 2, 3})}, quietLogger())

	rec := &recorder{}
	err := s.Run(context.Background(), func(ctx context.Context, task *deps.Task, dev device.Compute) error {
		rec.add(task.ID())
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	pos := make(map[string]int)
	for i, id := range rec.ids {
		pos[id] = i
	}

	for _, task := range g.Tasks() {
		for _, dep := range task.Dependencies() {
			if pos[dep.ID()] >= pos[task.ID()] {
				t.Errorf("Task %s ran at %d before its dependency %s at %d",
					task.ID(), pos[task.ID()], dep.ID(), pos[dep.ID()])
			}
		}
	}
}

// TestRun_FailureSkipsDependents tests that a failed GOP-0 train aborts the
// run, skips its pair's jobs, and leaves other pairs untouched mid-flight
func TestRun_FailureSkipsDependents(t *testing.T) {
	g := buildTestGraph(t, []string{"A"}, []float64{0.01}, 300, 60)
	s := New(g, Config{Devices: device.Pool(nil)}, quietLogger())

	boom := errors.New("trainer exited with code 1")
	rec := &recorder{}
	err := s.Run(context.Background(), func(ctx context.Context, task *deps.Task, dev device.Compute) error {
		if task.ID() == "A/r0/g0:train" {
			task.Job.Transition(models.JobStatusFailed, "train phase failed")
			return boom
		}
		rec.add(task.ID())
		return nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("Expected the first failure back, got %v", err)
	}
	if len(rec.ids) != 0 {
		t.Errorf("No task may run after the only root failed, got %v", rec.ids)
	}

	m := s.Metrics()
	if m.TasksFailed != 1 {
		t.Errorf("Expected 1 failed task, got %d", m.TasksFailed)
	}
	// 9 dependents: GOP-0 evaluate plus 4 later jobs x 2 phases.
	if m.TasksSkipped != 9 {
		t.Errorf("Expected 9 skipped tasks, got %d", m.TasksSkipped)
	}

	for _, task := range g.Tasks() {
		if task.Job.GOP.ID > 0 && task.Job.Status != models.JobStatusSkipped {
			t.Errorf("Job %s: expected skipped, got %s", task.Job.Key(), task.Job.Status)
		}
	}
}

// TestRun_ContextCancellation tests that cancelling the run context stops
// dispatch and surfaces the context error
func TestRun_ContextCancellation(t *testing.T) {
	g := buildTestGraph(t, []string{"A"}, []float64{0.01}, 300, 60)
	s := New(g, Config{Devices: device.Pool(nil)}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	err := s.Run(ctx, func(ctx context.Context, task *deps.Task, dev device.Compute) error {
		count++
		if count == 2 {
			cancel()
		}
		return ctx.Err()
	})

	if err == nil {
		t.Fatal("Expected an error after cancellation")
	}
	if count >= 10 {
		t.Errorf("Dispatch should stop after cancellation, ran %d tasks", count)
	}
}
