// Package sched executes the task graph over a pool of compute devices.
//
// The grid's correctness lives in the graph edges, not in loop nesting:
// the scheduler runs tasks in topological order, dispatching any ready
// task to any idle device. With one device this reproduces the sequential
// baseline ordering exactly (ready tasks are taken in enumeration order);
// with several devices, independent branches run in parallel.
package sched

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/pvidal/gopgrid/pkg/deps"
	"github.com/pvidal/gopgrid/pkg/device"
	"github.com/pvidal/gopgrid/pkg/logging"
	"github.com/pvidal/gopgrid/pkg/models"
)

// RunFunc executes one task on one device.
type RunFunc func(ctx context.Context, task *deps.Task, dev device.Compute) error

// Config holds scheduler configuration
type Config struct {
	Devices []device.Compute

	// TaskTimeout bounds a single phase invocation. Zero means no limit
	// (the baseline: training runs as long as it runs).
	TaskTimeout time.Duration
}

// Metrics tracks scheduler progress over one run.
type Metrics struct {
	TasksTotal     int
	TasksCompleted int
	TasksFailed    int
	TasksSkipped   int
}

// Scheduler runs one task graph to completion or first failure.
type Scheduler struct {
	graph   *deps.TaskGraph
	config  Config
	log     *logging.Logger
	metrics Metrics

	order map[*deps.Task]int
}

// New creates a scheduler for a built graph.
func New(graph *deps.TaskGraph, config Config, log *logging.Logger) *Scheduler {
	if len(config.Devices) == 0 {
		config.Devices = device.Pool(nil)
	}

	order := make(map[*deps.Task]int, graph.Len())
	for i, t := range graph.Tasks() {
		order[t] = i
	}

	return &Scheduler{
		graph:  graph,
		config: config,
		log:    log,
		order:  order,
	}
}

// Metrics returns the counters of the last run.
func (s *Scheduler) Metrics() Metrics {
	return s.metrics
}

type taskResult struct {
	task *deps.Task
	err  error
}

// Run executes the graph. The first task failure aborts the run: running
// tasks finish, nothing new is dispatched, and every task that was (even
// transitively) waiting on the failed one is reported as skipped. The
// returned error is the first failure, or ctx's error on cancellation.
func (s *Scheduler) Run(ctx context.Context, run RunFunc) error {
	tasks := s.graph.Tasks()
	s.metrics = Metrics{TasksTotal: len(tasks)}

	indegree := make(map[*deps.Task]int, len(tasks))
	ready := &taskQueue{order: s.order}
	for _, t := range tasks {
		indegree[t] = len(t.Dependencies())
		if indegree[t] == 0 {
			heap.Push(ready, t)
		}
	}

	idle := make(chan device.Compute, len(s.config.Devices))
	for _, dev := range s.config.Devices {
		idle <- dev
	}

	s.log.Info(fmt.Sprintf("[Scheduler] %d tasks, %d device(s)",
		len(tasks), len(s.config.Devices)))

	results := make(chan taskResult, len(s.config.Devices))
	inFlight := 0
	remaining := len(tasks)
	skipped := make(map[*deps.Task]bool)
	var firstErr error

	for remaining > 0 {
		// Dispatch while something is ready, a device is idle, and the
		// run has not been aborted.
		for firstErr == nil && ctx.Err() == nil && ready.Len() > 0 && len(idle) > 0 {
			task := heap.Pop(ready).(*deps.Task)
			dev := <-idle
			inFlight++

			go func(task *deps.Task, dev device.Compute) {
				taskCtx := ctx
				if s.config.TaskTimeout > 0 {
					var cancel context.CancelFunc
					taskCtx, cancel = context.WithTimeout(ctx, s.config.TaskTimeout)
					defer cancel()
				}
				err := run(taskCtx, task, dev)
				idle <- dev
				results <- taskResult{task: task, err: err}
			}(task, dev)
		}

		if inFlight == 0 {
			// Nothing running and nothing dispatchable: either aborted,
			// or every remaining task waits on a failed prerequisite.
			break
		}

		res := <-results
		inFlight--
		remaining--

		if res.err != nil {
			s.metrics.TasksFailed++
			if firstErr == nil {
				firstErr = res.err
			}
			s.log.Error(fmt.Sprintf("[Scheduler] task %s failed: %v", res.task.ID(), res.err))
			remaining -= s.skipDependents(res.task, skipped)
			continue
		}

		s.metrics.TasksCompleted++
		for _, dep := range res.task.Dependents() {
			indegree[dep]--
			if indegree[dep] == 0 {
				heap.Push(ready, dep)
			}
		}
	}

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	s.log.Info(fmt.Sprintf("[Scheduler] done: %d completed, %d failed, %d skipped",
		s.metrics.TasksCompleted, s.metrics.TasksFailed, s.metrics.TasksSkipped))

	return firstErr
}

// skipDependents marks everything transitively waiting on a failed task as
// skipped and returns how many tasks were removed from the run. The seen
// set is shared across failures so overlapping fan-outs count once.
func (s *Scheduler) skipDependents(failed *deps.Task, seen map[*deps.Task]bool) int {
	skipped := 0
	queue := append([]*deps.Task{}, failed.Dependents()...)

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true
		skipped++
		s.metrics.TasksSkipped++

		if t.Job.Status != models.JobStatusFailed && t.Job.Status != models.JobStatusSkipped {
			t.Job.Transition(models.JobStatusSkipped, "prerequisite "+failed.ID()+" failed")
		}
		s.log.Warn(fmt.Sprintf("[Scheduler] skipping %s (prerequisite failed)", t.ID()))

		queue = append(queue, t.Dependents()...)
	}

	return skipped
}

// taskQueue is a min-heap over the fixed enumeration order, so the ready
// set drains deterministically.
type taskQueue struct {
	items []*deps.Task
	order map[*deps.Task]int
}

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Less(i, j int) bool {
	return q.order[q.items[i]] < q.order[q.items[j]]
}

func (q *taskQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *taskQueue) Push(x interface{}) { q.items = append(q.items, x.(*deps.Task)) }

func (q *taskQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
