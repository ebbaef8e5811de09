package deps

import (
	"fmt"

	"github.com/pvidal/gopgrid/pkg/models"
)

// Task is one node of the execution graph: a single phase of a single job.
type Task struct {
	Job   *models.Job
	Phase models.Phase

	// Spec is the resolved train-phase dependency. Only meaningful for
	// train tasks; evaluate tasks always read their own job's checkpoint.
	Spec Spec

	deps       []*Task
	dependents []*Task
}

// ID returns the node identifier, unique per (job, phase).
func (t *Task) ID() string {
	return t.Job.Key() + ":" + string(t.Phase)
}

// Dependencies returns the tasks that must complete before this one starts.
func (t *Task) Dependencies() []*Task {
	return t.deps
}

// Dependents returns the tasks waiting on this one.
func (t *Task) Dependents() []*Task {
	return t.dependents
}

// TaskGraph is the directed acyclic graph of (phase, job) tasks. The grid's
// scheduling constraints are explicit edges rather than loop-nesting order:
// train→evaluate within a job, and GOP-0 train → GOP-n train within a
// (scene, rate) pair.
type TaskGraph struct {
	tasks []*Task
	byID  map[string]*Task
}

// BuildGraph resolves every job's dependency and wires the task graph.
// Tasks keep the enumeration order (train directly before its evaluate),
// so a single-device topological run reproduces the sequential baseline
// exactly. Fails with ErrMissingBaseSegment on an inconsistent grid.
func BuildGraph(jobs []*models.Job, branchStep int) (*TaskGraph, error) {
	resolver := NewResolver(jobs, branchStep)

	g := &TaskGraph{
		tasks: make([]*Task, 0, 2*len(jobs)),
		byID:  make(map[string]*Task, 2*len(jobs)),
	}

	// First pass: create both phase nodes per job, train before evaluate.
	baseTrain := make(map[string]*Task) // (scene, rate) -> GOP-0 train task
	for _, job := range jobs {
		spec, err := resolver.Resolve(job)
		if err != nil {
			return nil, err
		}

		train := &Task{Job: job, Phase: models.PhaseTrain, Spec: spec}
		eval := &Task{Job: job, Phase: models.PhaseEvaluate}
		g.add(train)
		g.add(eval)

		// Intra-job edge: evaluate consumes this job's own train output.
		link(train, eval)

		if job.GOP.ID == 0 {
			baseTrain[pairKey(job.Scene.Name, job.Rate.Index)] = train
		}
	}

	// Second pass: inter-job edges. Every GOP>0 train branches off the
	// same pair's GOP-0 train.
	for _, t := range g.tasks {
		if t.Phase != models.PhaseTrain || t.Job.GOP.ID == 0 {
			continue
		}
		base, ok := baseTrain[pairKey(t.Job.Scene.Name, t.Job.Rate.Index)]
		if !ok {
			// Resolve already rejected this; kept as a structural guard.
			return nil, fmt.Errorf("%w: no GOP-0 train task for %s",
				models.ErrMissingBaseSegment, t.ID())
		}
		link(base, t)
	}

	return g, nil
}

// Tasks returns all tasks in deterministic order.
func (g *TaskGraph) Tasks() []*Task {
	return g.tasks
}

// Lookup returns the task with the given ID, or nil.
func (g *TaskGraph) Lookup(id string) *Task {
	return g.byID[id]
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int {
	return len(g.tasks)
}

func (g *TaskGraph) add(t *Task) {
	g.tasks = append(g.tasks, t)
	g.byID[t.ID()] = t
}

func link(from, to *Task) {
	from.dependents = append(from.dependents, to)
	to.deps = append(to.deps, from)
}
