// Package deps resolves inter-job checkpoint dependencies and builds the
// task graph executed by the scheduler.
package deps

import (
	"fmt"

	"github.com/pvidal/gopgrid/pkg/models"
)

// Kind discriminates the two ways a train phase can start.
type Kind string

const (
	// FromScratch means no checkpoint input; only GOP-0 jobs train this way.
	FromScratch Kind = "from_scratch"
	// ContinueFrom means the train phase branches off an existing checkpoint.
	ContinueFrom Kind = "continue_from"
)

// Spec is the resolved dependency of one job's train phase.
type Spec struct {
	Kind       Kind
	Checkpoint *models.CheckpointRef // set only for ContinueFrom
}

// Resolver resolves continuation checkpoints against a fixed grid.
type Resolver struct {
	branchStep int
	grid       map[string]bool // (scene, rate) pairs that have a GOP-0 job
}

// NewResolver indexes the grid's GOP-0 jobs. branchStep is the intermediate
// milestone of GOP-0's train phase that every later segment branches from.
func NewResolver(jobs []*models.Job, branchStep int) *Resolver {
	r := &Resolver{
		branchStep: branchStep,
		grid:       make(map[string]bool),
	}
	for _, job := range jobs {
		if job.GOP.ID == 0 {
			r.grid[pairKey(job.Scene.Name, job.Rate.Index)] = true
		}
	}
	return r
}

// Resolve determines the continuation source for a job's train phase.
//
// GOP 0 trains from scratch. Every GOP>0 job branches off the GOP-0 job of
// the same scene and rate point, at the branch (early) milestone — never
// off the previous segment and never off GOP-0's final step. Branching all
// segments from the same scratch-trained base bounds divergence and makes
// GOP>0 jobs of a pair independent of one another once GOP-0 is done.
func (r *Resolver) Resolve(job *models.Job) (Spec, error) {
	if job.GOP.ID == 0 {
		return Spec{Kind: FromScratch}, nil
	}

	if !r.grid[pairKey(job.Scene.Name, job.Rate.Index)] {
		return Spec{}, fmt.Errorf("%w: job %s has no GOP-0 job for scene=%s rate=%d",
			models.ErrMissingBaseSegment, job.Key(), job.Scene.Name, job.Rate.Index)
	}

	return Spec{
		Kind: ContinueFrom,
		Checkpoint: &models.CheckpointRef{
			Scene:     job.Scene.Name,
			RateIndex: job.Rate.Index,
			GOPIndex:  0,
			Step:      r.branchStep,
			Rank:      0,
		},
	}, nil
}

func pairKey(scene string, rate int) string {
	return fmt.Sprintf("%s/%d", scene, rate)
}
