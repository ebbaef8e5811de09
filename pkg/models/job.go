package models

import (
	"fmt"
	"time"
)

// Phase identifies one of the two sub-steps every grid cell runs.
type Phase string

const (
	PhaseTrain    Phase = "train"    // compression-simulated training
	PhaseEvaluate Phase = "evaluate" // end-to-end compression evaluation
)

// JobStatus represents the status of a grid job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusSkipped   JobStatus = "skipped" // prerequisite failed, never scheduled
)

// Scene is one capture sequence plus its resolved model variant.
// The variant is fixed at grid-build time and never changes afterwards.
type Scene struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
}

// RatePoint is one entry of the rate-distortion sweep. The index names
// artifacts; the lambda value is what the trainer consumes.
type RatePoint struct {
	Index  int     `json:"index"`
	Lambda float64 `json:"lambda"`
}

// GOPSegment is a contiguous slice of the frame range trained as one unit.
// Segments never overlap; only the last one may be shorter than the
// nominal GOP size.
type GOPSegment struct {
	ID         int `json:"id"`
	StartFrame int `json:"start_frame"`
	Length     int `json:"length"`
}

// Job is one (scene, rate point, GOP segment) grid cell. Each job runs its
// train phase and then its evaluate phase, in that order.
type Job struct {
	Scene Scene      `json:"scene"`
	Rate  RatePoint  `json:"rate"`
	GOP   GOPSegment `json:"gop"`

	// Seq is the position in the fixed enumeration order
	// (scene outer, rate middle, GOP inner).
	Seq int `json:"seq"`

	Status           JobStatus         `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Error            string            `json:"error,omitempty"`
	StateTransitions []StateTransition `json:"state_transitions,omitempty"`
}

// Key returns the identifier used for journaling and task-graph nodes.
// It is injective over (scene, rate, gop) by construction.
func (j *Job) Key() string {
	return fmt.Sprintf("%s/r%d/g%d", j.Scene.Name, j.Rate.Index, j.GOP.ID)
}

// Transition records a status change with a timestamp.
func (j *Job) Transition(to JobStatus, reason string) {
	j.StateTransitions = append(j.StateTransitions, StateTransition{
		From:      j.Status,
		To:        to,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	j.Status = to
}

// StateTransition tracks job state changes with timestamps
type StateTransition struct {
	From      JobStatus `json:"from"`
	To        JobStatus `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// CheckpointRef identifies a training artifact by grid cell, step and rank.
// Checkpoints are write-once; a ref never points at anything mutable.
type CheckpointRef struct {
	Scene     string `json:"scene"`
	RateIndex int    `json:"rate_index"`
	GOPIndex  int    `json:"gop_index"`
	Step      int    `json:"step"`
	Rank      int    `json:"rank"`
}

// ResultLocation is the deterministic output directory of one job.
type ResultLocation struct {
	Dir string `json:"dir"`
}
