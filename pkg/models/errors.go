package models

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration covers non-positive frame counts or GOP sizes and
// any other pre-run configuration problem. Reported before any job executes.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrMissingBaseSegment means a GOP>0 job has no GOP-0 counterpart for its
// scene and rate point. The enumerator never produces such a grid; this is
// a guard against hand-built ones.
var ErrMissingBaseSegment = errors.New("missing base segment")

// CollaboratorError reports a failed external invocation. It carries the
// full grid coordinate so the operator can resume by hand.
type CollaboratorError struct {
	Scene     string
	RateIndex int
	GOPIndex  int
	Phase     Phase
	Err       error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator failed: scene=%s rate=%d gop=%d phase=%s: %v",
		e.Scene, e.RateIndex, e.GOPIndex, e.Phase, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
