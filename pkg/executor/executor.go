// Package executor runs the two-phase pipeline of a single grid cell:
// compression-simulated training, then end-to-end compression evaluation.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pvidal/gopgrid/pkg/deps"
	"github.com/pvidal/gopgrid/pkg/device"
	"github.com/pvidal/gopgrid/pkg/logging"
	"github.com/pvidal/gopgrid/pkg/models"
	"github.com/pvidal/gopgrid/pkg/paths"
	"github.com/pvidal/gopgrid/pkg/retry"
	"github.com/pvidal/gopgrid/pkg/trainer"
)

// Milestones are the two fixed checkpoint steps every train phase declares.
// Early is the step GOP>0 segments branch from; Final is the step the
// evaluate phase consumes.
type Milestones struct {
	Early int
	Final int
}

// Params are the training parameters shared by every invocation of a run.
type Params struct {
	DataRoot    string
	ResultsRoot string
	BatchSize   int
	DataFactor  int
	RenderTraj  string
	UseNearest  bool
}

// Executor assembles collaborator configurations and runs both phases of a
// job. It owns no side effects itself; everything on disk is written by
// the collaborator.
type Executor struct {
	collab     trainer.Collaborator
	params     Params
	milestones Milestones
	retryCfg   retry.Config
	log        *logging.Logger
}

// New creates an executor
func New(collab trainer.Collaborator, params Params, milestones Milestones,
	retryCfg retry.Config, log *logging.Logger) *Executor {

	return &Executor{
		collab:     collab,
		params:     params,
		milestones: milestones,
		retryCfg:   retryCfg,
		log:        log,
	}
}

// Execute runs the train phase and then the evaluate phase for one job,
// sequentially on the given device. A phase failure aborts the job and is
// reported with the full (scene, rate, GOP, phase) coordinate.
func (e *Executor) Execute(ctx context.Context, job *models.Job, spec deps.Spec,
	loc models.ResultLocation, dev device.Compute) error {

	if err := e.Train(ctx, job, spec, loc, dev); err != nil {
		return err
	}
	return e.Evaluate(ctx, job, loc, dev)
}

// Train runs the compression-simulated training phase of a job.
func (e *Executor) Train(ctx context.Context, job *models.Job, spec deps.Spec,
	loc models.ResultLocation, dev device.Compute) error {

	started := time.Now()
	job.StartedAt = &started
	job.Transition(models.JobStatusRunning, "executing on "+dev.String())

	e.log.Info(fmt.Sprintf("[Executor] %s: train (gop %d, frames %d..%d, %s)",
		job.Key(), job.GOP.ID, job.GOP.StartFrame,
		job.GOP.StartFrame+job.GOP.Length-1, dev))

	if err := e.runPhase(ctx, e.trainConfig(job, spec, loc), dev); err != nil {
		return e.fail(job, models.PhaseTrain, err)
	}
	return nil
}

// Evaluate runs the end-to-end compression phase of a job and completes it.
func (e *Executor) Evaluate(ctx context.Context, job *models.Job,
	loc models.ResultLocation, dev device.Compute) error {

	e.log.Info(fmt.Sprintf("[Executor] %s: evaluate (checkpoint step %d)",
		job.Key(), e.milestones.Final))

	if err := e.runPhase(ctx, e.evalConfig(job, loc), dev); err != nil {
		return e.fail(job, models.PhaseEvaluate, err)
	}

	completed := time.Now()
	job.CompletedAt = &completed
	job.Transition(models.JobStatusCompleted, "")
	return nil
}

func (e *Executor) runPhase(ctx context.Context, cfg *trainer.Config, dev device.Compute) error {
	return retry.Do(ctx, e.retryCfg, func() error {
		return e.collab.Run(ctx, cfg, dev)
	})
}

func (e *Executor) fail(job *models.Job, phase models.Phase, err error) error {
	cerr := &models.CollaboratorError{
		Scene:     job.Scene.Name,
		RateIndex: job.Rate.Index,
		GOPIndex:  job.GOP.ID,
		Phase:     phase,
		Err:       err,
	}
	job.Error = cerr.Error()
	job.Transition(models.JobStatusFailed, string(phase)+" phase failed")
	return cerr
}

// trainConfig builds the compression-simulated training invocation.
func (e *Executor) trainConfig(job *models.Job, spec deps.Spec, loc models.ResultLocation) *trainer.Config {
	cfg := e.baseConfig(job, loc)
	cfg.Mode = trainer.ModeSimulated
	cfg.Lambda = job.Rate.Lambda
	cfg.EvalSteps = []int{e.milestones.Early, e.milestones.Final}
	cfg.SaveSteps = []int{e.milestones.Early, e.milestones.Final}

	if spec.Kind == deps.ContinueFrom {
		cfg.Checkpoint = paths.CheckpointPath(e.params.ResultsRoot, spec.Checkpoint)
		cfg.ContinueTraining = true
	}

	return cfg
}

// evalConfig builds the end-to-end compression invocation. It always reads
// this job's own train checkpoint at the final milestone.
func (e *Executor) evalConfig(job *models.Job, loc models.ResultLocation) *trainer.Config {
	cfg := e.baseConfig(job, loc)
	cfg.Mode = trainer.ModeEndToEnd
	cfg.Checkpoint = paths.CheckpointPath(e.params.ResultsRoot, &models.CheckpointRef{
		Scene:     job.Scene.Name,
		RateIndex: job.Rate.Index,
		GOPIndex:  job.GOP.ID,
		Step:      e.milestones.Final,
		Rank:      0,
	})
	return cfg
}

func (e *Executor) baseConfig(job *models.Job, loc models.ResultLocation) *trainer.Config {
	return &trainer.Config{
		Variant:    job.Scene.Variant,
		DataDir:    filepath.Join(e.params.DataRoot, job.Scene.Name),
		ResultDir:  loc.Dir,
		BatchSize:  e.params.BatchSize,
		DataFactor: e.params.DataFactor,
		RenderTraj: e.params.RenderTraj,
		UseNearest: e.params.UseNearest,
		StartFrame: job.GOP.StartFrame,
		GOPSize:    job.GOP.Length,
		RateIndex:  job.Rate.Index,
	}
}
