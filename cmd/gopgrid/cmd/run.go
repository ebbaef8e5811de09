package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pvidal/gopgrid/pkg/config"
	"github.com/pvidal/gopgrid/pkg/deps"
	"github.com/pvidal/gopgrid/pkg/device"
	"github.com/pvidal/gopgrid/pkg/executor"
	"github.com/pvidal/gopgrid/pkg/grid"
	"github.com/pvidal/gopgrid/pkg/logging"
	"github.com/pvidal/gopgrid/pkg/metrics"
	"github.com/pvidal/gopgrid/pkg/models"
	"github.com/pvidal/gopgrid/pkg/paths"
	"github.com/pvidal/gopgrid/pkg/planner"
	"github.com/pvidal/gopgrid/pkg/retry"
	"github.com/pvidal/gopgrid/pkg/sched"
	"github.com/pvidal/gopgrid/pkg/shutdown"
	"github.com/pvidal/gopgrid/pkg/store"
	"github.com/pvidal/gopgrid/pkg/summary"
	"github.com/pvidal/gopgrid/pkg/trainer"
)

var (
	resume      bool
	skipSummary bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full experiment grid",
	Long: `Plans GOP segments, enumerates the grid, builds the task dependency
graph and executes every train and evaluate phase over the configured
device pool. On success the external summary tool is invoked once over
the results root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runGrid(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().BoolVar(&resume, "resume", false, "skip tasks recorded as completed in the journal")
	runCmd.Flags().BoolVar(&skipSummary, "skip-summary", false, "do not invoke the summary tool after the grid finishes")
	rootCmd.AddCommand(runCmd)
}

func runGrid(parent context.Context, cfg *config.Config) error {
	log := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	runID := uuid.New().String()

	host := device.Host()
	log.Info("Starting grid run", map[string]interface{}{
		"run_id":    runID,
		"host":      host.Hostname,
		"cpu_cores": host.CPUCores,
		"mem_gb":    fmt.Sprintf("%.1f", float64(host.TotalMemoryB)/(1<<30)),
	})

	// Plan and enumerate. Any configuration problem surfaces here,
	// before a single task runs.
	segments, err := planner.Plan(cfg.TotalFrames, cfg.FirstFrame, cfg.GOPSize)
	if err != nil {
		return err
	}
	jobs := grid.Enumerate(cfg.Scenes, cfg.Lambdas, segments)
	graph, err := deps.BuildGraph(jobs, cfg.Milestones.Early)
	if err != nil {
		return err
	}

	log.Info("Grid planned", map[string]interface{}{
		"scenes":   len(cfg.Scenes),
		"rates":    len(cfg.Lambdas),
		"segments": len(segments),
		"jobs":     len(jobs),
		"tasks":    graph.Len(),
	})

	sd := shutdown.New(30 * time.Second)
	defer sd.Shutdown()

	ctx, stop := sd.Context(parent)
	defer stop()

	// Journal for idempotent resume.
	var journal store.Journal
	if cfg.JournalPath != "" {
		journal, err = store.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			return err
		}
		sd.Register(shutdown.CloseResource(journal, "run journal"))
	} else {
		journal = store.NewMemoryJournal()
	}
	if resume {
		done, err := journal.CompletedTasks()
		if err != nil {
			return err
		}
		log.Info("Resuming run", map[string]interface{}{"completed_tasks": len(done)})
	}

	// Metrics endpoint, if configured.
	exporter := metrics.NewExporter(len(jobs))
	if cfg.MetricsListen != "" {
		srv := metrics.NewServer(cfg.MetricsListen, exporter)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics server failed", map[string]interface{}{"error": err.Error()})
			}
		}()
		sd.Register(shutdown.StopHTTPServer(srv, "metrics"))
		log.Info("Metrics listening", map[string]interface{}{"addr": cfg.MetricsListen})
	}

	collab, err := trainer.NewExecCollaborator(cfg.TrainerCommand, log)
	if err != nil {
		return err
	}

	backoff, _ := cfg.ParseInitialBackoff()
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Retry.MaxRetries
	retryCfg.InitialBackoff = backoff

	exec := executor.New(collab, executor.Params{
		DataRoot:    cfg.DataRoot,
		ResultsRoot: cfg.ResultsRoot,
		BatchSize:   cfg.BatchSize,
		DataFactor:  cfg.DataFactor,
		RenderTraj:  cfg.RenderTrajectory,
		UseNearest:  cfg.UseNearest,
	}, executor.Milestones{
		Early: cfg.Milestones.Early,
		Final: cfg.Milestones.Final,
	}, retryCfg, log)

	timeout, _ := cfg.ParseTaskTimeout()
	scheduler := sched.New(graph, sched.Config{
		Devices:     device.Pool(cfg.Devices),
		TaskTimeout: timeout,
	}, log)

	runTask := func(ctx context.Context, task *deps.Task, dev device.Compute) error {
		if resume {
			if done, err := journal.IsDone(task.ID()); err == nil && done {
				log.Info("Skipping completed task", map[string]interface{}{"task": task.ID()})
				restoreFromJournal(task, exporter)
				return nil
			}
		}

		loc := paths.JobDir(cfg.ResultsRoot, task.Job)
		start := time.Now()

		var err error
		switch task.Phase {
		case models.PhaseTrain:
			err = exec.Train(ctx, task.Job, task.Spec, loc, dev)
		case models.PhaseEvaluate:
			err = exec.Evaluate(ctx, task.Job, loc, dev)
		default:
			err = fmt.Errorf("unknown phase %q", task.Phase)
		}

		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		exporter.RecordTask(string(task.Phase), outcome, time.Since(start))

		if err != nil {
			exporter.RecordJob(string(models.JobStatusFailed))
			return err
		}
		if markErr := journal.MarkDone(runID, task.ID()); markErr != nil {
			log.Warn("Failed to journal task", map[string]interface{}{
				"task": task.ID(), "error": markErr.Error(),
			})
		}
		if task.Phase == models.PhaseEvaluate {
			exporter.RecordJob(string(models.JobStatusCompleted))
		}
		return nil
	}

	if err := scheduler.Run(ctx, runTask); err != nil {
		m := scheduler.Metrics()
		for i := 0; i < m.TasksSkipped; i++ {
			exporter.RecordJob(string(models.JobStatusSkipped))
		}
		log.Error("Grid run failed", map[string]interface{}{
			"completed": m.TasksCompleted,
			"failed":    m.TasksFailed,
			"skipped":   m.TasksSkipped,
		})
		return err
	}

	m := scheduler.Metrics()
	log.Info("Grid run completed", map[string]interface{}{
		"run_id": runID,
		"tasks":  m.TasksCompleted,
	})

	if skipSummary || len(cfg.SummaryCommand) == 0 {
		return nil
	}

	agg, err := summary.NewExecAggregator(cfg.SummaryCommand, log)
	if err != nil {
		return err
	}
	return agg.Summarize(ctx, cfg.ResultsRoot)
}

// restoreFromJournal replays a journaled task's status effects so the
// final job picture agrees with the task counters: a restored train phase
// leaves the job mid-flight, a restored evaluate phase completes it.
func restoreFromJournal(task *deps.Task, exporter *metrics.Exporter) {
	switch task.Phase {
	case models.PhaseTrain:
		started := time.Now()
		task.Job.StartedAt = &started
		task.Job.Transition(models.JobStatusRunning, "train phase restored from journal")
	case models.PhaseEvaluate:
		completed := time.Now()
		task.Job.CompletedAt = &completed
		task.Job.Transition(models.JobStatusCompleted, "evaluate phase restored from journal")
		exporter.RecordJob(string(models.JobStatusCompleted))
	}
}
