package cmd

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pvidal/gopgrid/pkg/deps"
	"github.com/pvidal/gopgrid/pkg/metrics"
	"github.com/pvidal/gopgrid/pkg/models"
)

func journaledJob() *models.Job {
	return &models.Job{
		Scene:  models.Scene{Name: "sear_steak", Variant: "specular"},
		Rate:   models.RatePoint{Index: 1, Lambda: 0.01},
		GOP:    models.GOPSegment{ID: 2, StartFrame: 120, Length: 60},
		Status: models.JobStatusPending,
	}
}

// TestRestoreFromJournal_TrainPhase tests that a journaled train phase
// moves its job out of pending
func TestRestoreFromJournal_TrainPhase(t *testing.T) {
	job := journaledJob()
	task := &deps.Task{Job: job, Phase: models.PhaseTrain}

	restoreFromJournal(task, metrics.NewExporter(1))

	if job.Status != models.JobStatusRunning {
		t.Errorf("Expected running after restored train, got %s", job.Status)
	}
	if job.StartedAt == nil {
		t.Error("Restored train must set the start timestamp")
	}
}

// TestRestoreFromJournal_EvaluatePhase tests that a journaled evaluate
// phase completes its job and is counted
func TestRestoreFromJournal_EvaluatePhase(t *testing.T) {
	job := journaledJob()
	exporter := metrics.NewExporter(1)

	restoreFromJournal(&deps.Task{Job: job, Phase: models.PhaseTrain}, exporter)
	restoreFromJournal(&deps.Task{Job: job, Phase: models.PhaseEvaluate}, exporter)

	if job.Status != models.JobStatusCompleted {
		t.Errorf("Expected completed after restored evaluate, got %s", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("Restored evaluate must set the completion timestamp")
	}
	if len(job.StateTransitions) != 2 {
		t.Errorf("Expected 2 recorded transitions, got %d", len(job.StateTransitions))
	}

	rec := httptest.NewRecorder()
	exporter.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "gopgrid_jobs_completed 1") {
		t.Error("Restored job must show up in the completed-jobs gauge")
	}
}
