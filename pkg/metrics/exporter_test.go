package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestExporter_ServeHTTP renders recorded counts in the text exposition format.
func TestExporter_ServeHTTP(t *testing.T) {
	e := NewExporter(20)
	e.RecordTask("train", "success", 90*time.Second)
	e.RecordTask("train", "failure", 10*time.Second)
	e.RecordTask("evaluate", "success", 30*time.Second)
	e.RecordJob("completed")
	e.RecordJob("failed")
	e.RecordJob("skipped")
	e.RecordJob("skipped")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`gopgrid_tasks_total{phase="train",outcome="success"} 1`,
		`gopgrid_tasks_total{phase="train",outcome="failure"} 1`,
		`gopgrid_tasks_total{phase="evaluate",outcome="success"} 1`,
		`gopgrid_tasks_total{phase="evaluate",outcome="failure"} 0`,
		"gopgrid_grid_size 20",
		"gopgrid_jobs_completed 1",
		"gopgrid_jobs_failed 1",
		"gopgrid_jobs_skipped 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

// TestServer_Healthz responds OK on the health endpoint.
func TestServer_Healthz(t *testing.T) {
	srv := NewServer(":0", NewExporter(0))
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
