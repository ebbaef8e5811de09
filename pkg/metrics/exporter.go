// Package metrics exposes grid-run progress as Prometheus metrics.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Exporter exports Prometheus metrics for a grid run
type Exporter struct {
	startTime    time.Time
	mu           sync.RWMutex
	tasksByPhase map[string]map[string]int64 // phase -> outcome -> count
	gridSize     int
	jobsDone     int64
	jobsFailed   int64
	jobsSkipped  int64
	taskSeconds  []float64
}

// NewExporter creates a new Prometheus exporter
func NewExporter(gridSize int) *Exporter {
	return &Exporter{
		startTime:    time.Now(),
		tasksByPhase: make(map[string]map[string]int64),
		gridSize:     gridSize,
		taskSeconds:  make([]float64, 0),
	}
}

// RecordTask records a finished task by phase and outcome.
func (e *Exporter) RecordTask(phase, outcome string, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tasksByPhase[phase] == nil {
		e.tasksByPhase[phase] = make(map[string]int64)
	}
	e.tasksByPhase[phase][outcome]++
	e.taskSeconds = append(e.taskSeconds, duration.Seconds())
	// Keep only last 1000 entries
	if len(e.taskSeconds) > 1000 {
		e.taskSeconds = e.taskSeconds[1:]
	}
}

// RecordJob records a job reaching a terminal state.
func (e *Exporter) RecordJob(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch status {
	case "completed":
		e.jobsDone++
	case "failed":
		e.jobsFailed++
	case "skipped":
		e.jobsSkipped++
	}
}

// ServeHTTP serves Prometheus-compatible metrics at /metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	e.mu.RLock()
	fmt.Fprintf(w, "# HELP gopgrid_tasks_total Finished tasks by phase and outcome\n")
	fmt.Fprintf(w, "# TYPE gopgrid_tasks_total counter\n")
	for _, phase := range []string{"train", "evaluate"} {
		for _, outcome := range []string{"success", "failure"} {
			fmt.Fprintf(w, "gopgrid_tasks_total{phase=\"%s\",outcome=\"%s\"} %d\n",
				phase, outcome, e.tasksByPhase[phase][outcome])
		}
	}

	fmt.Fprintf(w, "\n# HELP gopgrid_grid_size Number of jobs in the enumerated grid\n")
	fmt.Fprintf(w, "# TYPE gopgrid_grid_size gauge\n")
	fmt.Fprintf(w, "gopgrid_grid_size %d\n", e.gridSize)

	fmt.Fprintf(w, "\n# HELP gopgrid_jobs_completed Jobs fully trained and evaluated\n")
	fmt.Fprintf(w, "# TYPE gopgrid_jobs_completed gauge\n")
	fmt.Fprintf(w, "gopgrid_jobs_completed %d\n", e.jobsDone)

	fmt.Fprintf(w, "\n# HELP gopgrid_jobs_failed Jobs whose train or evaluate phase failed\n")
	fmt.Fprintf(w, "# TYPE gopgrid_jobs_failed gauge\n")
	fmt.Fprintf(w, "gopgrid_jobs_failed %d\n", e.jobsFailed)

	fmt.Fprintf(w, "\n# HELP gopgrid_jobs_skipped Jobs skipped because a dependency failed\n")
	fmt.Fprintf(w, "# TYPE gopgrid_jobs_skipped gauge\n")
	fmt.Fprintf(w, "gopgrid_jobs_skipped %d\n", e.jobsSkipped)

	var avg float64
	if len(e.taskSeconds) > 0 {
		var sum float64
		for _, s := range e.taskSeconds {
			sum += s
		}
		avg = sum / float64(len(e.taskSeconds))
	}
	fmt.Fprintf(w, "\n# HELP gopgrid_task_duration_seconds Average task duration in seconds\n")
	fmt.Fprintf(w, "# TYPE gopgrid_task_duration_seconds gauge\n")
	fmt.Fprintf(w, "gopgrid_task_duration_seconds %.2f\n", avg)
	e.mu.RUnlock()

	fmt.Fprintf(w, "\n# HELP gopgrid_uptime_seconds Run uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE gopgrid_uptime_seconds gauge\n")
	fmt.Fprintf(w, "gopgrid_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	// Append metrics from the Prometheus default registry (process and
	// Go runtime collectors).
	fmt.Fprintf(w, "\n")

	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}

// NewServer builds an HTTP server exposing the exporter at /metrics.
func NewServer(addr string, exporter *Exporter) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", exporter).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods("GET")

	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
