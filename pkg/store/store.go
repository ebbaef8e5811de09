// Package store persists per-task completion, enabling idempotent resume
// of an interrupted grid run.
package store

// Journal records which (job, phase) tasks finished in earlier runs.
// Keys are task IDs of the form scene/rN/gM:phase.
type Journal interface {
	// MarkDone records a finished task for the given run.
	MarkDone(runID, taskID string) error

	// IsDone reports whether a task finished in any previous run.
	IsDone(taskID string) (bool, error)

	// CompletedTasks lists all task IDs recorded as done.
	CompletedTasks() ([]string, error)

	Close() error
}
