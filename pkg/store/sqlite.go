package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal is a SQLite-backed Journal. It survives process restarts,
// which is what makes --resume work.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database at dbPath.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	// WAL plus a busy timeout so an operator can inspect the journal
	// with the sqlite3 CLI while a run is in flight.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return j, nil
}

// initSchema creates the journal schema
func (j *SQLiteJournal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completed_tasks (
		task_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completed_run ON completed_tasks(run_id);
	`

	_, err := j.db.Exec(schema)
	return err
}

func (j *SQLiteJournal) MarkDone(runID, taskID string) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO completed_tasks (task_id, run_id, completed_at)
		VALUES (?, ?, ?)
	`, taskID, runID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record task %s: %w", taskID, err)
	}
	return nil
}

func (j *SQLiteJournal) IsDone(taskID string) (bool, error) {
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM completed_tasks WHERE task_id = ?`, taskID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query task %s: %w", taskID, err)
	}
	return n > 0, nil
}

func (j *SQLiteJournal) CompletedTasks() ([]string, error) {
	rows, err := j.db.Query(`SELECT task_id FROM completed_tasks ORDER BY completed_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	defer rows.Close()

	var tasks []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tasks = append(tasks, id)
	}
	return tasks, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
