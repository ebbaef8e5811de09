package store

import "sync"

// MemoryJournal is an in-memory Journal for runs without a journal path
// configured, and for tests.
type MemoryJournal struct {
	mu   sync.RWMutex
	done map[string]string // taskID -> runID
}

// NewMemoryJournal creates a new in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{done: make(map[string]string)}
}

func (m *MemoryJournal) MarkDone(runID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[taskID] = runID
	return nil
}

func (m *MemoryJournal) IsDone(taskID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.done[taskID]
	return ok, nil
}

func (m *MemoryJournal) CompletedTasks() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]string, 0, len(m.done))
	for id := range m.done {
		tasks = append(tasks, id)
	}
	return tasks, nil
}

func (m *MemoryJournal) Close() error { return nil }
