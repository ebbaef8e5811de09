// Package shutdown coordinates teardown of a grid run.
//
// A SIGINT or SIGTERM cancels the run context, which stops the scheduler
// from dispatching further tasks and terminates in-flight trainer
// invocations; registered cleanup functions (journal, metrics server)
// then run in reverse order.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Manager handles graceful shutdown
type Manager struct {
	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
	timeout      time.Duration
}

// New creates a new shutdown manager
func New(timeout time.Duration) *Manager {
	return &Manager{
		cleanupFuncs: make([]func(context.Context) error, 0),
		timeout:      timeout,
	}
}

// Register adds a cleanup function.
// Functions are called in reverse order (LIFO).
func (m *Manager) Register(fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupFuncs = append(m.cleanupFuncs, fn)
}

// Context derives a context from parent that is cancelled on SIGINT or
// SIGTERM. The returned stop function releases the signal handler.
func (m *Manager) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Printf("\nReceived signal: %v\n", sig)
			fmt.Println("Cancelling run, terminating in-flight trainer invocations...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// Shutdown executes all registered cleanup functions
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	// Execute cleanup functions in reverse order (LIFO)
	for i := len(m.cleanupFuncs) - 1; i >= 0; i-- {
		fn := m.cleanupFuncs[i]

		if err := fn(ctx); err != nil {
			fmt.Printf("Cleanup function %d error: %v\n", i, err)
		}
	}
}

// StopHTTPServer creates a cleanup function for http.Server
func StopHTTPServer(server interface{ Shutdown(context.Context) error }, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		fmt.Printf("Stopping %s HTTP server...\n", name)
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop %s server: %w", name, err)
		}
		return nil
	}
}

// CloseResource creates a cleanup function for io.Closer
func CloseResource(closer interface{ Close() error }, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", name, err)
		}
		return nil
	}
}
