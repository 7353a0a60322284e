package tool

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

// writeStub writes an executable /bin/sh script named name into root.
func writeStub(t *testing.T, root, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	return path
}

func newTestExecutor(t *testing.T, root string) *Executor {
	t.Helper()
	return NewExecutor(ExecutorConfig{
		Resolver: Resolver{Root: root},
		WorkDir:  t.TempDir(),
		Logger:   discardLogger(),
	})
}

func newTestExecutorWithTimeout(t *testing.T, root string, usageTimeout time.Duration) *Executor {
	t.Helper()
	return NewExecutor(ExecutorConfig{
		Resolver:     Resolver{Root: root},
		WorkDir:      t.TempDir(),
		UsageTimeout: usageTimeout,
		Logger:       discardLogger(),
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingObserver struct {
	mu           sync.Mutex
	observations []ExecuteObservation
}

func (r *recordingObserver) ObserveExecute(observation ExecuteObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observation)
}

func (r *recordingObserver) all() []ExecuteObservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ExecuteObservation(nil), r.observations...)
}

// installObserver replaces the process-wide observer for the duration of a test.
func installObserver(t *testing.T) *recordingObserver {
	t.Helper()
	observer := &recordingObserver{}
	SetObserver(observer)
	t.Cleanup(func() { SetObserver(nil) })
	return observer
}
