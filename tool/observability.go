package tool

import (
	"sync"
	"time"
)

// ExecuteObservation captures one adapter invocation outcome.
type ExecuteObservation struct {
	ID          string
	Operation   string
	ToolName    string
	Argv        []string
	StartedAt   time.Time
	DurationMS  int64
	ExitCode    int
	StdoutBytes int
	StderrBytes int
	// Spawned is false when the call failed before a process existed.
	Spawned   bool
	ErrorCode string
}

// Observer receives adapter observability events.
type Observer interface {
	ObserveExecute(observation ExecuteObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveExecute(ExecuteObservation) {}

// MultiObserver fans one observation out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) ObserveExecute(observation ExecuteObservation) {
	for _, observer := range m {
		if observer != nil {
			observer.ObserveExecute(observation)
		}
	}
}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide observer. nil restores the no-op observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func emitExecuteObservation(observation ExecuteObservation) {
	observerMu.RLock()
	observer := activeObserver
	observerMu.RUnlock()
	observer.ObserveExecute(observation)
}
