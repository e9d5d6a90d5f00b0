package service

import "sync"

// TaskRegistry tracks in-flight background analyses keyed by upload
// ID. It lets tests await a specific run deterministically instead of
// polling, and lets shutdown await everything still running.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]chan struct{}
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]chan struct{})}
}

// begin registers a task and returns its completion callback
func (t *TaskRegistry) begin(uploadID string) func() {
	done := make(chan struct{})

	t.mu.Lock()
	t.tasks[uploadID] = done
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.tasks, uploadID)
		t.mu.Unlock()
		close(done)
	}
}

// Wait blocks until the task for uploadID finishes. Returns
// immediately if no such task is running.
func (t *TaskRegistry) Wait(uploadID string) {
	t.mu.Lock()
	done, ok := t.tasks[uploadID]
	t.mu.Unlock()

	if ok {
		<-done
	}
}

// WaitAll blocks until every task registered at call time finishes
func (t *TaskRegistry) WaitAll() {
	t.mu.Lock()
	channels := make([]chan struct{}, 0, len(t.tasks))
	for _, done := range t.tasks {
		channels = append(channels, done)
	}
	t.mu.Unlock()

	for _, done := range channels {
		<-done
	}
}
