package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrTaskNotFound is returned when a task ID doesn't exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInterrupted marks tasks that were still running when the process stopped.
	ErrInterrupted = errors.New("task interrupted by restart")
)

type entry struct {
	task   *Task
	done   chan struct{}
	cancel context.CancelFunc
}

// Store holds every task created by the executor.
type Store struct {
	entries map[string]*entry
	order   []string
	mu      sync.RWMutex
}

// NewStore creates an empty task store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) add(t *Task, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[t.ID] = &entry{task: t, done: make(chan struct{}), cancel: cancel}
	s.order = append(s.order, t.ID)
}

// restore inserts a persisted task. Tasks that were still pending or running
// when they were saved can never resume, so they come back failed.
func (s *Store) restore(t *Task, at time.Time) *Task {
	c := t.clone()
	if !c.Status.Terminal() {
		c.Status = StatusFailed
		c.Error = ErrInterrupted.Error()
		c.CompletedAt = &at
	}
	done := make(chan struct{})
	close(done)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.entries[c.ID] = &entry{task: c, done: done, cancel: func() {}}
	return c.clone()
}

// transition moves a task to status `to` and applies fn under the lock.
func (s *Store) transition(id string, to Status, fn func(t *Task)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err := Transition(e.task.Status, to); err != nil {
		return nil, err
	}
	e.task.Status = to
	if fn != nil {
		fn(e.task)
	}
	return e.task.clone(), nil
}

// signal closes the task's completion channel and releases its context.
func (s *Store) signal(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	e.cancel()
	close(e.done)
}

// Get returns a copy of the task.
func (s *Store) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return e.task.clone(), nil
}

// List returns copies of all tasks in creation order.
func (s *Store) List() []*Task {
	return s.filter(func(*Task) bool { return true })
}

// ListByAgent returns the tasks owned by agentID in creation order.
func (s *Store) ListByAgent(agentID string) []*Task {
	return s.filter(func(t *Task) bool { return t.AgentID == agentID })
}

func (s *Store) filter(keep func(*Task) bool) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		if t := s.entries[id].task; keep(t) {
			out = append(out, t.clone())
		}
	}
	return out
}

func (s *Store) doneChan(id string) (<-chan struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return e.done, nil
}

func (s *Store) cancelFunc(id string) (context.CancelFunc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.task.Status.Terminal() {
		return nil, false
	}
	return e.cancel, true
}
