package recorder

import (
	"fmt"
	"sync"
	"time"
)

// Task is a handle to a background job started through a Slot.
type Task struct {
	Name      string
	StartedAt time.Time

	done chan struct{}
	err  error
}

// Done is closed when the job has returned and the slot is free again.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the job's error. Valid after Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Finished reports, without blocking, whether the job has returned.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Slot admits at most one running task. Starting while occupied is refused,
// not queued.
type Slot struct {
	mu   sync.Mutex
	task *Task
}

// TryStart runs fn in a new goroutine if the slot is empty. The slot is
// released before the returned task's Done channel closes.
func (s *Slot) TryStart(name string, fn func() error) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil {
		return nil, false
	}

	t := &Task{Name: name, StartedAt: time.Now(), done: make(chan struct{})}
	s.task = t
	go s.run(t, fn)
	return t, true
}

func (s *Slot) run(t *Task, fn func() error) {
	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, p)
		}
		s.mu.Lock()
		t.err = err
		s.task = nil
		s.mu.Unlock()
		close(t.done)
	}()
	err = fn()
}

// Active returns the running task, or nil.
func (s *Slot) Active() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// Busy reports whether a task is running.
func (s *Slot) Busy() bool {
	return s.Active() != nil
}

// Wait blocks until the running task, if any, has finished.
func (s *Slot) Wait() {
	if t := s.Active(); t != nil {
		<-t.done
	}
}
