package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Job is a unit of delayed work. OnCancel runs instead of Run when the task is
// cancelled before it starts.
type Job struct {
	Name     string
	Delay    time.Duration
	Run      func()
	OnCancel func()
}

type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskDone
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	case TaskCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Task is a scheduled Job
type Task struct {
	ID    uint64
	Name  string
	DueAt time.Time

	q     *DelayQueue
	job   Job
	timer clockwork.Timer
	state TaskState
}

// TaskInfo is a point-in-time view of a pending task
type TaskInfo struct {
	ID    uint64
	Name  string
	DueAt time.Time
}

// DelayQueue runs jobs after a delay on the given clock. Every task runs in its own goroutine.
type DelayQueue struct {
	clock clockwork.Clock

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*Task
	stopped bool
	wg      sync.WaitGroup
}

// NewDelayQueue creates a queue. A nil clock means the wall clock.
func NewDelayQueue(clock clockwork.Clock) *DelayQueue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DelayQueue{
		clock:   clock,
		pending: make(map[uint64]*Task),
	}
}

// Clock returns the clock the queue schedules on
func (q *DelayQueue) Clock() clockwork.Clock {
	return q.clock
}

// Schedule registers job to run once its delay has elapsed. A stopped queue
// cancels the job immediately.
func (q *DelayQueue) Schedule(job Job) *Task {
	q.mu.Lock()
	q.nextID++
	t := &Task{
		ID:    q.nextID,
		Name:  job.Name,
		DueAt: q.clock.Now().Add(job.Delay),
		q:     q,
		job:   job,
		state: TaskPending,
	}
	q.wg.Add(1)
	if q.stopped {
		q.mu.Unlock()
		t.Cancel()
		return t
	}
	q.pending[t.ID] = t
	q.mu.Unlock()

	// the timer may fire before it is stored; fire only looks at state
	timer := q.clock.AfterFunc(job.Delay, func() { q.fire(t) })

	q.mu.Lock()
	t.timer = timer
	q.mu.Unlock()
	return t
}

func (q *DelayQueue) fire(t *Task) {
	q.mu.Lock()
	if t.state != TaskPending {
		q.mu.Unlock()
		return
	}
	t.state = TaskRunning
	delete(q.pending, t.ID)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		t.state = TaskDone
		q.mu.Unlock()
		q.wg.Done()
	}()

	if t.job.Run != nil {
		t.job.Run()
	}
}

// Cancel stops a task that has not started yet. It reports whether the task was cancelled.
func (t *Task) Cancel() bool {
	q := t.q
	q.mu.Lock()
	if t.state != TaskPending {
		q.mu.Unlock()
		return false
	}
	t.state = TaskCancelled
	delete(q.pending, t.ID)
	if t.timer != nil {
		t.timer.Stop()
	}
	q.mu.Unlock()

	if t.job.OnCancel != nil {
		t.job.OnCancel()
	}
	q.wg.Done()
	return true
}

func (t *Task) State() TaskState {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.state
}

// Pending returns the tasks still waiting for their delay, soonest first
func (q *DelayQueue) Pending() []TaskInfo {
	q.mu.Lock()
	infos := make([]TaskInfo, 0, len(q.pending))
	for _, t := range q.pending {
		infos = append(infos, TaskInfo{ID: t.ID, Name: t.Name, DueAt: t.DueAt})
	}
	q.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].DueAt.Equal(infos[j].DueAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].DueAt.Before(infos[j].DueAt)
	})
	return infos
}

// Len is the number of pending tasks
func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until every scheduled task has run or been cancelled, or ctx is done.
func (q *DelayQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels every pending task and rejects new ones. Running tasks are left to finish.
// It returns the number of cancelled tasks.
func (q *DelayQueue) Stop() int {
	q.mu.Lock()
	q.stopped = true
	tasks := make([]*Task, 0, len(q.pending))
	for _, t := range q.pending {
		tasks = append(tasks, t)
	}
	q.mu.Unlock()

	cancelled := 0
	for _, t := range tasks {
		if t.Cancel() {
			cancelled++
		}
	}
	return cancelled
}
