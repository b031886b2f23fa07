package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

type TaskType string

const (
	TaskTypeRefreshCompetitor TaskType = "refresh_competitor"
)

// Trigger records why a refresh was queued.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

const (
	DefaultMaxRetries = 3

	maxRetryDelay = 30 * time.Second
)

var taskSequence atomic.Uint64

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetCompetitorName() string
	GetTrigger() Trigger
	Attempts() int
	// NextRetry consumes one retry and returns the delay before it, doubling
	// from base and capped at 30s. It reports false once retries are spent.
	NextRetry(base time.Duration) (time.Duration, bool)
	Start()
	GetDuration() time.Duration
}

// Task holds the bookkeeping shared by every refresh task. Only the worker
// currently running a task touches it.
type Task struct {
	ID         string
	Type       TaskType
	Competitor string
	Trigger    Trigger
	Retries    int
	MaxRetries int
	StartedAt  time.Time
}

func NewTask(taskType TaskType, competitor string, trigger Trigger) Task {
	return Task{
		ID:         fmt.Sprintf("%s/%s#%d", taskType, competitor, taskSequence.Add(1)),
		Type:       taskType,
		Competitor: competitor,
		Trigger:    trigger,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetCompetitorName() string {
	return t.Competitor
}

func (t *Task) GetTrigger() Trigger {
	return t.Trigger
}

// Attempts counts executions so far, the first one included.
func (t *Task) Attempts() int {
	return t.Retries + 1
}

func (t *Task) NextRetry(base time.Duration) (time.Duration, bool) {
	if t.Retries >= t.MaxRetries {
		return 0, false
	}

	delay := base << t.Retries
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	t.Retries++

	return delay, true
}

func (t *Task) Start() {
	t.StartedAt = time.Now()
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}
