package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/suivideflotte/fleet-intel/app/database"
	"github.com/suivideflotte/fleet-intel/app/metrics"
	"github.com/suivideflotte/fleet-intel/app/registry"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize   = 300
	taskTimeout     = 5 * time.Minute
	defaultRetryGap = time.Second
)

type Scheduler struct {
	registry    *registry.Registry
	collector   Collector
	history     database.SnapshotStore
	metrics     *metrics.Metrics
	cron        *cron.Cron
	workerCount int
	retryBase   time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler validates the cron schedule; history may be nil.
func NewScheduler(reg *registry.Registry, collector Collector, history database.SnapshotStore,
	m *metrics.Metrics, schedule string, workerCount int) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		registry:    reg,
		collector:   collector,
		history:     history,
		metrics:     m,
		cron:        cron.New(),
		workerCount: workerCount,
		retryBase:   defaultRetryGap,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.enqueueTasks(TriggerSchedule) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start launches the workers, warms every competitor once and then follows
// the cron schedule.
func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueTasks(TriggerStartup)
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks(trigger Trigger) {
	competitors := s.registry.All()

	slog.Debug("Scheduling competitor refresh", "count", len(competitors), "trigger", string(trigger))

	for _, competitor := range competitors {
		task := NewRefreshCompetitorTask(competitor, s.collector, s.history, trigger)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue RefreshCompetitorTask", "competitor", competitor.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.metrics.ObserveRefreshTask("success")
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "attempt", task.Attempts(), "error", err)

	retryDelay, ok := task.NextRetry(s.retryBase)
	if !ok {
		s.metrics.ObserveRefreshTask("failed")
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "attempts", task.Attempts(), "trigger", string(task.GetTrigger()), "last_error", err)
		return
	}

	s.metrics.ObserveRefreshTask("retry")
	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "competitor", task.GetCompetitorName(), "attempt", task.Attempts(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "attempt", task.Attempts(), "error", retryErr)
			}
		}
	}()
}
