package tasks

import (
	"context"

	"github.com/suivideflotte/fleet-intel/app/aggregate"
	"github.com/suivideflotte/fleet-intel/app/registry"
)

// TaskSchedulerInterface defines the interface for background refresh.
// Example usage:
//
//	scheduler, err := NewScheduler(registry, aggregator, history, metrics, "@every 1h", 4)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshCompetitorTask(competitor, aggregator, history, TriggerManual))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Collector fetches one competitor's signals through the result caches.
type Collector interface {
	CollectOne(ctx context.Context, competitor registry.Competitor) aggregate.CompetitorRecord
}
