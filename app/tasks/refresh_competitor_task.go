package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suivideflotte/fleet-intel/app/database"
	"github.com/suivideflotte/fleet-intel/app/registry"
)

// RefreshCompetitorTask warms the caches for one competitor and records a
// history snapshot when its keyword set changed.
type RefreshCompetitorTask struct {
	Task
	competitor registry.Competitor
	collector  Collector
	history    database.SnapshotStore
}

func NewRefreshCompetitorTask(competitor registry.Competitor, collector Collector, history database.SnapshotStore, trigger Trigger) *RefreshCompetitorTask {
	return &RefreshCompetitorTask{
		Task:       NewTask(TaskTypeRefreshCompetitor, competitor.Name, trigger),
		competitor: competitor,
		collector:  collector,
		history:    history,
	}
}

func (t *RefreshCompetitorTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	record := t.collector.CollectOne(ctx, t.competitor)

	recorded := false
	if snapshot, ok := record.Snapshot(); ok && t.history != nil {
		written, err := t.history.RecordIfChanged(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("failed to record snapshot: %w", err)
		}
		recorded = written
	} else if !ok {
		slog.Debug("Keyword scan failed, snapshot skipped", "competitor", t.Competitor)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"competitor", t.Competitor,
		"trigger", string(t.Trigger),
		"attempt", t.Attempts(),
		"articles", len(record.News.Value),
		"jobs", len(record.Jobs.Value),
		"keywords", len(record.Keywords.Value),
		"snapshot_recorded", recorded,
		"duration", t.GetDuration().String())

	return nil
}
