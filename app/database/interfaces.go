package database

import (
	"context"
)

type SnapshotStore interface {
	RecordIfChanged(ctx context.Context, snapshot Snapshot) (bool, error)
	LatestChange(ctx context.Context, competitor string) (*KeywordChange, error)
	History(ctx context.Context, competitor string, limit int) ([]Snapshot, error)
}
