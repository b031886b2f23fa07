package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// SnapshotRepository handles database operations for competitor snapshots
type SnapshotRepository struct {
	db  *DB
	now func() time.Time
}

func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// RecordIfChanged stores the snapshot when its keyword set differs from the
// competitor's latest stored snapshot, or when none exists yet. It reports
// whether a row was written.
func (r *SnapshotRepository) RecordIfChanged(ctx context.Context, snapshot Snapshot) (bool, error) {
	latest, err := r.History(ctx, snapshot.Competitor, 1)
	if err != nil {
		return false, err
	}

	if len(latest) == 1 && sameSet(latest[0].Keywords, snapshot.Keywords) {
		return false, nil
	}

	if snapshot.RecordedAt.IsZero() {
		snapshot.RecordedAt = r.now()
	}

	keywords, err := json.Marshal(nonNil(snapshot.Keywords))
	if err != nil {
		return false, fmt.Errorf("failed to encode keywords: %w", err)
	}
	events, err := json.Marshal(nonNil(snapshot.Events))
	if err != nil {
		return false, fmt.Errorf("failed to encode events: %w", err)
	}

	var followers sql.NullInt64
	if snapshot.Followers != nil {
		followers = sql.NullInt64{Int64: int64(*snapshot.Followers), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO competitor_snapshots (
			competitor, keywords, events, job_count, article_count, followers, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snapshot.Competitor, string(keywords), string(events), snapshot.JobCount,
		snapshot.ArticleCount, followers, snapshot.RecordedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return true, nil
}

// LatestChange diffs the two most recent snapshots of a competitor. It returns
// nil when fewer than two exist.
func (r *SnapshotRepository) LatestChange(ctx context.Context, competitor string) (*KeywordChange, error) {
	snapshots, err := r.History(ctx, competitor, 2)
	if err != nil {
		return nil, err
	}

	if len(snapshots) < 2 {
		return nil, nil
	}

	current, previous := snapshots[0], snapshots[1]

	return &KeywordChange{
		Added:      difference(current.Keywords, previous.Keywords),
		Removed:    difference(previous.Keywords, current.Keywords),
		DetectedAt: current.RecordedAt,
	}, nil
}

// History returns up to limit snapshots of a competitor, newest first.
func (r *SnapshotRepository) History(ctx context.Context, competitor string, limit int) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, competitor, keywords, events, job_count, article_count, followers, recorded_at
		FROM competitor_snapshots
		WHERE competitor = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, competitor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var keywords, events string
		var followers sql.NullInt64
		var recordedAt int64

		err := rows.Scan(&s.ID, &s.Competitor, &keywords, &events, &s.JobCount, &s.ArticleCount, &followers, &recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		if err := json.Unmarshal([]byte(keywords), &s.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
		if err := json.Unmarshal([]byte(events), &s.Events); err != nil {
			return nil, fmt.Errorf("failed to decode events: %w", err)
		}
		if followers.Valid {
			n := int(followers.Int64)
			s.Followers = &n
		}
		s.RecordedAt = time.UnixMilli(recordedAt)

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

func sameSet(a, b []string) bool {
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(slices.Compact(x), slices.Compact(y))
}

// difference keeps the order of a.
func difference(a, b []string) []string {
	result := []string{}
	for _, s := range a {
		if !slices.Contains(b, s) {
			result = append(result, s)
		}
	}
	return result
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
