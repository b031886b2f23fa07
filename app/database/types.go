package database

import (
	"time"
)

// Snapshot is one recorded observation of a competitor's signals.
type Snapshot struct {
	ID           int64
	Competitor   string
	Keywords     []string // Strategic keyword hits in configured order
	Events       []string // Trade show mentions
	JobCount     int
	ArticleCount int
	Followers    *int // Only authoritative counts are stored
	RecordedAt   time.Time
}

// KeywordChange is the difference between a competitor's two latest snapshots.
type KeywordChange struct {
	Added      []string  `json:"added"`
	Removed    []string  `json:"removed"`
	DetectedAt time.Time `json:"detected_at"`
}

func (c *KeywordChange) Empty() bool {
	return c == nil || (len(c.Added) == 0 && len(c.Removed) == 0)
}
