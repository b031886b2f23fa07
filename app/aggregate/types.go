package aggregate

import (
	"time"

	"github.com/suivideflotte/fleet-intel/app/database"
	"github.com/suivideflotte/fleet-intel/app/registry"
	"github.com/suivideflotte/fleet-intel/app/signals"
)

// RecruitingAlertThreshold is the job count from which a competitor's hiring
// is flagged.
const RecruitingAlertThreshold = 3

type CompetitorRecord struct {
	Competitor    registry.Competitor                   `json:"competitor"`
	News          signals.Result[[]signals.NewsItem]    `json:"news"`
	Jobs          signals.Result[[]signals.JobPosting]  `json:"jobs"`
	Keywords      signals.Result[[]string]              `json:"keywords"`
	Events        signals.Result[[]string]              `json:"events"`
	Followers     signals.Result[signals.FollowerCount] `json:"followers"`
	KeywordChange *database.KeywordChange               `json:"keyword_change,omitempty"`
}

// Snapshot converts the record into a history row. It reports false when the
// homepage scan failed: an unreachable page says nothing about its keywords.
func (r CompetitorRecord) Snapshot() (database.Snapshot, bool) {
	if r.Keywords.Failed() {
		return database.Snapshot{}, false
	}

	return database.Snapshot{
		Competitor:   r.Competitor.Name,
		Keywords:     r.Keywords.Value,
		Events:       r.Events.Value,
		JobCount:     len(r.Jobs.Value),
		ArticleCount: len(r.News.Value),
		Followers:    r.Followers.Value.Value,
		RecordedAt:   r.Keywords.FetchedAt,
	}, true
}

type SocialRow struct {
	Competitor string `json:"competitor"`
	Followers  int    `json:"followers"`
	Estimated  bool   `json:"estimated"`
	Color      string `json:"color"`
}

type TrackerRow struct {
	Competitor string   `json:"competitor"`
	Keywords   []string `json:"keywords"`
	Events     []string `json:"events"`
}

type JobRank struct {
	Competitor string `json:"competitor"`
	Count      int    `json:"count"`
	IsSelf     bool   `json:"is_self"`
	Color      string `json:"color"`
}

type RecruiterAlert struct {
	Competitor string `json:"competitor"`
	Count      int    `json:"count"`
}

type Summary struct {
	CompetitorCount        int             `json:"competitor_count"`
	ArticleCount           int             `json:"article_count"`
	JobCount               int             `json:"job_count"`
	JobRanking             []JobRank       `json:"job_ranking"`
	TopRecruiter           *RecruiterAlert `json:"top_recruiter,omitempty"`
	FollowersAuthoritative bool            `json:"followers_authoritative"`
	GeneratedAt            time.Time       `json:"generated_at"`
}

type Report struct {
	Records []CompetitorRecord `json:"records"`
	Social  []SocialRow        `json:"social"`
	Tracker []TrackerRow       `json:"tracker"`
	Summary Summary            `json:"summary"`
}
