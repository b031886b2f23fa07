package aggregate

import (
	"slices"
	"time"
)

func summarize(records []CompetitorRecord, authenticated bool, now time.Time) Summary {
	summary := Summary{
		JobRanking:             rankRecruiters(records),
		FollowersAuthoritative: authenticated,
		GeneratedAt:            now,
	}

	for _, r := range records {
		if !r.Competitor.IsSelf {
			summary.CompetitorCount++
		}
		summary.ArticleCount += len(r.News.Value)
		summary.JobCount += len(r.Jobs.Value)
	}

	summary.TopRecruiter = topRecruiter(summary.JobRanking)

	return summary
}

// rankRecruiters orders competitors by job count, highest first. Ties keep
// selection order.
func rankRecruiters(records []CompetitorRecord) []JobRank {
	ranking := make([]JobRank, 0, len(records))
	for _, r := range records {
		ranking = append(ranking, JobRank{
			Competitor: r.Competitor.Name,
			Count:      len(r.Jobs.Value),
			IsSelf:     r.Competitor.IsSelf,
			Color:      r.Competitor.DisplayColor,
		})
	}

	slices.SortStableFunc(ranking, func(a, b JobRank) int {
		return b.Count - a.Count
	})

	return ranking
}

// topRecruiter raises an alert when the highest job count reaches the
// threshold and a competitor other than self holds it.
func topRecruiter(ranking []JobRank) *RecruiterAlert {
	if len(ranking) == 0 || ranking[0].Count < RecruitingAlertThreshold {
		return nil
	}

	top := ranking[0].Count
	for _, rank := range ranking {
		if rank.Count != top {
			break
		}
		if !rank.IsSelf {
			return &RecruiterAlert{Competitor: rank.Competitor, Count: rank.Count}
		}
	}

	return nil
}

func socialRows(records []CompetitorRecord) []SocialRow {
	rows := make([]SocialRow, 0, len(records))
	for _, r := range records {
		row := SocialRow{
			Competitor: r.Competitor.Name,
			Color:      r.Competitor.DisplayColor,
		}

		if count := r.Followers.Value.Value; count != nil {
			row.Followers = *count
		} else {
			row.Followers = r.Competitor.FollowerEstimate()
			row.Estimated = true
		}

		rows = append(rows, row)
	}
	return rows
}

// trackerRows lists only competitors whose site mentions at least one keyword
// or event.
func trackerRows(records []CompetitorRecord) []TrackerRow {
	rows := []TrackerRow{}
	for _, r := range records {
		if len(r.Keywords.Value) == 0 && len(r.Events.Value) == 0 {
			continue
		}
		rows = append(rows, TrackerRow{
			Competitor: r.Competitor.Name,
			Keywords:   r.Keywords.Value,
			Events:     r.Events.Value,
		})
	}
	return rows
}
