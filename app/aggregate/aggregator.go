// Package aggregate assembles per-competitor signals into a dashboard report.
package aggregate

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/suivideflotte/fleet-intel/app/database"
	"github.com/suivideflotte/fleet-intel/app/registry"
	"github.com/suivideflotte/fleet-intel/app/session"
	"github.com/suivideflotte/fleet-intel/app/signals"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

type Options struct {
	Registry  *registry.Registry
	Sessions  *session.Store
	News      NewsSource
	Jobs      JobSource
	Followers FollowerSource
	Keywords  KeywordSource
	Caches    *Caches

	// History is optional; nil disables keyword change tracking.
	History database.SnapshotStore

	// Concurrency bounds how many competitors are fetched at once.
	Concurrency int
}

type Aggregator struct {
	registry    *registry.Registry
	sessions    *session.Store
	news        NewsSource
	jobs        JobSource
	followers   FollowerSource
	keywords    KeywordSource
	caches      *Caches
	history     database.SnapshotStore
	concurrency int
	now         func() time.Time
}

func New(opts Options) *Aggregator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Aggregator{
		registry:    opts.Registry,
		sessions:    opts.Sessions,
		news:        opts.News,
		jobs:        opts.Jobs,
		followers:   opts.Followers,
		keywords:    opts.Keywords,
		caches:      opts.Caches,
		history:     opts.History,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (a *Aggregator) Registry() *registry.Registry {
	return a.registry
}

// Collect builds the report for the named competitors. The self entry is
// always included and listed first; an empty selection means everyone.
func (a *Aggregator) Collect(ctx context.Context, names []string) Report {
	selection := a.registry.Select(names)
	creds := a.sessions.Credentials()

	records := make([]CompetitorRecord, len(selection))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, competitor := range selection {
		g.Go(func() error {
			records[i] = a.collect(ctx, competitor, creds)
			return nil
		})
	}
	g.Wait()

	report := Report{
		Records: records,
		Social:  socialRows(records),
		Tracker: trackerRows(records),
		Summary: summarize(records, creds != nil, a.now()),
	}

	slog.Info("Report collected",
		"competitors", len(records),
		"articles", report.Summary.ArticleCount,
		"jobs", report.Summary.JobCount,
		"authenticated", creds != nil)

	return report
}

// CollectOne fetches a single competitor through the caches, using the
// current session credential.
func (a *Aggregator) CollectOne(ctx context.Context, competitor registry.Competitor) CompetitorRecord {
	return a.collect(ctx, competitor, a.sessions.Credentials())
}

func (a *Aggregator) collect(ctx context.Context, competitor registry.Competitor, creds *session.Credentials) CompetitorRecord {
	// Cached results outlive the request that triggered them, so a caller
	// going away must not turn into a cached failure.
	fetchCtx := context.WithoutCancel(ctx)

	strategic := a.registry.StrategicKeywords()
	events := a.registry.EventKeywords()

	record := CompetitorRecord{Competitor: competitor}

	record.News = a.caches.News.Get(competitor.Name, func() signals.Result[[]signals.NewsItem] {
		return a.news.Fetch(fetchCtx, competitor.Name)
	})

	record.Jobs = a.caches.Jobs.Get(competitor.Name, func() signals.Result[[]signals.JobPosting] {
		return a.jobs.Fetch(fetchCtx, competitor.Name)
	})

	hits := a.caches.Keywords.Get(competitor.HomepageURL, func() signals.Result[[]string] {
		return a.keywords.Scan(fetchCtx, competitor.HomepageURL, slices.Concat(strategic, events))
	})
	record.Keywords = restrict(hits, strategic)
	record.Events = restrict(hits, events)

	record.Followers = a.caches.Followers.Get(followerKey(competitor.SocialProfileURL, creds), func() signals.Result[signals.FollowerCount] {
		return a.followers.Fetch(fetchCtx, competitor.SocialProfileURL, creds)
	})

	if a.history != nil {
		change, err := a.history.LatestChange(ctx, competitor.Name)
		if err != nil {
			slog.Warn("Failed to load keyword change", "competitor", competitor.Name, "error", err)
		} else if !change.Empty() {
			record.KeywordChange = change
		}
	}

	return record
}

// restrict keeps the hits that belong to subset, in hit order. The page is
// scanned once for all keyword lists.
func restrict(hits signals.Result[[]string], subset []string) signals.Result[[]string] {
	result := hits
	result.Value = []string{}

	for _, hit := range hits.Value {
		if slices.Contains(subset, hit) {
			result.Value = append(result.Value, hit)
		}
	}

	if result.Outcome == signals.OutcomeOK && len(result.Value) == 0 {
		result.Outcome = signals.OutcomeEmpty
	}

	return result
}
