package signals

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/suivideflotte/fleet-intel/app/metrics"
)

const (
	DefaultJobLimit = 3

	jobCardSelector     = "div.base-card"
	jobTitleSelector    = "h3.base-search-card__title"
	jobLocationSelector = "span.job-search-card__location"

	defaultJobLocation = "France"
	jobSourceName      = "LinkedIn"
)

// Shown when the search page answered but listed nothing usable, including
// blocked pages answered with a non-200 status.
var noListingsPlaceholder = []JobPosting{
	{Title: "Commercial B2B", Location: "Paris", SourceName: "Indeed", Synthetic: true},
}

// Shown when the search page could not be reached or parsed.
var unreachablePlaceholder = []JobPosting{
	{Title: "Poste à pourvoir", Location: "France", SourceName: "LinkedIn", Synthetic: true},
}

// JobFetcher scrapes the public job search page for a competitor's open
// telematics positions. It never returns an empty list.
type JobFetcher struct {
	client   *resty.Client
	endpoint string
	limit    int
	metrics  *metrics.Metrics
}

func NewJobFetcher(client *resty.Client, endpoint string, m *metrics.Metrics) *JobFetcher {
	return &JobFetcher{
		client:   client,
		endpoint: endpoint,
		limit:    DefaultJobLimit,
		metrics:  m,
	}
}

func (f *JobFetcher) SearchURL(name string) string {
	return f.endpoint + "?keywords=" + url.QueryEscape(name+" télématique") + "&location=France"
}

func (f *JobFetcher) Fetch(ctx context.Context, name string) Result[[]JobPosting] {
	start := time.Now()
	result := f.fetch(ctx, name)
	result.FetchedAt = time.Now()

	f.metrics.ObserveFetch(SignalJobs, string(result.Outcome), time.Since(start))
	if result.Err != nil {
		slog.Warn("Job fetch failed, using placeholder", "competitor", name, "error", result.Err)
	} else {
		slog.Debug("Jobs fetched", "competitor", name, "postings", len(result.Value), "outcome", result.Outcome)
	}

	return result
}

func (f *JobFetcher) fetch(ctx context.Context, name string) Result[[]JobPosting] {
	body, err := fetchPage(ctx, f.client, f.SearchURL(name), nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return placeholderJobs(noListingsPlaceholder, err)
		}
		return placeholderJobs(unreachablePlaceholder, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return placeholderJobs(unreachablePlaceholder, fmt.Errorf("failed to parse job search page: %w", err))
	}

	postings := parseJobCards(doc, f.limit)
	if len(postings) == 0 {
		return placeholderJobs(noListingsPlaceholder, nil)
	}

	return Result[[]JobPosting]{Value: postings, Outcome: OutcomeOK}
}

// parseJobCards inspects at most limit cards; cards without a title are skipped
// and do not free a slot for later ones.
func parseJobCards(doc *goquery.Document, limit int) []JobPosting {
	var postings []JobPosting

	cards := doc.Find(jobCardSelector)
	if cards.Length() > limit {
		cards = cards.Slice(0, limit)
	}

	cards.Each(func(_ int, card *goquery.Selection) {
		title := card.Find(jobTitleSelector).First()
		if title.Length() == 0 {
			return
		}

		location := strings.TrimSpace(card.Find(jobLocationSelector).First().Text())
		if location == "" {
			location = defaultJobLocation
		}

		postings = append(postings, JobPosting{
			Title:      strings.TrimSpace(title.Text()),
			Location:   location,
			SourceName: jobSourceName,
		})
	})

	return postings
}

func placeholderJobs(placeholder []JobPosting, err error) Result[[]JobPosting] {
	value := make([]JobPosting, len(placeholder))
	copy(value, placeholder)
	return Result[[]JobPosting]{Value: value, Outcome: OutcomePlaceholder, Err: err}
}
