package signals

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
	"github.com/suivideflotte/fleet-intel/app/metrics"
)

const (
	DefaultNewsLimit = 5
	notAvailable     = "N/A"
	sourceCustomKey  = "source"
)

// sourceTranslator keeps the RSS <source> title, which the universal item drops.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	result, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}

	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return result, nil
	}

	for i, item := range rssFeed.Items {
		if i >= len(result.Items) || item.Source == nil || item.Source.Title == "" {
			continue
		}
		if result.Items[i].Custom == nil {
			result.Items[i].Custom = make(map[string]string)
		}
		result.Items[i].Custom[sourceCustomKey] = item.Source.Title
	}

	return result, nil
}

// NewsFetcher searches the news RSS endpoint for recent fleet-telematics coverage
// of a competitor.
type NewsFetcher struct {
	client   *resty.Client
	endpoint string
	limit    int
	metrics  *metrics.Metrics
}

func NewNewsFetcher(client *resty.Client, endpoint string, m *metrics.Metrics) *NewsFetcher {
	return &NewsFetcher{
		client:   client,
		endpoint: endpoint,
		limit:    DefaultNewsLimit,
		metrics:  m,
	}
}

// SearchURL builds the localized French search query for a competitor name.
func (f *NewsFetcher) SearchURL(name string) string {
	query := fmt.Sprintf(`%s France (télématique OR "gestion de flotte")`, name)
	return f.endpoint + "?q=" + url.QueryEscape(query) + "&hl=fr&gl=FR&ceid=FR:fr"
}

func (f *NewsFetcher) Fetch(ctx context.Context, name string) Result[[]NewsItem] {
	start := time.Now()
	result := f.fetch(ctx, name)
	result.FetchedAt = time.Now()

	f.metrics.ObserveFetch(SignalNews, string(result.Outcome), time.Since(start))
	if result.Err != nil {
		slog.Warn("News fetch failed", "competitor", name, "error", result.Err)
	} else {
		slog.Debug("News fetched", "competitor", name, "items", len(result.Value))
	}

	return result
}

func (f *NewsFetcher) fetch(ctx context.Context, name string) Result[[]NewsItem] {
	body, err := fetchPage(ctx, f.client, f.SearchURL(name), nil)
	if err != nil {
		return Result[[]NewsItem]{Value: []NewsItem{}, Outcome: OutcomeFailed, Err: err}
	}

	parser := gofeed.NewParser()
	parser.RSSTranslator = &sourceTranslator{}

	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return Result[[]NewsItem]{
			Value:   []NewsItem{},
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("failed to parse news feed: %w", err),
		}
	}

	items := make([]NewsItem, 0, f.limit)
	for _, item := range feed.Items {
		if len(items) >= f.limit {
			break
		}
		items = append(items, toNewsItem(item))
	}

	outcome := OutcomeOK
	if len(items) == 0 {
		outcome = OutcomeEmpty
	}

	return Result[[]NewsItem]{Value: items, Outcome: outcome}
}

func toNewsItem(item *gofeed.Item) NewsItem {
	news := NewsItem{
		Title:         item.Title,
		Link:          item.Link,
		PublishedDate: item.Published,
		SourceName:    item.Custom[sourceCustomKey],
	}

	if news.PublishedDate == "" {
		news.PublishedDate = notAvailable
	}
	if news.SourceName == "" {
		news.SourceName = notAvailable
	}

	return news
}
