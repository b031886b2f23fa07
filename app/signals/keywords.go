package signals

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/suivideflotte/fleet-intel/app/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// KeywordScanner reports which keywords appear anywhere in a web page's text.
type KeywordScanner struct {
	client  *resty.Client
	metrics *metrics.Metrics
}

func NewKeywordScanner(client *resty.Client, m *metrics.Metrics) *KeywordScanner {
	return &KeywordScanner{client: client, metrics: m}
}

func (s *KeywordScanner) Scan(ctx context.Context, pageURL string, keywords []string) Result[[]string] {
	start := time.Now()
	result := s.scan(ctx, pageURL, keywords)
	result.FetchedAt = time.Now()

	s.metrics.ObserveFetch(SignalKeywords, string(result.Outcome), time.Since(start))
	if result.Err != nil {
		slog.Warn("Keyword scan failed", "url", pageURL, "error", result.Err)
	} else {
		slog.Debug("Keywords scanned", "url", pageURL, "hits", len(result.Value))
	}

	return result
}

func (s *KeywordScanner) scan(ctx context.Context, pageURL string, keywords []string) Result[[]string] {
	body, err := fetchPage(ctx, s.client, pageURL, nil)
	if err != nil {
		return Result[[]string]{Value: []string{}, Outcome: OutcomeFailed, Err: err}
	}

	text, err := pageText(body)
	if err != nil {
		return Result[[]string]{Value: []string{}, Outcome: OutcomeFailed, Err: err}
	}

	hits := MatchKeywords(text, keywords)
	outcome := OutcomeOK
	if len(hits) == 0 {
		outcome = OutcomeEmpty
	}

	return Result[[]string]{Value: hits, Outcome: outcome}
}

func pageText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	return doc.Text(), nil
}

// MatchKeywords returns, in input order and without duplicates, the keywords
// whose folded form is a substring of the folded text. There is no word
// boundary check: "IA" matches inside "social".
func MatchKeywords(text string, keywords []string) []string {
	// Casers keep state and must not be shared between goroutines.
	caser := cases.Lower(language.French)
	haystack := caser.String(norm.NFC.String(text))

	hits := []string{}
	seen := make(map[string]bool, len(keywords))

	for _, keyword := range keywords {
		needle := caser.String(norm.NFC.String(strings.TrimSpace(keyword)))
		if needle == "" || seen[needle] {
			continue
		}
		seen[needle] = true

		if strings.Contains(haystack, needle) {
			hits = append(hits, keyword)
		}
	}

	return hits
}
