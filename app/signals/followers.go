package signals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/suivideflotte/fleet-intel/app/metrics"
	"github.com/suivideflotte/fleet-intel/app/session"
)

const (
	minPlausibleFollowers = 10
	maxPlausibleFollowers = 10_000_000
)

var errNoFollowerCount = errors.New("no plausible follower count found in profile page")

// Ordered by reliability. RE2's \s is ASCII only, so the no-break spaces used
// as French thousands separators are listed explicitly.
var followerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"followerCount":\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d[\d\s\x{00a0}\x{202f}.,]+)[\s\x{00a0}\x{202f}]*(?:abonnés|followers)`),
}

// FollowerFetcher reads the follower count from an authenticated social
// profile page.
type FollowerFetcher struct {
	client  *resty.Client
	metrics *metrics.Metrics
}

func NewFollowerFetcher(client *resty.Client, m *metrics.Metrics) *FollowerFetcher {
	return &FollowerFetcher{client: client, metrics: m}
}

// Fetch makes no request when creds is nil.
func (f *FollowerFetcher) Fetch(ctx context.Context, profileURL string, creds *session.Credentials) Result[FollowerCount] {
	if creds == nil {
		return Result[FollowerCount]{Outcome: OutcomeSkipped, FetchedAt: time.Now()}
	}

	start := time.Now()
	result := f.fetch(ctx, profileURL, creds)
	result.FetchedAt = time.Now()

	f.metrics.ObserveFetch(SignalFollowers, string(result.Outcome), time.Since(start))
	if result.Err != nil {
		slog.Warn("Follower fetch failed", "url", profileURL, "error", result.Err)
	} else {
		slog.Debug("Followers fetched", "url", profileURL, "followers", *result.Value.Value)
	}

	return result
}

func (f *FollowerFetcher) fetch(ctx context.Context, profileURL string, creds *session.Credentials) Result[FollowerCount] {
	// Cookie values go out verbatim: JSESSIONID is usually quoted and
	// net/http would strip the quotes.
	headers := map[string]string{
		"Cookie": fmt.Sprintf("%s=%s; %s=%s",
			session.CookieAuthToken, creds.AuthToken,
			session.CookieSessionID, creds.SessionID),
	}

	body, err := fetchPage(ctx, f.client, profileURL, headers)
	if err != nil {
		return Result[FollowerCount]{Outcome: OutcomeFailed, Err: err}
	}

	count, ok := ExtractFollowerCount(string(body))
	if !ok {
		return Result[FollowerCount]{Outcome: OutcomeFailed, Err: errNoFollowerCount}
	}

	return Result[FollowerCount]{
		Value:   FollowerCount{Value: &count, Authoritative: true},
		Outcome: OutcomeOK,
	}
}

// ExtractFollowerCount applies the patterns in order and returns the first
// match whose value lies strictly between the plausibility bounds.
func ExtractFollowerCount(page string) (int, bool) {
	for _, pattern := range followerPatterns {
		match := pattern.FindStringSubmatch(page)
		if match == nil {
			continue
		}

		count, err := strconv.Atoi(stripSeparators(match[1]))
		if err != nil {
			continue
		}

		if count > minPlausibleFollowers && count < maxPlausibleFollowers {
			return count, true
		}
	}

	return 0, false
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || r == '.' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
