package aggregate

import (
	"context"

	"github.com/suivideflotte/fleet-intel/app/session"
	"github.com/suivideflotte/fleet-intel/app/signals"
)

type NewsSource interface {
	Fetch(ctx context.Context, name string) signals.Result[[]signals.NewsItem]
}

type JobSource interface {
	Fetch(ctx context.Context, name string) signals.Result[[]signals.JobPosting]
}

type FollowerSource interface {
	Fetch(ctx context.Context, profileURL string, creds *session.Credentials) signals.Result[signals.FollowerCount]
}

type KeywordSource interface {
	Scan(ctx context.Context, pageURL string, keywords []string) signals.Result[[]string]
}
