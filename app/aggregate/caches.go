package aggregate

import (
	"time"

	"github.com/suivideflotte/fleet-intel/app/cache"
	"github.com/suivideflotte/fleet-intel/app/session"
	"github.com/suivideflotte/fleet-intel/app/signals"
)

type TTLs struct {
	News      time.Duration
	Jobs      time.Duration
	Keywords  time.Duration
	Followers time.Duration
}

// Caches holds one result cache per signal. Failures are cached like
// successes so a broken source is not hammered on every page view.
type Caches struct {
	News      *cache.Cache[signals.Result[[]signals.NewsItem]]
	Jobs      *cache.Cache[signals.Result[[]signals.JobPosting]]
	Keywords  *cache.Cache[signals.Result[[]string]]
	Followers *cache.Cache[signals.Result[signals.FollowerCount]]
}

func NewCaches(ttls TTLs, opts ...cache.Option) *Caches {
	return &Caches{
		News:      cache.New[signals.Result[[]signals.NewsItem]](signals.SignalNews, ttls.News, opts...),
		Jobs:      cache.New[signals.Result[[]signals.JobPosting]](signals.SignalJobs, ttls.Jobs, opts...),
		Keywords:  cache.New[signals.Result[[]string]](signals.SignalKeywords, ttls.Keywords, opts...),
		Followers: cache.New[signals.Result[signals.FollowerCount]](signals.SignalFollowers, ttls.Followers, opts...),
	}
}

// followerKey scopes follower entries to the credential that produced them.
func followerKey(profileURL string, creds *session.Credentials) string {
	return profileURL + "|" + creds.Fingerprint()
}
