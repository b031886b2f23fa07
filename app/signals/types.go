package signals

import (
	"encoding/json"
	"time"
)

const (
	SignalNews      = "news"
	SignalFollowers = "followers"
	SignalJobs      = "jobs"
	SignalKeywords  = "keywords"
)

// Outcome tells apart "nothing found" from "could not look".
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeEmpty       Outcome = "empty"
	OutcomeFailed      Outcome = "failed"
	OutcomePlaceholder Outcome = "placeholder"
	OutcomeSkipped     Outcome = "skipped"
)

// Result is what every fetcher returns instead of an error. Value is always
// usable: an empty or placeholder value accompanies a failure.
type Result[T any] struct {
	Value     T
	Outcome   Outcome
	Err       error
	FetchedAt time.Time
}

func (r Result[T]) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// ErrorMessage returns the failure cause or an empty string.
func (r Result[T]) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value     T         `json:"value"`
		Outcome   Outcome   `json:"outcome"`
		Error     string    `json:"error,omitempty"`
		FetchedAt time.Time `json:"fetched_at"`
	}{
		Value:     r.Value,
		Outcome:   r.Outcome,
		Error:     r.ErrorMessage(),
		FetchedAt: r.FetchedAt,
	})
}

type NewsItem struct {
	Title         string `json:"title"`
	Link          string `json:"link"`
	PublishedDate string `json:"published_date"`
	SourceName    string `json:"source"`
}

type JobPosting struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	SourceName string `json:"source"`
	Synthetic  bool   `json:"synthetic"`
}

type FollowerCount struct {
	Value         *int `json:"value"`
	Authoritative bool `json:"authoritative"`
}
