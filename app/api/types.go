package api

import (
	"context"

	"github.com/suivideflotte/fleet-intel/app/aggregate"
	"github.com/suivideflotte/fleet-intel/app/cache"
	"github.com/suivideflotte/fleet-intel/app/registry"
)

type ReporterInterface interface {
	Collect(ctx context.Context, names []string) aggregate.Report
	Registry() *registry.Registry
}

var _ ReporterInterface = (*aggregate.Aggregator)(nil)

type CacheInterface interface {
	ClearAll()
	Sizes() map[string]int
}

var _ CacheInterface = (*cache.Group)(nil)

type sessionRequest struct {
	AuthToken string `json:"li_at" form:"li_at"`
	SessionID string `json:"jsessionid" form:"jsessionid"`
}

type dashboardView struct {
	Report        aggregate.Report
	Competitors   []registry.Competitor
	Selected      map[string]bool
	Authenticated bool
	KeyRequired   bool
	Version       string
}
