package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suivideflotte/fleet-intel/app/aggregate"
	"github.com/suivideflotte/fleet-intel/app/api"
	"github.com/suivideflotte/fleet-intel/app/cache"
	"github.com/suivideflotte/fleet-intel/app/cfg"
	"github.com/suivideflotte/fleet-intel/app/database"
	"github.com/suivideflotte/fleet-intel/app/metrics"
	"github.com/suivideflotte/fleet-intel/app/registry"
	"github.com/suivideflotte/fleet-intel/app/render"
	"github.com/suivideflotte/fleet-intel/app/session"
	"github.com/suivideflotte/fleet-intel/app/signals"
	"github.com/suivideflotte/fleet-intel/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting fleet-intel", "version", appCfg.Version)

	reg, err := registry.Load(appCfg.RegistryFile)
	if err != nil {
		slog.Error("Failed to load competitor registry", "error", err)
		os.Exit(1)
	}
	slog.Info("Registry loaded", "competitors", reg.Count())

	m := metrics.New(nil)
	group := cache.NewGroup(m)
	caches := aggregate.NewCaches(aggregate.TTLs{
		News:      appCfg.NewsTTL,
		Jobs:      appCfg.JobsTTL,
		Keywords:  appCfg.KeywordsTTL,
		Followers: appCfg.FollowersTTL,
	}, cache.WithGroup(group), cache.WithMetrics(m))

	client := signals.NewHTTPClient(signals.ClientOptions{
		UserAgent:        appCfg.UserAgent,
		Timeout:          appCfg.HTTPTimeout,
		CloudflareBypass: appCfg.CloudflareBypass,
	})

	sessions := session.NewStore()

	var history database.SnapshotStore
	if appCfg.HistoryDB != "" {
		db, err := database.Open(appCfg.HistoryDB)
		if err != nil {
			slog.Error("Failed to open history database", "path", appCfg.HistoryDB, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		history = database.NewSnapshotRepository(db)
	} else {
		slog.Info("Keyword history disabled (HISTORY_DB not set)")
	}

	agg := aggregate.New(aggregate.Options{
		Registry:    reg,
		Sessions:    sessions,
		News:        signals.NewNewsFetcher(client, appCfg.NewsEndpoint, m),
		Jobs:        signals.NewJobFetcher(client, appCfg.JobsEndpoint, m),
		Followers:   signals.NewFollowerFetcher(client, m),
		Keywords:    signals.NewKeywordScanner(client, m),
		Caches:      caches,
		History:     history,
		Concurrency: appCfg.WorkerCount,
	})

	if appCfg.Report {
		if err := runReport(agg, history, appCfg.Competitors); err != nil {
			slog.Error("Report failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(appCfg, agg, reg, sessions, group, history, m); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// runReport collects once, records the keyword snapshots and prints the tables.
func runReport(agg *aggregate.Aggregator, history database.SnapshotStore, names []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report := agg.Collect(ctx, names)

	if history != nil {
		for _, record := range report.Records {
			snapshot, ok := record.Snapshot()
			if !ok {
				continue
			}
			if _, err := history.RecordIfChanged(ctx, snapshot); err != nil {
				return fmt.Errorf("failed to record snapshot for %s: %w", record.Competitor.Name, err)
			}
		}
	}

	render.Report(os.Stdout, report)
	return nil
}

func serve(appCfg *cfg.Cfg, agg *aggregate.Aggregator, reg *registry.Registry, sessions *session.Store,
	group *cache.Group, history database.SnapshotStore, m *metrics.Metrics) error {
	if appCfg.RefreshSchedule != "" {
		scheduler, err := tasks.NewScheduler(reg, agg, history, m, appCfg.RefreshSchedule, appCfg.WorkerCount)
		if err != nil {
			return err
		}
		slog.Info("Starting background refresh", "schedule", appCfg.RefreshSchedule, "workers", appCfg.WorkerCount)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("Background refresh disabled (REFRESH_SCHEDULE empty)")
	}

	server := api.NewServer(api.NewHandler(agg, sessions, group), appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		slog.Info("Dashboard available", "url", fmt.Sprintf("http://localhost:%s/", appCfg.Port))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
