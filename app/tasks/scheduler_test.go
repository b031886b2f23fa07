package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/suivideflotte/fleet-intel/app/aggregate"
	"github.com/suivideflotte/fleet-intel/app/database"
	"github.com/suivideflotte/fleet-intel/app/metrics"
	"github.com/suivideflotte/fleet-intel/app/registry"
	"github.com/suivideflotte/fleet-intel/app/signals"
)

type mockCollector struct {
	mu        sync.Mutex
	collected []string

	// scanFailed makes the homepage keyword scan fail.
	scanFailed bool
}

func (m *mockCollector) CollectOne(_ context.Context, competitor registry.Competitor) aggregate.CompetitorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collected = append(m.collected, competitor.Name)

	keywords := signals.Result[[]string]{Value: []string{"IA"}, Outcome: signals.OutcomeOK}
	if m.scanFailed {
		keywords = signals.Result[[]string]{Value: []string{}, Outcome: signals.OutcomeFailed, Err: errors.New("timeout")}
	}

	return aggregate.CompetitorRecord{
		Competitor: competitor,
		Keywords:   keywords,
		Jobs:       signals.Result[[]signals.JobPosting]{Value: make([]signals.JobPosting, 2), Outcome: signals.OutcomeOK},
	}
}

func (m *mockCollector) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collected)
}

type mockHistory struct {
	mu        sync.Mutex
	failures  int
	attempts  int
	snapshots []database.Snapshot
}

func (m *mockHistory) RecordIfChanged(_ context.Context, snapshot database.Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failures > 0 {
		m.failures--
		return false, errors.New("database is locked")
	}
	m.snapshots = append(m.snapshots, snapshot)
	return true, nil
}

func (m *mockHistory) LatestChange(context.Context, string) (*database.KeywordChange, error) {
	return nil, nil
}

func (m *mockHistory) History(context.Context, string, int) ([]database.Snapshot, error) {
	return nil, nil
}

func (m *mockHistory) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load("")
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}
	return reg
}

func TestRefreshCompetitorTaskRecordsSnapshot(t *testing.T) {
	collector := &mockCollector{}
	history := &mockHistory{}
	competitor := registry.Competitor{Name: "Geotab", HomepageURL: "https://www.geotab.com/fr/"}

	task := NewRefreshCompetitorTask(competitor, collector, history, TriggerManual)
	task.Start()

	if err := task.Execute(t.Context()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(history.snapshots) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(history.snapshots))
	}
	snapshot := history.snapshots[0]
	if snapshot.Competitor != "Geotab" || snapshot.JobCount != 2 || len(snapshot.Keywords) != 1 {
		t.Errorf("Unexpected snapshot: %+v", snapshot)
	}
	if task.GetType() != TaskTypeRefreshCompetitor {
		t.Errorf("Expected type %s, got %s", TaskTypeRefreshCompetitor, task.GetType())
	}
	if task.GetCompetitorName() != "Geotab" {
		t.Errorf("Expected competitor 'Geotab', got '%s'", task.GetCompetitorName())
	}
}

func TestRefreshCompetitorTaskWithoutHistory(t *testing.T) {
	collector := &mockCollector{}
	task := NewRefreshCompetitorTask(registry.Competitor{Name: "Webfleet"}, collector, nil, TriggerManual)

	if err := task.Execute(t.Context()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if collector.count() != 1 {
		t.Errorf("Expected 1 collection, got %d", collector.count())
	}
}

func TestRefreshCompetitorTaskSkipsFailedScan(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	history := database.NewSnapshotRepository(db)

	competitor := registry.Competitor{Name: "Geotab"}
	collector := &mockCollector{}

	if err := NewRefreshCompetitorTask(competitor, collector, history, TriggerManual).Execute(t.Context()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	collector.scanFailed = true
	if err := NewRefreshCompetitorTask(competitor, collector, history, TriggerManual).Execute(t.Context()); err != nil {
		t.Fatalf("Expected failed scan not to fail the task, got: %v", err)
	}

	change, err := history.LatestChange(t.Context(), "Geotab")
	if err != nil {
		t.Fatalf("Failed to load change: %v", err)
	}
	if !change.Empty() {
		t.Errorf("Expected no keyword change after a failed scan, got %+v", change)
	}

	rows, err := history.History(t.Context(), "Geotab", 10)
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 snapshot, got %d", len(rows))
	}
}

func TestRefreshCompetitorTaskFailsOnSnapshotError(t *testing.T) {
	task := NewRefreshCompetitorTask(registry.Competitor{Name: "Geotab"}, &mockCollector{}, &mockHistory{failures: 1}, TriggerManual)

	if err := task.Execute(t.Context()); err == nil {
		t.Error("Expected snapshot error to fail the task")
	}
}

func TestRefreshCompetitorTaskHonorsCancelledContext(t *testing.T) {
	collector := &mockCollector{}
	task := NewRefreshCompetitorTask(registry.Competitor{Name: "Geotab"}, collector, nil, TriggerManual)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := task.Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if collector.count() != 0 {
		t.Errorf("Expected no collection, got %d", collector.count())
	}
}

func TestTaskRetryBackoff(t *testing.T) {
	task := NewTask(TaskTypeRefreshCompetitor, "Geotab", TriggerSchedule)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, expected := range want {
		delay, ok := task.NextRetry(time.Second)
		if !ok {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		if delay != expected {
			t.Errorf("Retry %d: expected delay %v, got %v", i+1, expected, delay)
		}
	}

	if _, ok := task.NextRetry(time.Second); ok {
		t.Error("Expected no retry after reaching max retries")
	}
	if task.Attempts() != DefaultMaxRetries+1 {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries+1, task.Attempts())
	}
	if task.GetDuration() != 0 {
		t.Errorf("Expected zero duration before start, got %v", task.GetDuration())
	}
}

func TestTaskRetryDelayIsCapped(t *testing.T) {
	task := NewTask(TaskTypeRefreshCompetitor, "Geotab", TriggerSchedule)

	if delay, _ := task.NextRetry(time.Minute); delay != 30*time.Second {
		t.Errorf("Expected delay capped at 30s, got %v", delay)
	}
}

func TestTaskIDsAreUnique(t *testing.T) {
	first := NewTask(TaskTypeRefreshCompetitor, "Geotab", TriggerStartup)
	second := NewTask(TaskTypeRefreshCompetitor, "Geotab", TriggerStartup)

	if first.GetID() == second.GetID() {
		t.Errorf("Expected distinct IDs, got '%s' twice", first.GetID())
	}
	if first.GetTrigger() != TriggerStartup {
		t.Errorf("Expected trigger startup, got %s", first.GetTrigger())
	}
}

func TestSchedulerWarmsEveryCompetitorOnStart(t *testing.T) {
	reg := testRegistry(t)
	collector := &mockCollector{}

	scheduler, err := NewScheduler(reg, collector, nil, nil, "@every 1h", 2)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	scheduler.Start()
	waitFor(t, func() bool { return collector.count() == reg.Count() })
	scheduler.Stop()
}

func TestSchedulerRetriesFailedTasks(t *testing.T) {
	reg, err := registry.Parse([]byte(`
competitors:
  - name: "SuivideFlotte"
    url: "https://suivideflotte.test"
    is_self: true
`))
	if err != nil {
		t.Fatalf("Failed to parse registry: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	history := &mockHistory{failures: 2}

	scheduler, err := NewScheduler(reg, &mockCollector{}, history, m, "@every 1h", 1)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.retryBase = time.Millisecond

	scheduler.Start()
	waitFor(t, func() bool { return history.attemptCount() == 3 })
	waitFor(t, func() bool { return testutil.ToFloat64(m.RefreshTasksTotal.WithLabelValues("success")) == 1 })
	scheduler.Stop()

	if got := testutil.ToFloat64(m.RefreshTasksTotal.WithLabelValues("retry")); got != 2 {
		t.Errorf("Expected 2 retries, got %v", got)
	}
}

func TestSchedulerGivesUpAfterMaxRetries(t *testing.T) {
	reg, err := registry.Parse([]byte(`
competitors:
  - name: "SuivideFlotte"
    url: "https://suivideflotte.test"
    is_self: true
`))
	if err != nil {
		t.Fatalf("Failed to parse registry: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	history := &mockHistory{failures: 100}

	scheduler, err := NewScheduler(reg, &mockCollector{}, history, m, "@every 1h", 1)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.retryBase = time.Millisecond

	scheduler.Start()
	waitFor(t, func() bool { return testutil.ToFloat64(m.RefreshTasksTotal.WithLabelValues("failed")) == 1 })
	scheduler.Stop()

	if got := history.attemptCount(); got != DefaultMaxRetries+1 {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries+1, got)
	}
}

func TestNewSchedulerRejectsInvalidSchedule(t *testing.T) {
	_, err := NewScheduler(testRegistry(t), &mockCollector{}, nil, nil, "every now and then", 1)
	if err == nil {
		t.Error("Expected error for invalid schedule")
	}
}
