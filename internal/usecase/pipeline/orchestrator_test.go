package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
	"github.com/kailas-cloud/tripwise/internal/usecase/destination"
)

// --- Mocks ---

type mockDestinations struct {
	mu        sync.Mutex
	updated   []string
	expanded  []string
	failOn    map[string]bool
	existing  map[string]bool
	belowGate map[string]bool
	gate      chan struct{}
}

func (m *mockDestinations) Update(ctx context.Context, id string) (destination.Result, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return destination.Result{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[id] {
		return destination.Result{}, errors.New("enrichment exploded")
	}
	m.updated = append(m.updated, id)
	return destination.Result{Stored: true}, nil
}

func (m *mockDestinations) Expand(_ context.Context, name, _ string) (destination.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[name] {
		return destination.Result{}, errors.New("acquisition failed")
	}
	m.expanded = append(m.expanded, name)
	return destination.Result{Stored: !m.belowGate[name]}, nil
}

func (m *mockDestinations) Exists(_ context.Context, id string) (bool, error) {
	return m.existing[id], nil
}

type mockCorpus struct {
	recs      []domcontent.Record
	oldestErr error
	ensured   int
}

func (m *mockCorpus) Oldest(_ context.Context, _ filter.Expression, limit int) ([]domcontent.Record, error) {
	if m.oldestErr != nil {
		return nil, m.oldestErr
	}
	return m.recs[:min(limit, len(m.recs))], nil
}

func (m *mockCorpus) Count(context.Context) (int, error) { return len(m.recs), nil }

func (m *mockCorpus) EnsureIndex(context.Context) error {
	m.ensured++
	return nil
}

type mockReporter struct {
	report quality.Report
	err    error
}

func (m *mockReporter) GenerateReport(context.Context) (quality.Report, error) {
	return m.report, m.err
}

type mockRunLog struct {
	mu   sync.Mutex
	runs []dompipe.RunStats
}

func (m *mockRunLog) AppendRun(_ context.Context, s dompipe.RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, s)
	return nil
}

// --- Helpers ---

var base = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func rec(id string, age time.Duration) domcontent.Record {
	ts := base.Add(-age)
	return domcontent.Reconstruct("r-"+id, id, domcontent.TypeDestination, id, "body", nil, nil, ts, ts)
}

func newOrchestrator(d *mockDestinations, c *mockCorpus, r *mockReporter, l *mockRunLog, cfg Config) *Orchestrator {
	if d.failOn == nil {
		d.failOn = map[string]bool{}
	}
	return New(d, c, r, l, cfg, zap.NewNop()).WithClock(func() time.Time { return base })
}

// --- Tests ---

func TestParseTarget(t *testing.T) {
	assert.Equal(t, Target{City: "Kyoto", Country: "Japan"}, ParseTarget(" Kyoto , Japan "))
	assert.Equal(t, Target{City: "Washington, D.C.", Country: "USA"}, ParseTarget("Washington, D.C., USA"))
	assert.Equal(t, Target{City: "Petra"}, ParseTarget("Petra"))
}

func TestRun_PhasesInOrder(t *testing.T) {
	dest := &mockDestinations{
		existing:  map[string]bool{"goa-india": true},
		belowGate: map[string]bool{"Hampi": true},
	}
	corpus := &mockCorpus{recs: []domcontent.Record{rec("old", 60*24*time.Hour), rec("fresh", time.Hour)}}
	reporter := &mockReporter{report: quality.Report{Flags: []quality.Flag{
		{Priority: quality.PriorityCritical, Issue: "3 of 3 records are stale"},
	}}}
	runs := &mockRunLog{}
	o := newOrchestrator(dest, corpus, reporter, runs, Config{
		Interval:       time.Hour,
		UpdateBatch:    10,
		ExpansionCount: 1,
		StaleAfter:     30 * 24 * time.Hour,
		Priority: []Target{
			{City: "Goa", Country: "India"},
			{City: "Hampi", Country: "India"},
			{City: "Kyoto", Country: "Japan"},
			{City: "Lisbon", Country: "Portugal"},
		},
	})

	stats := o.Run(context.Background(), dompipe.TriggerManual)

	assert.Equal(t, []string{"old"}, dest.updated, "fresh record must not be refreshed")
	assert.Equal(t, []string{"Hampi", "Kyoto"}, dest.expanded, "existing skipped, stop after one addition")
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, stats.Errors)
	assert.Equal(t, []string{"CRITICAL: 3 of 3 records are stale"}, stats.Warnings)
	assert.False(t, stats.IsRunning)
	assert.Equal(t, dompipe.PhaseIdle, stats.Phase)
	assert.Equal(t, base.Add(time.Hour), stats.NextRun)
	assert.Equal(t, 1, corpus.ensured)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, stats.RunID, runs.runs[0].RunID)
}

func TestRun_ItemFailuresDoNotAbort(t *testing.T) {
	dest := &mockDestinations{failOn: map[string]bool{"a": true, "Kyoto": true}}
	corpus := &mockCorpus{recs: []domcontent.Record{rec("a", 0), rec("b", 0)}}
	o := newOrchestrator(dest, corpus, &mockReporter{err: errors.New("down")}, &mockRunLog{}, Config{
		UpdateBatch:    5,
		ExpansionCount: 5,
		Priority:       []Target{{City: "Kyoto"}, {City: "Lisbon"}},
	})

	stats := o.Run(context.Background(), dompipe.TriggerSchedule)

	assert.Equal(t, []string{"b"}, dest.updated)
	assert.Equal(t, []string{"Lisbon"}, dest.expanded)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 4, stats.Processed)
	assert.Contains(t, stats.Warnings, "quality report unavailable")
}

func TestRun_UpdateListingFailureIsCounted(t *testing.T) {
	corpus := &mockCorpus{oldestErr: errors.New("redis down")}
	o := newOrchestrator(&mockDestinations{}, corpus, &mockReporter{}, &mockRunLog{}, Config{UpdateBatch: 5})

	stats := o.Run(context.Background(), dompipe.TriggerManual)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, corpus.ensured, "later phases still run")
}

func TestRun_SingleFlight(t *testing.T) {
	dest := &mockDestinations{gate: make(chan struct{})}
	corpus := &mockCorpus{recs: []domcontent.Record{rec("a", 0)}}
	runs := &mockRunLog{}
	o := newOrchestrator(dest, corpus, &mockReporter{}, runs, Config{UpdateBatch: 1})

	done := make(chan dompipe.RunStats)
	go func() { done <- o.Run(context.Background(), dompipe.TriggerManual) }()

	require.Eventually(t, func() bool { return o.Status().IsRunning }, time.Second, 5*time.Millisecond)
	first := o.Status()

	second := o.Run(context.Background(), dompipe.TriggerManual)
	third := o.Trigger(dompipe.TriggerManual)

	assert.True(t, second.IsRunning)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.RunID, third.RunID)

	close(dest.gate)
	final := <-done

	assert.Equal(t, 1, final.Updated, "concurrent triggers must not double count")
	assert.Len(t, runs.runs, 1)
}

func TestTrigger_RunsInBackground(t *testing.T) {
	corpus := &mockCorpus{recs: []domcontent.Record{rec("a", 0)}}
	runs := &mockRunLog{}
	o := newOrchestrator(&mockDestinations{}, corpus, &mockReporter{}, runs, Config{UpdateBatch: 1})

	started := o.Trigger(dompipe.TriggerManual)
	assert.True(t, started.IsRunning)
	assert.NotEmpty(t, started.RunID)

	require.Eventually(t, func() bool { return !o.Status().IsRunning }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, o.Status().Updated)
	o.Stop()
}

func TestStartStop(t *testing.T) {
	corpus := &mockCorpus{}
	runs := &mockRunLog{}
	o := newOrchestrator(&mockDestinations{}, corpus, &mockReporter{}, runs, Config{Interval: 10 * time.Millisecond})

	o.Start(context.Background())
	assert.Equal(t, base.Add(10*time.Millisecond), o.Status().NextRun)

	require.Eventually(t, func() bool {
		runs.mu.Lock()
		defer runs.mu.Unlock()
		return len(runs.runs) > 0
	}, time.Second, 5*time.Millisecond)

	o.Stop()
	runs.mu.Lock()
	n := len(runs.runs)
	runs.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Equal(t, n, len(runs.runs), "no runs after Stop")
	assert.Equal(t, dompipe.TriggerSchedule, runs.runs[0].Trigger)
}

func TestRun_CancelledRunStillFinishes(t *testing.T) {
	dest := &mockDestinations{gate: make(chan struct{})}
	corpus := &mockCorpus{recs: []domcontent.Record{rec("a", 0), rec("b", 0)}}
	runs := &mockRunLog{}
	o := newOrchestrator(dest, corpus, &mockReporter{}, runs, Config{UpdateBatch: 2})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan dompipe.RunStats)
	go func() { done <- o.Run(ctx, dompipe.TriggerManual) }()
	require.Eventually(t, func() bool { return o.Status().IsRunning }, time.Second, 5*time.Millisecond)
	cancel()
	final := <-done

	assert.False(t, final.IsRunning)
	assert.Len(t, runs.runs, 1, "cancelled runs are still recorded")
}

func TestTrigger_AfterStopStartsNothing(t *testing.T) {
	runs := &mockRunLog{}
	o := newOrchestrator(&mockDestinations{}, &mockCorpus{}, &mockReporter{}, runs, Config{Interval: time.Hour})
	o.Start(context.Background())
	o.Stop()

	snap := o.Trigger(dompipe.TriggerManual)

	assert.False(t, snap.IsRunning)
	assert.Empty(t, snap.RunID)
	time.Sleep(20 * time.Millisecond)
	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Empty(t, runs.runs)
}

func TestTrigger_RearmsSchedule(t *testing.T) {
	runs := &mockRunLog{}
	o := newOrchestrator(&mockDestinations{}, &mockCorpus{}, &mockReporter{}, runs, Config{Interval: 400 * time.Millisecond})
	count := func() int {
		runs.mu.Lock()
		defer runs.mu.Unlock()
		return len(runs.runs)
	}

	o.Start(context.Background())
	defer o.Stop()
	time.Sleep(250 * time.Millisecond)
	o.Trigger(dompipe.TriggerManual)
	require.Eventually(t, func() bool { return count() == 1 }, time.Second, 5*time.Millisecond)

	// the original tick at 400ms must not fire a second run
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, count())

	require.Eventually(t, func() bool { return count() == 2 }, time.Second, 5*time.Millisecond)
	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Equal(t, dompipe.TriggerManual, runs.runs[0].Trigger)
	assert.Equal(t, dompipe.TriggerSchedule, runs.runs[1].Trigger)
}
