package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	domdest "github.com/kailas-cloud/tripwise/internal/domain/destination"
	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
	"github.com/kailas-cloud/tripwise/internal/metrics"
)

// Target is a priority destination the expand phase tries to add.
type Target struct {
	City    string
	Country string
}

// ParseTarget reads "City, Country"; the country part is optional.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ","); i >= 0 {
		return Target{City: strings.TrimSpace(s[:i]), Country: strings.TrimSpace(s[i+1:])}
	}
	return Target{City: s}
}

// Config tunes the orchestrator.
type Config struct {
	Interval       time.Duration
	UpdateBatch    int
	ExpansionCount int
	ItemDelay      time.Duration
	// StaleAfter skips records updated more recently than this in the update phase. Zero refreshes every record in the batch.
	StaleAfter time.Duration
	Priority   []Target
}

// Orchestrator runs the refresh pipeline on a schedule or on demand.
// Only one run is active at a time.
type Orchestrator struct {
	dest     Destinations
	corpus   Corpus
	reporter Reporter
	runs     RunLog
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	stats   dompipe.RunStats
	stopped bool
	// rearm restarts the schedule after an out-of-band run so NextRun holds.
	rearm chan struct{}

	lifecycle context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an orchestrator.
func New(dest Destinations, corpus Corpus, reporter Reporter, runs RunLog, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		dest:      dest,
		corpus:    corpus,
		reporter:  reporter,
		runs:      runs,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "pipeline")),
		stats:     dompipe.RunStats{Phase: dompipe.PhaseIdle, Warnings: []string{}},
		rearm:     make(chan struct{}, 1),
		lifecycle: ctx,
		cancel:    cancel,
	}
}

// WithClock overrides the time source.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Status returns a snapshot of the current or last run.
func (o *Orchestrator) Status() dompipe.RunStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats.Snapshot()
}

// Start launches the scheduler. Runs fire every Interval until Stop.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	if o.stats.NextRun.IsZero() {
		o.stats.NextRun = o.now().Add(o.cfg.Interval)
	}
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cfg.Interval)
		defer ticker.Stop()
		o.logger.Info("Pipeline scheduler started", zap.Duration("interval", o.cfg.Interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.lifecycle.Done():
				return
			case <-o.rearm:
				ticker.Reset(o.cfg.Interval)
			case <-ticker.C:
				o.Run(o.lifecycle, dompipe.TriggerSchedule)
			}
		}
	}()
}

// Stop cancels the scheduler and any in-flight run, then waits for them.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
	o.logger.Info("Pipeline scheduler stopped")
}

// Trigger starts a run in the background and returns the status right after
// it began. When a run is already active its status is returned unchanged.
// After Stop nothing is started.
func (o *Orchestrator) Trigger(trigger dompipe.Trigger) dompipe.RunStats {
	snap, started := o.begin(trigger, true)
	if !started {
		return snap
	}
	go func() {
		defer o.wg.Done()
		o.execute(o.lifecycle)
	}()
	return snap
}

// Run executes one full run and returns its frozen stats. When a run is
// already active it returns that run's in-progress status without starting another.
func (o *Orchestrator) Run(ctx context.Context, trigger dompipe.Trigger) dompipe.RunStats {
	snap, started := o.begin(trigger, false)
	if !started {
		return snap
	}
	return o.execute(ctx)
}

// begin claims the single run slot. For background runs the wait group is
// joined under the same lock Stop takes, so Stop never races a late Add.
func (o *Orchestrator) begin(trigger dompipe.Trigger, background bool) (dompipe.RunStats, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stats.IsRunning || o.stopped {
		metrics.PipelineRunsTotal.WithLabelValues(string(trigger), "skipped").Inc()
		return o.stats.Snapshot(), false
	}
	o.stats.Start(ulid.Make().String(), trigger, o.now().UTC())
	metrics.PipelineRunning.Set(1)
	if background {
		o.wg.Add(1)
	}
	if trigger != dompipe.TriggerSchedule {
		select {
		case o.rearm <- struct{}{}:
		default:
		}
	}
	return o.stats.Snapshot(), true
}

func (o *Orchestrator) execute(ctx context.Context) dompipe.RunStats {
	start := o.Status()
	log := o.logger.With(zap.String("run_id", start.RunID), zap.String("trigger", string(start.Trigger)))
	log.Info("Pipeline run started")

	for _, phase := range dompipe.Phases {
		if ctx.Err() != nil {
			o.warn("run cancelled before " + string(phase))
			break
		}
		o.setPhase(phase)
		switch phase {
		case dompipe.PhaseUpdate:
			o.updateExisting(ctx, log)
		case dompipe.PhaseExpand:
			o.expand(ctx, log)
		case dompipe.PhaseValidate:
			o.validate(ctx, log)
		case dompipe.PhaseOptimize:
			o.optimize(ctx, log)
		}
	}

	o.mu.Lock()
	o.stats.Finish(o.now().UTC(), o.cfg.Interval)
	final := o.stats.Snapshot()
	o.mu.Unlock()

	outcome := "ok"
	if final.Errors > 0 {
		outcome = "degraded"
	}
	metrics.PipelineRunning.Set(0)
	metrics.PipelineRunsTotal.WithLabelValues(string(final.Trigger), outcome).Inc()
	metrics.PipelineRunDuration.Observe(final.Duration.Seconds())

	// history survives a cancelled run context
	if err := o.runs.AppendRun(context.WithoutCancel(ctx), final); err != nil {
		log.Warn("Run history append failed", zap.Error(err))
	}
	log.Info("Pipeline run finished",
		zap.Int("processed", final.Processed),
		zap.Int("added", final.Added),
		zap.Int("updated", final.Updated),
		zap.Int("errors", final.Errors),
		zap.Int("skipped", final.Skipped),
		zap.Duration("duration", final.Duration),
	)
	return final
}

func (o *Orchestrator) updateExisting(ctx context.Context, log *zap.Logger) {
	if o.cfg.UpdateBatch <= 0 {
		return
	}
	expr := filter.ContentTypes(domcontent.FieldContentType, domcontent.TypeDestination)
	recs, err := o.corpus.Oldest(ctx, expr, o.cfg.UpdateBatch)
	if err != nil {
		log.Warn("Listing records for update failed", zap.Error(err))
		o.count(dompipe.PhaseUpdate, "error")
		o.warn("update phase skipped: " + err.Error())
		return
	}

	now := o.now()
	first := true
	for i := range recs {
		rec := &recs[i]
		if o.cfg.StaleAfter > 0 && now.Sub(rec.UpdatedAt()) < o.cfg.StaleAfter {
			continue
		}
		if !first && !o.pause(ctx) {
			return
		}
		first = false

		if _, err := o.dest.Update(ctx, rec.ContentID()); err != nil {
			log.Warn("Destination update failed", zap.String("destination", rec.ContentID()), zap.Error(err))
			o.count(dompipe.PhaseUpdate, "error")
			continue
		}
		o.count(dompipe.PhaseUpdate, "updated")
	}
}

func (o *Orchestrator) expand(ctx context.Context, log *zap.Logger) {
	added, first := 0, true
	for _, t := range o.cfg.Priority {
		if added >= o.cfg.ExpansionCount {
			return
		}
		exists, err := o.dest.Exists(ctx, domdest.Slug(t.City, t.Country))
		if err != nil {
			log.Warn("Existence check failed", zap.String("city", t.City), zap.Error(err))
			o.count(dompipe.PhaseExpand, "error")
			continue
		}
		if exists {
			continue
		}
		if !first && !o.pause(ctx) {
			return
		}
		first = false

		res, err := o.dest.Expand(ctx, t.City, t.Country)
		switch {
		case err != nil:
			log.Warn("Destination expansion failed", zap.String("city", t.City), zap.Error(err))
			o.count(dompipe.PhaseExpand, "error")
		case !res.Stored:
			o.count(dompipe.PhaseExpand, "skipped")
		default:
			added++
			o.count(dompipe.PhaseExpand, "added")
		}
	}
}

func (o *Orchestrator) validate(ctx context.Context, log *zap.Logger) {
	r, err := o.reporter.GenerateReport(ctx)
	if err != nil {
		log.Warn("Quality report failed", zap.Error(err))
		o.warn("quality report unavailable")
		return
	}
	for _, f := range r.Flags {
		if f.Priority == quality.PriorityCritical || f.Priority == quality.PriorityHigh {
			o.warn(fmt.Sprintf("%s: %s", f.Priority, f.Issue))
		}
	}
	log.Info("Quality validated",
		zap.Int("records", r.TotalRecords),
		zap.Int("below_gate", r.BelowGate),
		zap.Float64("average_score", r.AverageScore),
	)
}

func (o *Orchestrator) optimize(ctx context.Context, log *zap.Logger) {
	if err := o.corpus.EnsureIndex(ctx); err != nil {
		log.Warn("Index maintenance failed", zap.Error(err))
		o.warn("index maintenance failed")
	}
	n, err := o.corpus.Count(ctx)
	if err != nil {
		log.Warn("Corpus count failed", zap.Error(err))
		return
	}
	log.Info("Corpus size", zap.Int("records", n))
}

func (o *Orchestrator) count(phase dompipe.Phase, result string) {
	metrics.PipelineItemsTotal.WithLabelValues(string(phase), result).Inc()
	o.mu.Lock()
	defer o.mu.Unlock()
	switch result {
	case "updated":
		o.stats.Processed++
		o.stats.Updated++
	case "added":
		o.stats.Processed++
		o.stats.Added++
	case "skipped":
		o.stats.Processed++
		o.stats.Skipped++
	case "error":
		o.stats.Processed++
		o.stats.Errors++
	}
}

func (o *Orchestrator) setPhase(p dompipe.Phase) {
	o.mu.Lock()
	o.stats.Phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) warn(w string) {
	o.mu.Lock()
	o.stats.Warnings = append(o.stats.Warnings, w)
	o.mu.Unlock()
}

// pause waits ItemDelay; false means the run was cancelled.
func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.cfg.ItemDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.cfg.ItemDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
