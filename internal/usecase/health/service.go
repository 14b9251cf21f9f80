package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnconfigured means the component runs without a credential (demo mode).
	CheckUnconfigured CheckResult = "unconfigured"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Pipeline status values reported by SystemStatus.
const (
	PipelineDemo    = "demo"
	PipelineRunning = "running"
	PipelineIdle    = "idle"
)

// Data quality labels reported by SystemStatus.
const (
	QualityUnavailable = "unavailable"
	QualityHigh        = "high"
	QualityGood        = "good"
	QualityLow         = "low"
)

// SystemStatus is the operator summary of the knowledge base.
type SystemStatus struct {
	TotalRecords   int        `json:"totalRecords"`
	DataQuality    string     `json:"dataQuality"`
	AverageScore   float64    `json:"averageScore"`
	PipelineStatus string     `json:"pipelineStatus"`
	LastUpdated    *time.Time `json:"lastUpdated"`
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	corpus    Corpus
	reporter  Reporter
	pipeline  Pipeline
	logger    *zap.Logger
}

// New creates a Service. embedding can be nil.
func New(
	db DBPinger, embedding EmbeddingChecker, corpus Corpus, reporter Reporter, pipeline Pipeline, logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		embedding: embedding,
		corpus:    corpus,
		reporter:  reporter,
		pipeline:  pipeline,
		logger:    logger.With(zap.String("component", "health")),
	}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("Database ping failed", zap.Error(err))
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		switch {
		case !s.embedding.Configured():
			checks["embedding"] = CheckUnconfigured
		case s.embedding.HealthCheck(ctx) != nil:
			checks["embedding"] = CheckError
		default:
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["database"] == CheckError && checks["embedding"] != CheckOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

// SystemStatus summarizes corpus size, quality and pipeline state.
// Failures of individual lookups degrade the summary instead of failing it.
func (s *Service) SystemStatus(ctx context.Context) SystemStatus {
	st := SystemStatus{DataQuality: QualityUnavailable, PipelineStatus: PipelineIdle}

	run := s.pipeline.Status()
	if run.IsRunning {
		st.PipelineStatus = PipelineRunning
	}
	if !run.LastRun.IsZero() {
		last := run.LastRun
		st.LastUpdated = &last
	}

	if n, err := s.corpus.Count(ctx); err != nil {
		s.logger.Warn("Record count failed", zap.Error(err))
	} else {
		st.TotalRecords = n
	}

	if s.embedding != nil && !s.embedding.Configured() {
		st.PipelineStatus = PipelineDemo
		return st
	}

	report, err := s.reporter.GenerateReport(ctx)
	if err != nil {
		s.logger.Warn("Quality report failed", zap.Error(err))
		return st
	}
	if report.TotalRecords > 0 {
		st.AverageScore = report.AverageScore
		st.DataQuality = qualityLabel(report.AverageScore)
	}
	return st
}

func qualityLabel(score float64) string {
	switch {
	case score >= 0.8:
		return QualityHigh
	case score >= 0.6:
		return QualityGood
	default:
		return QualityLow
	}
}
