package pipeline

import "time"

// Phase is a stage of a pipeline run. Phases execute strictly in declaration order.
type Phase string

// Run phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseUpdate   Phase = "update"
	PhaseExpand   Phase = "expand"
	PhaseValidate Phase = "validate"
	PhaseOptimize Phase = "optimize"
)

// Phases lists the run phases in execution order.
var Phases = []Phase{PhaseUpdate, PhaseExpand, PhaseValidate, PhaseOptimize}

// Trigger identifies what started a run.
type Trigger string

// Run triggers.
const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// RunStats is reset at run start, mutated during the run and frozen at completion.
type RunStats struct {
	RunID     string        `json:"runId,omitempty"`
	IsRunning bool          `json:"isRunning"`
	Phase     Phase         `json:"phase"`
	Trigger   Trigger       `json:"trigger,omitempty"`
	LastRun   time.Time     `json:"lastRun"`
	NextRun   time.Time     `json:"nextRun"`
	Processed int           `json:"processed"`
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Errors    int           `json:"errors"`
	Skipped   int           `json:"skipped"`
	Warnings  []string      `json:"warnings"`
	Duration  time.Duration `json:"durationNs"`
}

// Start resets counters for a new run.
func (s *RunStats) Start(runID string, trigger Trigger, now time.Time) {
	*s = RunStats{
		RunID:     runID,
		IsRunning: true,
		Phase:     PhaseUpdate,
		Trigger:   trigger,
		LastRun:   now,
		NextRun:   s.NextRun,
		Warnings:  []string{},
	}
}

// Finish freezes the run and schedules the next one at LastRun + interval.
func (s *RunStats) Finish(now time.Time, interval time.Duration) {
	s.IsRunning = false
	s.Phase = PhaseIdle
	s.Duration = now.Sub(s.LastRun)
	s.NextRun = s.LastRun.Add(interval)
}

// Snapshot returns a copy safe to hand to other goroutines.
func (s *RunStats) Snapshot() RunStats {
	c := *s
	c.Warnings = append([]string(nil), s.Warnings...)
	if c.Warnings == nil {
		c.Warnings = []string{}
	}
	return c
}
