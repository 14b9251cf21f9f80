package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStats_Lifecycle(t *testing.T) {
	var s RunStats
	s.Errors = 7

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Start("run-1", TriggerManual, start)
	assert.True(t, s.IsRunning)
	assert.Zero(t, s.Errors, "counters reset at start")
	assert.Equal(t, PhaseUpdate, s.Phase)

	s.Processed = 3
	s.Warnings = append(s.Warnings, "stale corpus")
	snap := s.Snapshot()
	s.Warnings[0] = "mutated"
	assert.Equal(t, "stale corpus", snap.Warnings[0], "snapshot must not alias warnings")

	s.Finish(start.Add(5*time.Minute), 24*time.Hour)
	assert.False(t, s.IsRunning)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 5*time.Minute, s.Duration)
	assert.Equal(t, start.Add(24*time.Hour), s.NextRun)
	assert.Equal(t, 3, s.Processed)
}

func TestPhases_Order(t *testing.T) {
	assert.Equal(t, []Phase{PhaseUpdate, PhaseExpand, PhaseValidate, PhaseOptimize}, Phases)
}
