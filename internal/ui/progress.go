package ui

import (
	"sync"
	"time"
)

// Tracker manages progress state across pipeline stages.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	stage     Stage
	percent   int
	message   string
	details   string
	startTime time.Time
	errors    []ErrorEvent
	warnings  []ErrorEvent

	// ETA smoothing to prevent wild fluctuations
	lastETA time.Duration
}

// TrackerStats contains a snapshot of current progress.
type TrackerStats struct {
	Stage      Stage
	Percent    int
	Message    string
	Details    string
	Elapsed    time.Duration
	ETA        time.Duration
	ErrorCount int
	WarnCount  int
}

// NewTracker creates a new progress tracker.
func NewTracker() *Tracker {
	return &Tracker{
		stage:     StageAnalyzing,
		startTime: time.Now(),
	}
}

// Update records a progress event.
func (t *Tracker) Update(event ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stage = event.Stage
	if event.Percent > t.percent {
		t.percent = event.Percent
	}
	if event.Message != "" {
		t.message = event.Message
	}
	t.details = event.Details
}

// AddError records an error or warning.
func (t *Tracker) AddError(event ErrorEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if event.IsWarn {
		t.warnings = append(t.warnings, event)
	} else {
		t.errors = append(t.errors, event)
	}
}

// Elapsed returns time since tracker creation.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return time.Since(t.startTime)
}

// Stats returns the current snapshot.
// Uses write lock because calculateETA modifies lastETA for smoothing.
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return TrackerStats{
		Stage:      t.stage,
		Percent:    t.percent,
		Message:    t.message,
		Details:    t.details,
		Elapsed:    time.Since(t.startTime),
		ETA:        t.calculateETA(),
		ErrorCount: len(t.errors),
		WarnCount:  len(t.warnings),
	}
}

// Errors returns the list of recorded errors.
func (t *Tracker) Errors() []ErrorEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]ErrorEvent, len(t.errors))
	copy(result, t.errors)
	return result
}

// Warnings returns the list of recorded warnings.
func (t *Tracker) Warnings() []ErrorEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]ErrorEvent, len(t.warnings))
	copy(result, t.warnings)
	return result
}

// etaSmoothingFactor controls how much weight is given to new ETA
// values. 0.3 means 30% new value + 70% previous value.
const etaSmoothingFactor = 0.3

// calculateETA estimates remaining time from whole-pipeline percent,
// with exponential smoothing (must be called with lock held). The
// pipeline emits coarse stage-boundary percentages, so the raw estimate
// jumps at each boundary; smoothing keeps the display steady.
func (t *Tracker) calculateETA() time.Duration {
	if t.percent <= 0 || t.percent >= 100 {
		return 0
	}

	elapsed := time.Since(t.startTime)
	progress := float64(t.percent) / 100.0

	totalEstimate := time.Duration(float64(elapsed) / progress)
	rawRemaining := totalEstimate - elapsed
	if rawRemaining < 0 {
		return 0
	}

	if t.lastETA == 0 {
		t.lastETA = rawRemaining
		return rawRemaining
	}

	smoothed := time.Duration(
		etaSmoothingFactor*float64(rawRemaining) +
			(1-etaSmoothingFactor)*float64(t.lastETA),
	)
	t.lastETA = smoothed

	return smoothed
}
