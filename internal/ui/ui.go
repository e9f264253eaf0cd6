// Package ui renders answering-pipeline progress and telemetry stats in
// the terminal. Interactive terminals get a bubbletea TUI; pipes and CI
// get plain line output.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/docsage/docsage/internal/answer"
)

// Stage identifies an answering-pipeline stage for display.
type Stage int

const (
	// StageAnalyzing is the query intent-analysis stage.
	StageAnalyzing Stage = iota
	// StageSearching is the variant fan-out search stage.
	StageSearching
	// StageRetrieving is the extraction and enhancement stage.
	StageRetrieving
	// StageSynthesizing is the answer generation stage.
	StageSynthesizing
	// StageComplete indicates the run finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageAnalyzing:
		return "Analyzing"
	case StageSearching:
		return "Searching"
	case StageRetrieving:
		return "Retrieving"
	case StageSynthesizing:
		return "Synthesizing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageAnalyzing:
		return "INTENT"
	case StageSearching:
		return "SEARCH"
	case StageRetrieving:
		return "FETCH"
	case StageSynthesizing:
		return "ANSWER"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// StageFromStep maps a pipeline progress step to a display stage.
func StageFromStep(step answer.StepID) Stage {
	switch step {
	case answer.StepAnalyzing:
		return StageAnalyzing
	case answer.StepSearching:
		return StageSearching
	case answer.StepRetrieving:
		return StageRetrieving
	case answer.StepSynthesizing:
		return StageSynthesizing
	default:
		return StageAnalyzing
	}
}

// ProgressEvent is one progress update from the pipeline.
type ProgressEvent struct {
	Stage   Stage
	Percent int // 0..100, whole-pipeline progress
	Message string
	Details string
}

// EventFromStep converts a pipeline SearchStep into a display event.
func EventFromStep(step answer.SearchStep) ProgressEvent {
	return ProgressEvent{
		Stage:   StageFromStep(step.Step),
		Percent: step.Progress,
		Message: step.Message,
		Details: step.Details,
	}
}

// ErrorEvent is a non-fatal problem surfaced during a run.
type ErrorEvent struct {
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished run for the final display.
type CompletionStats struct {
	Query     string
	Documents int
	Answered  bool
	FromCache bool
	Duration  time.Duration
}

// Renderer displays pipeline progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates the progress display.
	UpdateProgress(event ProgressEvent)

	// AddError surfaces a warning or error.
	AddError(event ErrorEvent)

	// Complete finishes rendering with a run summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up the terminal.
	Stop() error
}

// Config configures the renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Query      string // shown in the TUI header
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithQuery sets the query shown in the TUI header.
func WithQuery(query string) ConfigOption {
	return func(c *Config) {
		c.Query = query
	}
}

// NewConfig creates a Config for the given output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks a renderer for the environment: TUI for interactive
// terminals, plain text for pipes, CI, or when plain mode is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain {
		return NewPlainRenderer(cfg)
	}
	if !IsTTY(cfg.Output) {
		return NewPlainRenderer(cfg)
	}
	if DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks whether the output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks whether we are running under a CI system.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
