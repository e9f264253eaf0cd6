package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsage/docsage/internal/answer"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageAnalyzing, "Analyzing"},
		{StageSearching, "Searching"},
		{StageRetrieving, "Retrieving"},
		{StageSynthesizing, "Synthesizing"},
		{StageComplete, "Complete"},
		{Stage(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.stage.String())
	}
}

func TestStageFromStep_MapsAllPipelineSteps(t *testing.T) {
	// Given: the pipeline step identifiers
	tests := []struct {
		step answer.StepID
		want Stage
	}{
		{answer.StepAnalyzing, StageAnalyzing},
		{answer.StepSearching, StageSearching},
		{answer.StepRetrieving, StageRetrieving},
		{answer.StepSynthesizing, StageSynthesizing},
		{answer.StepID("bogus"), StageAnalyzing},
	}

	// Then: each maps to its display stage
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageFromStep(tt.step))
	}
}

func TestEventFromStep_CopiesAllFields(t *testing.T) {
	// Given: a pipeline progress step
	step := answer.SearchStep{
		Step:     answer.StepSearching,
		Message:  "Searching documentation",
		Progress: 35,
		Details:  "4 search variants",
	}

	// When: converting to a display event
	event := EventFromStep(step)

	// Then: all fields carry over
	assert.Equal(t, StageSearching, event.Stage)
	assert.Equal(t, 35, event.Percent)
	assert.Equal(t, "Searching documentation", event.Message)
	assert.Equal(t, "4 search variants", event.Details)
}

func TestNewRenderer_ForcePlain(t *testing.T) {
	// Given: a config forcing plain mode
	cfg := NewConfig(&bytes.Buffer{}, WithForcePlain(true))

	// When: creating a renderer
	r := NewRenderer(cfg)

	// Then: a plain renderer is returned
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok, "expected PlainRenderer")
}

func TestNewRenderer_NonTTYFallsBackToPlain(t *testing.T) {
	// Given: a buffer output (never a TTY)
	cfg := NewConfig(&bytes.Buffer{})

	// When: creating a renderer
	r := NewRenderer(cfg)

	// Then: plain mode is selected
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok, "expected PlainRenderer for non-TTY output")
}

func TestIsTTY_NilAndBuffer(t *testing.T) {
	assert.False(t, IsTTY(nil))
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestNewConfig_AppliesOptions(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf,
		WithForcePlain(true),
		WithNoColor(true),
		WithQuery("how do I configure routing"))

	assert.True(t, cfg.ForcePlain)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "how do I configure routing", cfg.Query)
	assert.Equal(t, buf, cfg.Output)
}
