package answer

// StepID identifies a pipeline stage for progress reporting.
type StepID string

// Pipeline stages, in emission order.
const (
	StepAnalyzing    StepID = "analyzing"
	StepSearching    StepID = "searching"
	StepRetrieving   StepID = "retrieving"
	StepSynthesizing StepID = "synthesizing"
)

// SearchStep is a transient progress value emitted at stage
// boundaries. It is never stored.
type SearchStep struct {
	Step     StepID
	Message  string
	Progress int // 0..100
	Details  string
}

// ProgressFunc receives SearchStep values during a run. Implementations
// must return quickly; the pipeline calls them inline.
type ProgressFunc func(step SearchStep)
