package metrics

import "time"

// OutcomeLabel enumerates how a simulated game ended.
type OutcomeLabel string

const (
	OutcomeCompleted OutcomeLabel = "completed"
	OutcomeAbandoned OutcomeLabel = "abandoned"
	OutcomePanicked  OutcomeLabel = "panicked"
)

// Recorder defines observability hooks for simulation metrics. Implementations
// may forward to Prometheus. NoopRecorder is the default.
type Recorder interface {
	ObserveGameDuration(d time.Duration)
	ObserveGameSteps(n int)
	IncGameOutcome(outcome OutcomeLabel)
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, success bool)
	SetActiveWorkers(n int)
	SetTableKeys(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveGameDuration(time.Duration)          {}
func (NoopRecorder) ObserveGameSteps(int)                       {}
func (NoopRecorder) IncGameOutcome(OutcomeLabel)                {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, bool)                {}
func (NoopRecorder) SetActiveWorkers(int)                       {}
func (NoopRecorder) SetTableKeys(int)                           {}
