package keywords

import "time"

const (
	RunOutcomeSuccess    = "success"
	RunOutcomeNoKeywords = "no_keywords"
	RunOutcomeError      = "error"
)

// RunRecorder observes the outcome of each pipeline run.
type RunRecorder interface {
	ObserveRun(outcome string, keywords int, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRun(string, int, time.Duration) {}
