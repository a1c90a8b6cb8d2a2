package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// OutcomeLabel enumerates final run outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeTimedOut OutcomeLabel = "timed_out"
	OutcomeDryRun   OutcomeLabel = "dry_run"
	OutcomeError    OutcomeLabel = "error"
)

// Recorder defines observability hooks for a rebuild run. Implementations
// must be safe for concurrent use; lookups and links run on a worker pool.
type Recorder interface {
	// SetStateCount reports how many packages were in state after the last poll cycle.
	SetStateCount(state string, n int)
	IncPollCycle()
	IncLookupFailure()
	IncLinkResult(result ResultLabel)
	IncRunOutcome(outcome OutcomeLabel)
	ObserveRunDuration(d time.Duration)
	ObserveRequestDuration(method string, d time.Duration, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) SetStateCount(string, int)                          {}
func (NoopRecorder) IncPollCycle()                                      {}
func (NoopRecorder) IncLookupFailure()                                  {}
func (NoopRecorder) IncLinkResult(ResultLabel)                          {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                   {}
func (NoopRecorder) ObserveRequestDuration(string, time.Duration, bool) {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
