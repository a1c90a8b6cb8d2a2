package model

import "time"

// PackageResult is the final outcome for one package.
type PackageResult struct {
	Package Package    `json:"package"`
	State   BuildState `json:"state,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// Report is the verdict of a run.
type Report struct {
	JobID          string             `json:"job_id"`
	Project        string             `json:"project"`
	Environment    string             `json:"environment,omitempty"`
	Mode           Mode               `json:"mode"`
	DryRun         bool               `json:"dry_run"`
	Results        []PackageResult    `json:"results"`
	Unresolved     []string           `json:"unresolved,omitempty"`
	Counts         map[BuildState]int `json:"counts"`
	OverallSuccess bool               `json:"overall_success"`
	Failures       []PackageResult    `json:"failures,omitempty"`
	TimedOut       []PackageResult    `json:"timed_out,omitempty"`
	Cycles         int                `json:"cycles,omitempty"`
	Duration       time.Duration      `json:"duration_ns"`
}

// NewReport derives counts, failures and the verdict from results.
// An empty result set passes.
func NewReport(results []PackageResult) *Report {
	r := &Report{
		Results:        results,
		Counts:         make(map[BuildState]int, len(AllStates)),
		OverallSuccess: true,
	}
	for _, res := range results {
		r.Counts[res.State]++
		switch {
		case res.State == StateTimedOut:
			r.TimedOut = append(r.TimedOut, res)
			r.OverallSuccess = false
		case !res.State.IsPassing():
			r.Failures = append(r.Failures, res)
			r.OverallSuccess = false
		}
	}
	return r
}

// ExitCode maps the verdict to the process exit status.
func (r *Report) ExitCode() int {
	if r == nil || r.DryRun || r.OverallSuccess {
		return 0
	}
	return 1
}
