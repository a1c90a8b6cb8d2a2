package model

import (
	"fmt"
	"strings"
)

// BuildState is the build state of a package in the rebuild environment.
type BuildState string

const (
	StateScheduled BuildState = "scheduled"
	StateBuilding  BuildState = "building"
	StateSucceeded BuildState = "succeeded"
	StateFailed    BuildState = "failed"
	StateDisabled  BuildState = "disabled"
	StateExcluded  BuildState = "excluded"
	// StateTimedOut is never reported by the Build Service; the monitor
	// assigns it to packages still unfinished when waiting stops.
	StateTimedOut BuildState = "timedOut"
)

// AllStates lists every state in report order.
var AllStates = []BuildState{
	StateScheduled,
	StateBuilding,
	StateSucceeded,
	StateFailed,
	StateDisabled,
	StateExcluded,
	StateTimedOut,
}

// IsTerminal reports whether no further transition happens in this job.
func (s BuildState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateDisabled, StateExcluded, StateTimedOut:
		return true
	default:
		return false
	}
}

// IsPassing reports whether s counts towards overall success.
func (s BuildState) IsPassing() bool {
	switch s {
	case StateSucceeded, StateDisabled, StateExcluded:
		return true
	default:
		return false
	}
}

// Rank orders states for monotonic transitions: scheduled < building < terminal.
func (s BuildState) Rank() int {
	switch s {
	case StateScheduled:
		return 0
	case StateBuilding:
		return 1
	default:
		return 2
	}
}

// Advance returns the state a package moves to when observed is reported
// while it is in s. Lower-ranked observations never move a package back.
func (s BuildState) Advance(observed BuildState) BuildState {
	if s.IsTerminal() {
		return s
	}
	if observed.Rank() < s.Rank() {
		return s
	}
	return observed
}

// ParseBuildState converts a case-insensitive name into a BuildState.
func ParseBuildState(raw string) (BuildState, error) {
	v := strings.TrimSpace(raw)
	for _, s := range AllStates {
		if strings.EqualFold(v, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown build state %q", raw)
}
