package buildservice

import (
	"strings"

	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// StateFromCode maps a single OBS package status code to a BuildState.
// Unknown codes are treated as scheduled so they are polled again.
func StateFromCode(code string) model.BuildState {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "succeeded":
		return model.StateSucceeded
	case "failed", "unresolvable", "broken":
		return model.StateFailed
	case "disabled":
		return model.StateDisabled
	case "excluded":
		return model.StateExcluded
	case "dispatching", "building", "signing", "finished":
		return model.StateBuilding
	default: // scheduled, blocked, locked, unknown, deleting
		return model.StateScheduled
	}
}

// Aggregate folds the per repository/arch states of one package into one.
//
// Any failure fails the package. Otherwise any unfinished result keeps it
// building (or scheduled when nothing has started). A package disabled or
// excluded everywhere keeps that state; any other mix of terminal passing
// results counts as succeeded. No results at all means scheduled.
func Aggregate(states []model.BuildState) model.BuildState {
	if len(states) == 0 {
		return model.StateScheduled
	}
	var failed, building, scheduled, disabled, excluded int
	for _, s := range states {
		switch s {
		case model.StateFailed:
			failed++
		case model.StateBuilding:
			building++
		case model.StateScheduled:
			scheduled++
		case model.StateDisabled:
			disabled++
		case model.StateExcluded:
			excluded++
		}
	}
	switch {
	case failed > 0:
		return model.StateFailed
	case building > 0:
		return model.StateBuilding
	case scheduled > 0:
		return model.StateScheduled
	case disabled == len(states):
		return model.StateDisabled
	case excluded == len(states):
		return model.StateExcluded
	default:
		return model.StateSucceeded
	}
}
