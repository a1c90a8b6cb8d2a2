package model

import (
	"time"

	"github.com/google/uuid"
)

// Mode selects how the working set is derived.
type Mode string

const (
	ModeFull               Mode = "full"
	ModeTriggered          Mode = "triggered"
	ModeExplicit           Mode = "explicit"
	ModeExplicitDependents Mode = "explicit+dependents"
	ModeExplicitRequired   Mode = "explicit+required"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeFull, ModeTriggered, ModeExplicit, ModeExplicitDependents, ModeExplicitRequired:
		return true
	default:
		return false
	}
}

// Expands reports whether m expands the explicit set through the dependency graph.
func (m Mode) Expands() bool {
	return m == ModeExplicitDependents || m == ModeExplicitRequired
}

// RebuildJob is the state of a single invocation. Only the orchestrator mutates it.
type RebuildJob struct {
	ID          string
	Project     string
	Mode        Mode
	Names       []string
	Repository  string
	Packages    []Package
	Unresolved  []string
	Environment *Environment
	States      map[PackageKey]BuildState
	StartedAt   time.Time
}

// NewRebuildJob creates a job with a fresh ID.
func NewRebuildJob(project string, mode Mode, names []string, repository string) *RebuildJob {
	return &RebuildJob{
		ID:         uuid.NewString(),
		Project:    project,
		Mode:       mode,
		Names:      names,
		Repository: repository,
		States:     make(map[PackageKey]BuildState),
		StartedAt:  time.Now(),
	}
}
