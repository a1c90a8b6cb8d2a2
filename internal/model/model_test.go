package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStateClassification(t *testing.T) {
	tests := []struct {
		state    BuildState
		terminal bool
		passing  bool
	}{
		{StateScheduled, false, false},
		{StateBuilding, false, false},
		{StateSucceeded, true, true},
		{StateFailed, true, false},
		{StateDisabled, true, true},
		{StateExcluded, true, true},
		{StateTimedOut, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.passing, tt.state.IsPassing())
		})
	}
}

func TestBuildStateAdvanceIsMonotonic(t *testing.T) {
	assert.Equal(t, StateBuilding, StateScheduled.Advance(StateBuilding))
	assert.Equal(t, StateBuilding, StateBuilding.Advance(StateScheduled), "never regress to scheduled")
	assert.Equal(t, StateSucceeded, StateBuilding.Advance(StateSucceeded))
	assert.Equal(t, StateSucceeded, StateSucceeded.Advance(StateScheduled), "terminal states are sticky")
	assert.Equal(t, StateFailed, StateFailed.Advance(StateSucceeded))
	assert.Equal(t, StateExcluded, StateScheduled.Advance(StateExcluded))
}

func TestParseBuildState(t *testing.T) {
	s, err := ParseBuildState(" Succeeded ")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, s)

	s, err = ParseBuildState("timedout")
	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, s)

	_, err = ParseBuildState("unresolvable")
	assert.Error(t, err)
}

func TestNewReport(t *testing.T) {
	results := []PackageResult{
		{Package: Package{Project: "P", Name: "a"}, State: StateSucceeded},
		{Package: Package{Project: "P", Name: "b"}, State: StateFailed, Reason: "link: permission denied"},
		{Package: Package{Project: "A", Name: "c"}, State: StateDisabled},
		{Package: Package{Project: "P", Name: "d"}, State: StateTimedOut},
	}
	r := NewReport(results)

	assert.False(t, r.OverallSuccess)
	assert.Equal(t, 1, r.Counts[StateSucceeded])
	assert.Equal(t, 1, r.Counts[StateDisabled])
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "b", r.Failures[0].Package.Name)
	require.Len(t, r.TimedOut, 1)
	assert.Equal(t, "d", r.TimedOut[0].Package.Name)
	assert.Equal(t, 1, r.ExitCode())
}

func TestNewReportTimeoutOnlyFails(t *testing.T) {
	r := NewReport([]PackageResult{
		{Package: Package{Project: "P", Name: "a"}, State: StateSucceeded},
		{Package: Package{Project: "P", Name: "b"}, State: StateTimedOut},
	})
	assert.False(t, r.OverallSuccess)
	assert.Empty(t, r.Failures)
	assert.Len(t, r.TimedOut, 1)
}

func TestNewReportEmptyPasses(t *testing.T) {
	r := NewReport(nil)
	assert.True(t, r.OverallSuccess)
	assert.Equal(t, 0, r.ExitCode())
}

func TestPackageKeyAndString(t *testing.T) {
	p := Package{Project: "openSUSE:Factory", Name: "zlib"}
	assert.Equal(t, PackageKey{Project: "openSUSE:Factory", Name: "zlib"}, p.Key())
	assert.Equal(t, "openSUSE:Factory / zlib", p.String())
	assert.Equal(t, "openSUSE:Factory:Rebuild", EnvironmentName("openSUSE:Factory", "Rebuild"))
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeExplicitDependents.Valid())
	assert.True(t, ModeExplicitDependents.Expands())
	assert.False(t, ModeExplicit.Expands())
	assert.False(t, Mode("bogus").Valid())
}

func TestNewRebuildJob(t *testing.T) {
	a := NewRebuildJob("P", ModeFull, nil, "")
	b := NewRebuildJob("P", ModeFull, nil, "")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotNil(t, a.States)
}
