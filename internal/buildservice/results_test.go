package buildservice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

func TestStateFromCode(t *testing.T) {
	cases := map[string]model.BuildState{
		"succeeded":    model.StateSucceeded,
		"failed":       model.StateFailed,
		"unresolvable": model.StateFailed,
		"broken":       model.StateFailed,
		"disabled":     model.StateDisabled,
		"excluded":     model.StateExcluded,
		"building":     model.StateBuilding,
		"dispatching":  model.StateBuilding,
		"finished":     model.StateBuilding,
		"scheduled":    model.StateScheduled,
		"blocked":      model.StateScheduled,
		"weird":        model.StateScheduled,
		" Succeeded ":  model.StateSucceeded,
	}
	for code, want := range cases {
		assert.Equal(t, want, StateFromCode(code), code)
	}
}

func TestAggregate(t *testing.T) {
	s := func(states ...model.BuildState) []model.BuildState { return states }
	tests := []struct {
		name string
		in   []model.BuildState
		want model.BuildState
	}{
		{"empty", nil, model.StateScheduled},
		{"failure wins", s(model.StateSucceeded, model.StateBuilding, model.StateFailed), model.StateFailed},
		{"building before scheduled", s(model.StateScheduled, model.StateBuilding, model.StateSucceeded), model.StateBuilding},
		{"scheduled", s(model.StateScheduled, model.StateSucceeded), model.StateScheduled},
		{"all disabled", s(model.StateDisabled, model.StateDisabled), model.StateDisabled},
		{"all excluded", s(model.StateExcluded), model.StateExcluded},
		{"mixed passing", s(model.StateSucceeded, model.StateDisabled, model.StateExcluded), model.StateSucceeded},
		{"disabled and excluded", s(model.StateDisabled, model.StateExcluded), model.StateSucceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.in))
		})
	}
}
