package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/testservice"
)

var env = &model.Environment{Name: "Factory:Rebuild"}

func targets(names ...string) []Target {
	out := make([]Target, len(names))
	for i, n := range names {
		out[i] = Target{Package: model.Package{Project: "Factory", Name: n}}
	}
	return out
}

func states(r *model.Report) map[string]model.BuildState {
	out := make(map[string]model.BuildState, len(r.Results))
	for _, res := range r.Results {
		out[res.Package.Name] = res.State
	}
	return out
}

func TestAwaitTerminatesAfterLastTransition(t *testing.T) {
	svc := testservice.New().
		SetStatusScript("a", model.StateScheduled, model.StateBuilding, model.StateSucceeded).
		SetStatusScript("b", model.StateBuilding, model.StateSucceeded).
		SetStatusScript("c", model.StateDisabled)

	interval := 200 * time.Millisecond
	start := time.Now()
	report, err := New(svc).Await(context.Background(), env, targets("a", "b", "c"), Options{PollInterval: interval, Timeout: time.Minute})
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.True(t, report.OverallSuccess)
	assert.Equal(t, 3, report.Cycles)
	// Two sleeps between three cycles, none after the last one.
	assert.Less(t, elapsed, 3*interval)
	assert.Equal(t, map[string]model.BuildState{
		"a": model.StateSucceeded,
		"b": model.StateSucceeded,
		"c": model.StateDisabled,
	}, states(report))
	// c was terminal after the first cycle and never asked again.
	assert.Equal(t, 3+2+1, svc.Calls(testservice.MethodGetBuildStatus))
}

func TestAwaitTimeoutIsDistinctFromFailure(t *testing.T) {
	svc := testservice.New().
		SetStatusScript("stuck", model.StateBuilding).
		SetStatusScript("ok", model.StateSucceeded)

	report, err := New(svc).Await(context.Background(), env, targets("stuck", "ok"),
		Options{PollInterval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.False(t, report.OverallSuccess)
	assert.Empty(t, report.Failures)
	require.Len(t, report.TimedOut, 1)
	assert.Equal(t, "stuck", report.TimedOut[0].Package.Name)
	assert.Contains(t, report.TimedOut[0].Reason, "still building")
	assert.Equal(t, model.StateSucceeded, states(report)["ok"])
	assert.Equal(t, 1, report.Counts[model.StateTimedOut])
}

func TestAwaitIsolatesFailures(t *testing.T) {
	svc := testservice.New().
		SetStatusScript("bad", model.StateBuilding, model.StateFailed).
		SetStatusScript("good", model.StateBuilding, model.StateBuilding, model.StateSucceeded)

	report, err := New(svc).Await(context.Background(), env, targets("bad", "good"),
		Options{PollInterval: time.Millisecond, Timeout: time.Minute})
	require.NoError(t, err)

	assert.False(t, report.OverallSuccess)
	assert.Equal(t, model.StateSucceeded, states(report)["good"])
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad", report.Failures[0].Package.Name)
}

func TestAwaitTransitionsAreMonotonic(t *testing.T) {
	svc := testservice.New().
		SetStatusScript("a", model.StateBuilding, model.StateScheduled, model.StateSucceeded)

	var seen []int
	report, err := New(svc).Await(context.Background(), env, targets("a"), Options{
		PollInterval: time.Millisecond,
		Observer: func(p Progress) {
			seen = append(seen, p.Counts[model.StateBuilding])
		},
	})
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)
	// Still building after the service reported scheduled again.
	assert.Equal(t, []int{1, 1, 0}, seen)
}

func TestAwaitRetriesTransientLookupFailures(t *testing.T) {
	svc := testservice.New().
		FailStatus("a", 2).
		SetStatusScript("a", model.StateSucceeded)

	report, err := New(svc).Await(context.Background(), env, targets("a"), Options{PollInterval: time.Millisecond})
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)
	assert.Equal(t, 3, report.Cycles)
}

func TestAwaitPermanentLookupFailureFailsPackage(t *testing.T) {
	svc := &authFailing{Service: testservice.New()}

	report, err := New(svc).Await(context.Background(), env, targets("a"), Options{PollInterval: time.Millisecond})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Reason, "status:")
	assert.Equal(t, 1, report.Cycles)
}

func TestAwaitLinkFailuresAreNotPolled(t *testing.T) {
	svc := testservice.New()
	tg := targets("a", "b")
	tg[1].LinkFailure = "link: permission denied"

	report, err := New(svc).Await(context.Background(), env, tg, Options{PollInterval: time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Calls(testservice.MethodGetBuildStatus))
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "link: permission denied", report.Failures[0].Reason)
	assert.Equal(t, "b", report.Results[1].Package.Name)
}

func TestAwaitNothingToPoll(t *testing.T) {
	report, err := New(testservice.New()).Await(context.Background(), env, nil, Options{})
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)
	assert.Zero(t, report.Cycles)
}

func TestAwaitCancellation(t *testing.T) {
	svc := testservice.New().SetStatusScript("a", model.StateBuilding)
	ctx, cancel := context.WithCancel(context.Background())
	m := New(svc)

	report, err := m.Await(ctx, env, targets("a"), Options{
		PollInterval: time.Hour,
		Observer:     func(Progress) { cancel() },
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateTimedOut, states(report)["a"])
	assert.Equal(t, 1, m.Progress().Counts[model.StateBuilding])
}

func TestAwaitBoundsConcurrency(t *testing.T) {
	svc := &countingService{Service: testservice.New().SetDelay(5 * time.Millisecond)}
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	report, err := New(svc).Await(context.Background(), env, targets(names...), Options{PollInterval: time.Millisecond, Concurrency: 3})
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)
	assert.LessOrEqual(t, svc.peak, 3)
	assert.Greater(t, svc.peak, 0)
}

func TestProgress(t *testing.T) {
	svc := testservice.New().SetStatusScript("a", model.StateBuilding, model.StateFailed)
	m := New(svc)
	_, err := m.Await(context.Background(), env, targets("a", "b"), Options{PollInterval: time.Millisecond})
	require.NoError(t, err)

	p := m.Progress()
	assert.Equal(t, 2, p.Cycle)
	assert.Equal(t, 0, p.Pending)
	assert.Equal(t, 1, p.Counts[model.StateFailed])
	assert.Equal(t, 1, p.Counts[model.StateSucceeded])
}

type authFailing struct{ *testservice.Service }

func (a *authFailing) GetBuildStatus(context.Context, model.Package, *model.Environment) (model.BuildState, error) {
	return "", buildservice.ErrPermissionDenied
}

type countingService struct {
	*testservice.Service
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *countingService) GetBuildStatus(ctx context.Context, pkg model.Package, e *model.Environment) (model.BuildState, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()
	return c.Service.GetBuildStatus(ctx, pkg, e)
}

func TestAwaitLeavesProgressToObserver(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc := testservice.New().SetStatusScript("a", model.StateBuilding, model.StateSucceeded)
	var seen []Progress
	_, err := New(svc).Await(context.Background(), env, targets("a"), Options{
		PollInterval: time.Millisecond,
		Timeout:      time.Minute,
		Observer:     func(p Progress) { seen = append(seen, p) },
	})
	require.NoError(t, err)

	assert.Len(t, seen, 2)
	assert.NotContains(t, buf.String(), "cycle=")
}
