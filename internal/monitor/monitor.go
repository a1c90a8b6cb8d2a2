// Package monitor drives linked packages to a terminal build state by
// polling the Build Service.
//
// Every package runs through the same state machine:
//
//	scheduled -> building -> succeeded | failed | disabled
//	scheduled -> excluded
//
// A poll cycle looks up the live state of every non-terminal package
// through a bounded worker pool and ends once all lookups returned or were
// abandoned. Observed states only move a package forward (see
// model.BuildState.Advance). A lookup that fails transiently leaves the
// last known state in place and is repeated next cycle. When the deadline
// passes, packages that are still not terminal become timedOut.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/metrics"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// Defaults applied to zero Options fields.
const (
	DefaultPollInterval = time.Minute
	DefaultConcurrency  = 8
)

// Target is a package to watch. A non-empty LinkFailure means the package
// was never linked; it enters as failed and is not polled.
type Target struct {
	Package     model.Package
	LinkFailure string
}

// Options controls one Await call.
type Options struct {
	PollInterval time.Duration
	// Timeout bounds the whole wait; zero waits until ctx is done.
	Timeout     time.Duration
	Concurrency int
	// Observer is called after every completed cycle.
	Observer func(Progress)
}

// Progress summarizes the states after a poll cycle.
type Progress struct {
	Cycle   int
	Counts  map[model.BuildState]int
	Pending int
}

// Monitor polls build states. A Monitor may be reused for sequential
// Await calls.
type Monitor struct {
	svc      buildservice.Service
	recorder metrics.Recorder

	mu   sync.Mutex
	last Progress
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Monitor) { m.recorder = metrics.OrNoop(r) }
}

// New creates a Monitor.
func New(svc buildservice.Service, opts ...Option) *Monitor {
	m := &Monitor{svc: svc, recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Progress returns the counts of the last completed cycle.
func (m *Monitor) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.BuildState]int, len(m.last.Counts))
	for k, v := range m.last.Counts {
		counts[k] = v
	}
	return Progress{Cycle: m.last.Cycle, Counts: counts, Pending: m.last.Pending}
}

type entry struct {
	target Target
	state  model.BuildState
	reason string
}

// Await polls until every target is terminal or the deadline passes and
// returns the per-package report. The report lists targets in input order.
func (m *Monitor) Await(ctx context.Context, env *model.Environment, targets []Target, opts Options) (*model.Report, error) {
	if env == nil {
		return nil, errors.InternalError("await without environment").Build()
	}
	opts = withDefaults(opts)
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	entries := make([]*entry, len(targets))
	for i, t := range targets {
		e := &entry{target: t, state: model.StateScheduled}
		if t.LinkFailure != "" {
			e.state = model.StateFailed
			e.reason = t.LinkFailure
		}
		entries[i] = e
	}

	cycle := 0
	for {
		pending := nonTerminal(entries)
		if len(pending) == 0 {
			break
		}
		cycle++
		m.poll(ctx, env, pending, opts.Concurrency)
		m.publish(cycle, entries, opts.Observer)

		if ctx.Err() != nil || len(nonTerminal(entries)) == 0 {
			break
		}
		if !sleep(ctx, opts.PollInterval) {
			break
		}
	}

	results := make([]model.PackageResult, len(entries))
	for i, e := range entries {
		if !e.state.IsTerminal() {
			e.reason = fmt.Sprintf("still %s after %s", e.state, time.Since(start).Round(time.Second))
			e.state = model.StateTimedOut
		}
		results[i] = model.PackageResult{Package: e.target.Package, State: e.state, Reason: e.reason}
	}

	report := model.NewReport(results)
	report.Environment = env.Name
	report.Cycles = cycle
	report.Duration = time.Since(start)
	return report, nil
}

// poll performs one cycle of live lookups for pending and merges the results.
func (m *Monitor) poll(ctx context.Context, env *model.Environment, pending []*entry, concurrency int) {
	res := buildservice.RunOrdered(ctx, pending, concurrency, func(ctx context.Context, e *entry) (model.BuildState, error) {
		return m.svc.GetBuildStatus(ctx, e.target.Package, env)
	})
	for i, r := range res {
		e := pending[i]
		pkg := e.target.Package
		if r.Err != nil {
			if ctx.Err() != nil {
				continue
			}
			m.recorder.IncLookupFailure()
			if permanent(r.Err) {
				e.state = model.StateFailed
				e.reason = "status: " + r.Err.Error()
				slog.Error("Status lookup failed permanently",
					logfields.Source(pkg.Project), logfields.Package(pkg.Name), logfields.Error(r.Err))
				continue
			}
			slog.Warn("Status lookup failed, keeping last known state",
				logfields.Source(pkg.Project), logfields.Package(pkg.Name),
				logfields.State(string(e.state)), logfields.Error(r.Err))
			continue
		}
		next := e.state.Advance(r.Value)
		if next != e.state {
			slog.Debug("Package state changed",
				logfields.Source(pkg.Project), logfields.Package(pkg.Name),
				slog.String("from", string(e.state)), logfields.State(string(next)))
			e.state = next
		}
	}
}

func (m *Monitor) publish(cycle int, entries []*entry, observer func(Progress)) {
	counts := make(map[model.BuildState]int, len(model.AllStates))
	pending := 0
	for _, e := range entries {
		counts[e.state]++
		if !e.state.IsTerminal() {
			pending++
		}
	}
	p := Progress{Cycle: cycle, Counts: counts, Pending: pending}

	m.mu.Lock()
	m.last = p
	m.mu.Unlock()

	m.recorder.IncPollCycle()
	for _, s := range model.AllStates {
		m.recorder.SetStateCount(string(s), counts[s])
	}
	passed := counts[model.StateSucceeded] + counts[model.StateDisabled] + counts[model.StateExcluded]
	// Callers report progress through the observer; this line is for tracing.
	slog.Debug("Poll cycle complete",
		logfields.Cycle(cycle),
		slog.Int("passed", passed),
		slog.Int("failed", counts[model.StateFailed]),
		slog.Int("building", counts[model.StateBuilding]),
		slog.Int("scheduled", counts[model.StateScheduled]))
	if observer != nil {
		observer(p)
	}
}

func nonTerminal(entries []*entry) []*entry {
	var out []*entry
	for _, e := range entries {
		if !e.state.IsTerminal() {
			out = append(out, e)
		}
	}
	return out
}

// permanent reports lookup errors that will not go away by asking again.
func permanent(err error) bool {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return false
	}
	return !ce.IsTransient() && ce.Category() != errors.CategoryNotFound
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func withDefaults(o Options) Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}
