// Package orchestrator runs one rebuild check: selection, environment,
// linking, monitoring and reporting.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/catalog"
	"git.home.luguber.info/inful/rebuildcheck/internal/depgraph"
	"git.home.luguber.info/inful/rebuildcheck/internal/environment"
	"git.home.luguber.info/inful/rebuildcheck/internal/history"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/metrics"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/monitor"
	"git.home.luguber.info/inful/rebuildcheck/internal/selector"
)

// Request describes one run.
type Request struct {
	Project    string
	Mode       model.Mode
	Names      []string
	Repository string
	DryRun     bool

	Suffix      string
	Title       string
	Description string
	// Cleanup removes the environment after the report is complete.
	Cleanup bool

	Monitor monitor.Options
}

// Journal receives run events.
type Journal interface {
	Record(ctx context.Context, jobID, eventType string, payload any) error
}

// Publisher receives finished reports.
type Publisher interface {
	Publish(ctx context.Context, report *model.Report) error
}

// Orchestrator wires the rebuild components together.
type Orchestrator struct {
	svc       buildservice.Service
	catalog   *catalog.Catalog
	env       *environment.Manager
	monitor   *monitor.Monitor
	arch      string
	recorder  metrics.Recorder
	journal   Journal
	publisher Publisher
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	arch        string
	maxDepth    int
	concurrency int
	recorder    metrics.Recorder
	journal     Journal
	publisher   Publisher
}

// WithArch sets the architecture whose dependency metadata drives expansion.
func WithArch(arch string) Option { return func(o *options) { o.arch = arch } }

// WithMaxDepth bounds the link chain walked by the catalog.
func WithMaxDepth(n int) Option { return func(o *options) { o.maxDepth = n } }

// WithConcurrency bounds parallel link requests.
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(o *options) { o.recorder = r } }

// WithJournal records run events, e.g. into the history database.
func WithJournal(j Journal) Option { return func(o *options) { o.journal = j } }

// WithPublisher publishes every finished report.
func WithPublisher(p Publisher) Option { return func(o *options) { o.publisher = p } }

// New creates an Orchestrator on top of svc.
func New(svc buildservice.Service, opts ...Option) *Orchestrator {
	o := options{arch: "x86_64"}
	for _, fn := range opts {
		fn(&o)
	}
	rec := metrics.OrNoop(o.recorder)
	return &Orchestrator{
		svc:       svc,
		catalog:   catalog.New(svc, catalog.WithMaxDepth(o.maxDepth)),
		env:       environment.New(svc, environment.WithConcurrency(o.concurrency), environment.WithRecorder(rec)),
		monitor:   monitor.New(svc, monitor.WithRecorder(rec)),
		arch:      o.arch,
		recorder:  rec,
		journal:   o.journal,
		publisher: o.publisher,
	}
}

// Monitor exposes the build monitor, e.g. for progress queries.
func (o *Orchestrator) Monitor() *monitor.Monitor { return o.monitor }

// Run executes req. Selection errors abort before the environment is
// touched. The returned report is complete even when packages failed; an
// error is returned only for fatal setup problems.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*model.Report, error) {
	job := model.NewRebuildJob(req.Project, req.Mode, req.Names, req.Repository)
	log := slog.With(logfields.JobID(job.ID), logfields.Project(job.Project))
	log.Info("Starting rebuild check", logfields.Mode(string(job.Mode)), slog.Bool("dry_run", req.DryRun))
	o.record(ctx, job, history.TypeJobStarted, map[string]any{
		"project":    req.Project,
		"mode":       req.Mode,
		"names":      req.Names,
		"repository": req.Repository,
		"dry_run":    req.DryRun,
	})

	if log.Enabled(ctx, slog.LevelDebug) {
		if linked, err := o.catalog.LinkedProjects(ctx, req.Project); err == nil {
			log.Debug("All linked projects", slog.Any("projects", linked))
		}
	}

	sel, err := selector.New(o.catalog, depgraph.NewResolver(o.svc, req.Project, o.arch)).Select(ctx, selector.Request{
		Mode:       req.Mode,
		Project:    req.Project,
		Names:      req.Names,
		Repository: req.Repository,
	})
	if err != nil {
		return nil, o.fail(ctx, job, "selection", err)
	}
	job.Mode = sel.Mode
	job.Packages = sel.Packages
	job.Unresolved = sel.Unresolved
	log.Info("Packages selected", logfields.Mode(string(sel.Mode)), logfields.Count(len(sel.Packages)))
	log.Debug("Selection", slog.Any("packages", packageNames(sel.Packages)))
	o.record(ctx, job, history.TypePackagesSelected, map[string]any{
		"mode":       sel.Mode,
		"packages":   packageNames(sel.Packages),
		"unresolved": sel.Unresolved,
		"warnings":   sel.Warnings,
	})

	if req.DryRun {
		report := o.dryRunReport(job)
		o.finish(ctx, job, report)
		return report, nil
	}

	env, err := o.env.Ensure(ctx, req.Project, req.Suffix, req.Title, req.Description)
	if err != nil {
		return nil, o.fail(ctx, job, "environment", err)
	}
	job.Environment = env
	var stale []string
	if env.Adopted {
		if stale, err = o.env.Stale(ctx, env, job.Packages); err != nil {
			log.Warn("Could not list environment packages", logfields.Error(err))
		}
	}
	o.record(ctx, job, history.TypeEnvironmentReady, map[string]any{
		"environment": env.Name,
		"adopted":     env.Adopted,
		"stale":       stale,
	})

	links := o.env.LinkAll(ctx, env, job.Packages)
	targets := make([]monitor.Target, len(links))
	failedLinks := 0
	for i, l := range links {
		targets[i] = monitor.Target{Package: l.Package}
		if l.Err != nil {
			targets[i].LinkFailure = "link: " + l.Err.Error()
			failedLinks++
		}
	}
	log.Info("Packages linked", logfields.Environment(env.Name), logfields.Count(len(links)-failedLinks), slog.Int("failed", failedLinks))
	o.record(ctx, job, history.TypePackagesLinked, map[string]int{
		"linked": len(links) - failedLinks,
		"failed": failedLinks,
	})

	report, err := o.monitor.Await(ctx, env, targets, req.Monitor)
	if err != nil {
		return nil, o.fail(ctx, job, "monitor", err)
	}
	for _, r := range report.Results {
		job.States[r.Package.Key()] = r.State
	}
	o.fillReport(job, report)

	if req.Cleanup {
		if err := o.env.Remove(ctx, env); err != nil {
			log.Warn("Failed to remove rebuild environment", logfields.Environment(env.Name), logfields.Error(err))
		} else {
			o.record(ctx, job, history.TypeEnvironmentRemoved, map[string]string{"environment": env.Name})
		}
	}

	o.finish(ctx, job, report)
	return report, nil
}

func (o *Orchestrator) dryRunReport(job *model.RebuildJob) *model.Report {
	results := make([]model.PackageResult, len(job.Packages))
	for i, p := range job.Packages {
		results[i] = model.PackageResult{Package: p}
	}
	report := &model.Report{
		DryRun:         true,
		Results:        results,
		Counts:         map[model.BuildState]int{},
		OverallSuccess: true,
	}
	o.fillReport(job, report)
	return report
}

func (o *Orchestrator) fillReport(job *model.RebuildJob, report *model.Report) {
	report.JobID = job.ID
	report.Project = job.Project
	report.Mode = job.Mode
	report.Unresolved = job.Unresolved
	report.Duration = time.Since(job.StartedAt)
	if job.Environment != nil {
		report.Environment = job.Environment.Name
	}
}

func (o *Orchestrator) finish(ctx context.Context, job *model.RebuildJob, report *model.Report) {
	outcome := metrics.OutcomeFailed
	switch {
	case report.DryRun:
		outcome = metrics.OutcomeDryRun
	case report.OverallSuccess:
		outcome = metrics.OutcomeSuccess
	case len(report.Failures) == 0:
		outcome = metrics.OutcomeTimedOut
	}
	o.recorder.IncRunOutcome(outcome)
	o.recorder.ObserveRunDuration(report.Duration)

	slog.Info("Rebuild check finished",
		logfields.JobID(job.ID),
		slog.String("outcome", string(outcome)),
		slog.Int("failed", len(report.Failures)),
		slog.Int("timed_out", len(report.TimedOut)),
		logfields.Duration(report.Duration))

	o.record(ctx, job, history.TypeJobCompleted, map[string]any{
		"outcome":         outcome,
		"overall_success": report.OverallSuccess,
		"counts":          report.Counts,
		"failures":        resultNames(report.Failures),
		"timed_out":       resultNames(report.TimedOut),
	})
	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, report); err != nil {
			slog.Warn("Failed to publish report", logfields.JobID(job.ID), logfields.Error(err))
		}
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *model.RebuildJob, stage string, err error) error {
	o.recorder.IncRunOutcome(metrics.OutcomeError)
	o.record(ctx, job, history.TypeJobFailed, map[string]string{
		"stage": stage,
		"error": err.Error(),
	})
	return err
}

func (o *Orchestrator) record(ctx context.Context, job *model.RebuildJob, eventType string, payload any) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(ctx, job.ID, eventType, payload); err != nil {
		slog.Warn("Failed to record history event", logfields.JobID(job.ID), slog.String("type", eventType), logfields.Error(err))
	}
}

func packageNames(pkgs []model.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.String()
	}
	return out
}

func resultNames(results []model.PackageResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Package.String()
	}
	return out
}
