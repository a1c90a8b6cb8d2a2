// Package environment manages the isolated sub-project a rebuild runs in.
//
// An environment that already exists is adopted as-is and every selected
// package is linked again, replacing whatever link was there. Packages left
// over from earlier runs are reported as stale but never removed.
package environment

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/metrics"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/util/sets"
)

// DefaultConcurrency bounds parallel link creation.
const DefaultConcurrency = 8

var (
	// ErrEnvironmentDenied signals missing permission to create the environment.
	ErrEnvironmentDenied = errors.AuthError("rebuild environment creation denied").Fatal().Build()

	// ErrSuffixRequired signals an empty environment suffix.
	ErrSuffixRequired = errors.ValidationError("environment suffix required").Build()
)

// LinkResult is the outcome of linking one package.
type LinkResult struct {
	Package model.Package
	Err     error
}

// Manager creates environments and links packages into them.
type Manager struct {
	svc         buildservice.Service
	concurrency int
	recorder    metrics.Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithConcurrency sets the number of parallel link requests.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) { m.recorder = metrics.OrNoop(r) }
}

// New creates a Manager.
func New(svc buildservice.Service, opts ...Option) *Manager {
	m := &Manager{svc: svc, concurrency: DefaultConcurrency, recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Ensure returns the environment project:suffix, creating it when absent.
// A new environment builds against every repository of project.
func (m *Manager) Ensure(ctx context.Context, project, suffix, title, description string) (*model.Environment, error) {
	if suffix == "" {
		return nil, ErrSuffixRequired.WithContext("project", project)
	}
	parent, err := m.svc.GetProjectMeta(ctx, project)
	if err != nil {
		return nil, err
	}

	name := model.EnvironmentName(project, suffix)
	env, err := m.svc.CreateOrGetProject(ctx, name, title, description, repositoriesFor(parent))
	if err != nil {
		if errors.HasCategory(err, errors.CategoryAuth) {
			return nil, ErrEnvironmentDenied.WithContext("project", name).WithCause(err)
		}
		return nil, err
	}
	if env.Adopted {
		slog.Warn("Reusing existing rebuild environment; earlier links may be stale",
			logfields.Environment(env.Name))
	} else {
		slog.Info("Rebuild environment ready", logfields.Environment(env.Name))
	}
	return env, nil
}

// Stale returns the names of packages present in env that are not part of
// selection. The result is informational.
func (m *Manager) Stale(ctx context.Context, env *model.Environment, selection []model.Package) ([]string, error) {
	existing, err := m.svc.GetPackages(ctx, env.Name)
	if err != nil {
		return nil, err
	}
	want := sets.New[string]()
	for _, p := range selection {
		want.Add(p.Name)
	}
	var stale []string
	for _, p := range existing {
		if !want.Has(p.Name) {
			stale = append(stale, p.Name)
		}
	}
	if len(stale) > 0 {
		slog.Warn("Rebuild environment contains packages outside the selection",
			logfields.Environment(env.Name),
			logfields.Count(len(stale)),
			slog.Any("packages", stale))
	}
	return stale, nil
}

// Link creates or replaces the link of pkg in env. Failures are returned in
// the result, never as a panic or abort.
func (m *Manager) Link(ctx context.Context, env *model.Environment, pkg model.Package) LinkResult {
	err := m.svc.LinkPackage(ctx, pkg, env)
	if err != nil {
		m.recorder.IncLinkResult(metrics.ResultFailed)
		slog.Warn("Link failed",
			logfields.Environment(env.Name),
			logfields.Source(pkg.Project),
			logfields.Package(pkg.Name),
			logfields.Error(err))
		return LinkResult{Package: pkg, Err: err}
	}
	m.recorder.IncLinkResult(metrics.ResultSuccess)
	slog.Debug("Linked package",
		logfields.Environment(env.Name),
		logfields.Source(pkg.Project),
		logfields.Package(pkg.Name))
	return LinkResult{Package: pkg}
}

// LinkAll links every package through a bounded worker pool. Results are in
// input order.
func (m *Manager) LinkAll(ctx context.Context, env *model.Environment, pkgs []model.Package) []LinkResult {
	res := buildservice.RunOrdered(ctx, pkgs, m.concurrency, func(ctx context.Context, p model.Package) (LinkResult, error) {
		return m.Link(ctx, env, p), nil
	})
	out := make([]LinkResult, len(pkgs))
	for i, r := range res {
		out[i] = r.Value
		if r.Err != nil {
			out[i] = LinkResult{Package: pkgs[i], Err: r.Err}
		}
	}
	return out
}

// Remove deletes env.
func (m *Manager) Remove(ctx context.Context, env *model.Environment) error {
	if err := m.svc.DeleteProject(ctx, env.Name); err != nil {
		return err
	}
	slog.Info("Removed rebuild environment", logfields.Environment(env.Name))
	return nil
}

// repositoriesFor mirrors the repositories of parent, each building against
// the parent repository of the same name.
func repositoriesFor(parent *model.Project) []model.Repository {
	out := make([]model.Repository, 0, len(parent.Repositories))
	for _, r := range parent.Repositories {
		out = append(out, model.Repository{
			Name:  r.Name,
			Archs: append([]string(nil), r.Archs...),
			Paths: []model.RepositoryPath{{Project: parent.Name, Repository: r.Name}},
		})
	}
	return out
}
