// Package catalog flattens a project and the projects it links into one
// package set.
//
// Links are walked depth-first in declared order with the target project
// first. The first project that provides a package name owns it, so a
// project's own packages shadow inherited ones.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/util/sets"
)

// DefaultMaxDepth bounds the length of a link chain.
const DefaultMaxDepth = 32

var (
	// ErrProjectNotFound signals that the target or a linked project does not exist.
	ErrProjectNotFound = buildservice.ErrProjectNotFound

	// ErrLinkCycle signals a project reachable from itself through links.
	ErrLinkCycle = errors.SelectionError("project link cycle").Build()

	// ErrLinkDepth signals a link chain longer than the configured maximum.
	ErrLinkDepth = errors.SelectionError("project link chain too deep").Build()
)

// Catalog resolves flattened package sets through a Build Service.
type Catalog struct {
	svc      buildservice.Service
	maxDepth int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// New creates a Catalog.
func New(svc buildservice.Service, opts ...Option) *Catalog {
	c := &Catalog{svc: svc, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resolve returns the packages of project. With recursive set, packages of
// linked projects are included unless shadowed, each tagged with the
// project that really owns it.
func (c *Catalog) Resolve(ctx context.Context, project string, recursive bool) ([]model.Package, error) {
	w := c.newWalk()
	if err := w.visit(ctx, project, "", recursive); err != nil {
		return nil, err
	}
	slog.Debug("Resolved catalog",
		logfields.Project(project),
		logfields.Count(len(w.packages)),
		slog.Int("projects", len(w.order)))
	return w.packages, nil
}

// LinkedProjects returns every project reachable from project through links,
// in walk order, without project itself.
func (c *Catalog) LinkedProjects(ctx context.Context, project string) ([]string, error) {
	w := c.newWalk()
	w.metaOnly = true
	if err := w.visit(ctx, project, "", true); err != nil {
		return nil, err
	}
	return w.order[1:], nil
}

type walk struct {
	c        *Catalog
	metaOnly bool
	visited  sets.Set[string]
	path     []string
	onPath   sets.Set[string]
	order    []string
	seen     sets.Set[string]
	packages []model.Package
}

func (c *Catalog) newWalk() *walk {
	return &walk{
		c:       c,
		visited: sets.New[string](),
		onPath:  sets.New[string](),
		seen:    sets.New[string](),
	}
}

func (w *walk) visit(ctx context.Context, project, linkedFrom string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.onPath.Has(project) {
		cycle := append(append([]string(nil), w.path...), project)
		return ErrLinkCycle.WithContext("project", project).
			WithContext("path", strings.Join(cycle, " -> "))
	}
	if w.visited.Has(project) {
		return nil
	}
	if len(w.path) >= w.c.maxDepth {
		return ErrLinkDepth.WithContext("project", project).
			WithContext("max_depth", w.c.maxDepth)
	}

	meta, err := w.c.svc.GetProjectMeta(ctx, project)
	if err != nil {
		return notFound(err, project, linkedFrom)
	}

	w.visited.Add(project)
	w.order = append(w.order, project)

	if !w.metaOnly {
		pkgs, err := w.c.svc.GetPackages(ctx, project)
		if err != nil {
			return notFound(err, project, linkedFrom)
		}
		repos := repositoryNames(meta.Repositories)
		for _, p := range pkgs {
			if !w.seen.Insert(p.Name) {
				slog.Debug("Package shadowed", logfields.Package(p.Name), logfields.Source(project))
				continue
			}
			w.packages = append(w.packages, model.Package{Project: project, Name: p.Name, Repositories: repos})
		}
	}

	if !recursive {
		return nil
	}

	w.path = append(w.path, project)
	w.onPath.Add(project)
	defer func() {
		w.path = w.path[:len(w.path)-1]
		w.onPath.Delete(project)
	}()

	for _, link := range meta.Links {
		if err := w.visit(ctx, link, project, recursive); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error, project, linkedFrom string) error {
	if !errors.HasCategory(err, errors.CategoryNotFound) {
		return err
	}
	// The Build Service already reports missing projects with the sentinel.
	e, ok := errors.AsClassified(err)
	if !ok || !e.Is(ErrProjectNotFound) {
		e = ErrProjectNotFound.WithCause(err)
	}
	e = e.WithContext("project", project)
	if linkedFrom != "" {
		e = e.WithContext("linked_from", linkedFrom)
	}
	return e
}

func repositoryNames(repos []model.Repository) []string {
	if len(repos) == 0 {
		return nil
	}
	out := make([]string, len(repos))
	for i, r := range repos {
		out[i] = r.Name
	}
	return out
}
