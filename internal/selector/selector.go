// Package selector turns a selection mode and a list of names into the
// working set of packages to verify.
package selector

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/util/sets"
)

// ErrUnknownMode signals a mode outside model.Mode's enumeration.
var ErrUnknownMode = errors.SelectionError("unknown selection mode").Build()

// ErrNothingSelected signals explicit names of which none exists in the project.
var ErrNothingSelected = errors.SelectionError("none of the named packages exists in the project").Build()

// Catalog resolves the flattened package set of a project.
type Catalog interface {
	Resolve(ctx context.Context, project string, recursive bool) ([]model.Package, error)
}

// Resolver expands a package set along build dependencies of one repository.
type Resolver interface {
	ComputeAffected(ctx context.Context, trigger, universe []model.Package, repository string) ([]model.Package, error)
	ComputeRequired(ctx context.Context, trigger, universe []model.Package, repository string) ([]model.Package, error)
}

// Request describes one selection.
type Request struct {
	Mode       model.Mode
	Project    string
	Names      []string
	Repository string
}

// Selection is the outcome of Select.
type Selection struct {
	// Mode is the mode actually applied after degradation.
	Mode       model.Mode
	Packages   []model.Package
	Unresolved []string
	Warnings   []string
}

// Selector implements every selection mode on top of a Catalog and,
// for the expanding modes, a Resolver.
type Selector struct {
	catalog  Catalog
	resolver Resolver
}

// New creates a Selector. resolver may be nil when no expanding mode is used.
func New(catalog Catalog, resolver Resolver) *Selector {
	return &Selector{catalog: catalog, resolver: resolver}
}

// Select returns the working set for req. Identical requests against the
// same catalog snapshot yield identical selections.
func (s *Selector) Select(ctx context.Context, req Request) (*Selection, error) {
	if !req.Mode.Valid() {
		return nil, ErrUnknownMode.WithContext("mode", string(req.Mode))
	}
	universe, err := s.catalog.Resolve(ctx, req.Project, true)
	if err != nil {
		return nil, err
	}

	sel := &Selection{Mode: req.Mode}
	names := cleanNames(req.Names)

	if req.Mode == model.ModeTriggered && len(names) == 0 {
		sel.warn("no trigger packages given, checking the full project", req)
		sel.Mode = model.ModeFull
	}
	if req.Mode.Expands() && req.Repository == "" {
		sel.warn("no repository given for dependency expansion, checking the named packages only", req)
		sel.Mode = model.ModeExplicit
	}

	if sel.Mode == model.ModeFull {
		sel.Packages = dedupe(universe)
		return sel, nil
	}

	matched := filter(universe, names)
	sel.Unresolved = unresolved(matched, names)
	for _, n := range sel.Unresolved {
		slog.Warn("Package not found in project", logfields.Project(req.Project), logfields.Package(n))
	}

	// A trigger list that matches nothing must not turn into an empty, passing run.
	if sel.Mode == model.ModeTriggered && len(matched) == 0 {
		sel.warn("no trigger package matched, checking the full project", req)
		sel.Mode = model.ModeFull
		sel.Packages = dedupe(universe)
		return sel, nil
	}

	// Likewise for explicit names; an empty working set would pass trivially.
	if len(matched) == 0 {
		return nil, ErrNothingSelected.
			WithContext("project", req.Project).
			WithContext("unresolved", sel.Unresolved)
	}

	switch sel.Mode {
	case model.ModeExplicitDependents:
		matched, err = s.expand(ctx, req, matched, universe, false)
	case model.ModeExplicitRequired:
		matched, err = s.expand(ctx, req, matched, universe, true)
	}
	if err != nil {
		return nil, err
	}
	sel.Packages = dedupe(matched)
	return sel, nil
}

func (s *Selector) expand(ctx context.Context, req Request, trigger, universe []model.Package, forward bool) ([]model.Package, error) {
	if s.resolver == nil {
		return nil, errors.InternalError("dependency expansion requested without a resolver").Build()
	}
	if forward {
		return s.resolver.ComputeRequired(ctx, trigger, universe, req.Repository)
	}
	return s.resolver.ComputeAffected(ctx, trigger, universe, req.Repository)
}

func (s *Selection) warn(msg string, req Request) {
	s.Warnings = append(s.Warnings, msg)
	slog.Warn(msg, logfields.Project(req.Project), logfields.Mode(string(req.Mode)))
}

// cleanNames trims names and drops empty and repeated entries.
func cleanNames(names []string) []string {
	seen := sets.New[string]()
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || !seen.Insert(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// filter keeps catalog packages whose name is in names, in catalog order.
func filter(universe []model.Package, names []string) []model.Package {
	want := sets.New(names...)
	var out []model.Package
	for _, p := range universe {
		if want.Has(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

func unresolved(matched []model.Package, names []string) []string {
	found := sets.New[string]()
	for _, p := range matched {
		found.Add(p.Name)
	}
	var out []string
	for _, n := range names {
		if !found.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func dedupe(pkgs []model.Package) []model.Package {
	seen := sets.New[model.PackageKey]()
	out := make([]model.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if seen.Insert(p.Key()) {
			out = append(out, p)
		}
	}
	return out
}
