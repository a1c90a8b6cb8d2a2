package depgraph

import (
	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/util/sets"
)

// ErrRepositoryRequired signals a closure request without a repository.
var ErrRepositoryRequired = errors.SelectionError("repository required for dependency expansion").Build()

// Graph is the build dependency graph of one repository.
type Graph struct {
	repository string
	providers  map[string][]string
	consumers  map[string][]string
	edges      []model.DependencyEdge
}

// NewGraph builds a graph from dependency metadata of repository.
// Duplicate edges and self edges are dropped.
func NewGraph(repository string, infos []buildservice.DepInfo) *Graph {
	g := &Graph{
		repository: repository,
		providers:  make(map[string][]string, len(infos)),
		consumers:  make(map[string][]string),
	}
	seen := sets.New[model.DependencyEdge]()
	for _, info := range infos {
		for _, dep := range info.Deps {
			if dep == info.Name {
				continue
			}
			e := model.DependencyEdge{Consumer: info.Name, Provider: dep, Repository: repository}
			if !seen.Insert(e) {
				continue
			}
			g.edges = append(g.edges, e)
			g.providers[info.Name] = append(g.providers[info.Name], dep)
			g.consumers[dep] = append(g.consumers[dep], info.Name)
		}
	}
	return g
}

// Repository returns the repository the graph describes.
func (g *Graph) Repository() string { return g.repository }

// Edges returns all edges in metadata order.
func (g *Graph) Edges() []model.DependencyEdge {
	return append([]model.DependencyEdge(nil), g.edges...)
}

// Providers returns the direct build dependencies of name.
func (g *Graph) Providers(name string) []string { return g.providers[name] }

// Consumers returns the packages that directly build-depend on name.
func (g *Graph) Consumers(name string) []string { return g.consumers[name] }

// Affected returns trigger plus every universe package that transitively
// build-depends on a trigger package.
func (g *Graph) Affected(trigger, universe []model.Package) []model.Package {
	return g.closure(trigger, universe, g.consumers)
}

// Required returns trigger plus every universe package a trigger package
// transitively build-depends on.
func (g *Graph) Required(trigger, universe []model.Package) []model.Package {
	return g.closure(trigger, universe, g.providers)
}

func (g *Graph) closure(trigger, universe []model.Package, next map[string][]string) []model.Package {
	byName := make(map[string]model.Package, len(universe))
	for _, p := range universe {
		if _, ok := byName[p.Name]; !ok {
			byName[p.Name] = p
		}
	}

	visited := sets.New[string]()
	var out []model.Package
	var queue []string
	for _, t := range trigger {
		p, ok := byName[t.Name]
		if !ok || !visited.Insert(t.Name) {
			continue
		}
		out = append(out, p)
		queue = append(queue, t.Name)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next[cur] {
			p, ok := byName[n]
			if !ok || !visited.Insert(n) {
				continue
			}
			out = append(out, p)
			queue = append(queue, n)
		}
	}
	return out
}
