package depgraph

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// graphCacheSize bounds how many repository graphs a Resolver keeps.
const graphCacheSize = 16

// Resolver computes closures for one project and arch, fetching a
// repository's dependency metadata the first time that repository is used.
type Resolver struct {
	svc     buildservice.Service
	project string
	arch    string

	mu     sync.Mutex
	graphs *lru.Cache[string, *Graph]
}

// NewResolver creates a Resolver for project and arch.
func NewResolver(svc buildservice.Service, project, arch string) *Resolver {
	graphs, _ := lru.New[string, *Graph](graphCacheSize)
	return &Resolver{svc: svc, project: project, arch: arch, graphs: graphs}
}

// Graph returns the dependency graph of repository.
func (r *Resolver) Graph(ctx context.Context, repository string) (*Graph, error) {
	if repository == "" {
		return nil, ErrRepositoryRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.graphs.Get(repository); ok {
		return g, nil
	}
	infos, err := r.svc.GetDependencies(ctx, r.project, repository, r.arch)
	if err != nil {
		return nil, err
	}
	g := NewGraph(repository, infos)
	r.graphs.Add(repository, g)
	slog.Debug("Loaded dependency graph",
		logfields.Project(r.project),
		logfields.Repository(repository),
		logfields.Arch(r.arch),
		logfields.Count(len(g.edges)))
	return g, nil
}

// ComputeAffected returns the reverse closure of trigger within universe.
func (r *Resolver) ComputeAffected(ctx context.Context, trigger, universe []model.Package, repository string) ([]model.Package, error) {
	g, err := r.Graph(ctx, repository)
	if err != nil {
		return nil, err
	}
	return g.Affected(trigger, universe), nil
}

// ComputeRequired returns the forward closure of trigger within universe.
func (r *Resolver) ComputeRequired(ctx context.Context, trigger, universe []model.Package, repository string) ([]model.Package, error) {
	g, err := r.Graph(ctx, repository)
	if err != nil {
		return nil, err
	}
	return g.Required(trigger, universe), nil
}
