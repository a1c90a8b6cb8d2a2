// Package testservice provides an in-memory Build Service for tests.
package testservice

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// FailMode defines how the test service should behave for every call.
type FailMode int

const (
	FailModeNone FailMode = iota
	FailModeAuth
	FailModeNetwork
	FailModeNotFound
)

// Method names used by Calls.
const (
	MethodGetProjectMeta     = "GetProjectMeta"
	MethodGetPackages        = "GetPackages"
	MethodCreateOrGetProject = "CreateOrGetProject"
	MethodLinkPackage        = "LinkPackage"
	MethodGetBuildStatus     = "GetBuildStatus"
	MethodGetDependencies    = "GetDependencies"
	MethodDeleteProject      = "DeleteProject"
)

var mutating = map[string]bool{
	MethodCreateOrGetProject: true,
	MethodLinkPackage:        true,
	MethodDeleteProject:      true,
}

type project struct {
	meta     model.Project
	packages []string
}

// Service is a scriptable buildservice.Service. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	projects  map[string]*project
	deps      map[string][]buildservice.DepInfo
	scripts   map[string][]model.BuildState
	linkErr   map[string]error
	statusErr map[string]int
	failMode  FailMode
	denied    bool
	delay     time.Duration

	calls  map[string]int
	linked map[string][]model.Package
}

var _ buildservice.Service = (*Service)(nil)

// New returns an empty test service.
func New() *Service {
	return &Service{
		projects:  make(map[string]*project),
		deps:      make(map[string][]buildservice.DepInfo),
		scripts:   make(map[string][]model.BuildState),
		linkErr:   make(map[string]error),
		statusErr: make(map[string]int),
		calls:     make(map[string]int),
		linked:    make(map[string][]model.Package),
	}
}

// AddProject registers a project with its own packages. Repositories and
// links are taken from meta.
func (s *Service) AddProject(meta model.Project, packages ...string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[meta.Name] = &project{meta: meta, packages: append([]string(nil), packages...)}
	return s
}

// SetDependencies registers dependency metadata for project/repository/arch.
func (s *Service) SetDependencies(project, repository, arch string, deps []buildservice.DepInfo) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps[depKey(project, repository, arch)] = deps
	return s
}

// SetStatusScript makes successive GetBuildStatus calls for the package name
// return states in order. The last state repeats. Packages without a script
// report succeeded.
func (s *Service) SetStatusScript(name string, states ...model.BuildState) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[name] = append([]model.BuildState(nil), states...)
	return s
}

// FailLink makes LinkPackage fail for the package name.
func (s *Service) FailLink(name string, err error) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linkErr[name] = err
	return s
}

// FailStatus makes the next n GetBuildStatus calls for name fail with a
// retryable network error.
func (s *Service) FailStatus(name string, n int) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusErr[name] = n
	return s
}

// SetFailMode makes every call fail in the given way.
func (s *Service) SetFailMode(mode FailMode) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMode = mode
	return s
}

// DenyCreate makes CreateOrGetProject fail with a permission error for
// projects that do not exist yet.
func (s *Service) DenyCreate() *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied = true
	return s
}

// SetDelay delays every GetBuildStatus call.
func (s *Service) SetDelay(d time.Duration) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Calls returns how often method was invoked.
func (s *Service) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// MutatingCalls returns the number of calls that change remote state.
func (s *Service) MutatingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for m, c := range s.calls {
		if mutating[m] {
			n += c
		}
	}
	return n
}

// Linked returns the packages linked into env in link order.
func (s *Service) Linked(env string) []model.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Package(nil), s.linked[env]...)
}

// HasProject reports whether name exists.
func (s *Service) HasProject(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[name]
	return ok
}

// GetProjectMeta implements buildservice.Service.
func (s *Service) GetProjectMeta(_ context.Context, name string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodGetProjectMeta); err != nil {
		return nil, err
	}
	p, ok := s.projects[name]
	if !ok {
		return nil, buildservice.ErrProjectNotFound.WithContext("project", name)
	}
	meta := p.meta
	return &meta, nil
}

// GetPackages implements buildservice.Service.
func (s *Service) GetPackages(_ context.Context, name string) ([]model.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodGetPackages); err != nil {
		return nil, err
	}
	p, ok := s.projects[name]
	if !ok {
		return nil, buildservice.ErrProjectNotFound.WithContext("project", name)
	}
	out := make([]model.Package, 0, len(p.packages))
	for _, n := range p.packages {
		out = append(out, model.Package{Project: name, Name: n})
	}
	return out, nil
}

// CreateOrGetProject implements buildservice.Service.
func (s *Service) CreateOrGetProject(_ context.Context, name, title, description string, repos []model.Repository) (*model.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodCreateOrGetProject); err != nil {
		return nil, err
	}
	if p, ok := s.projects[name]; ok {
		return &model.Environment{
			Name:         name,
			Title:        p.meta.Title,
			Description:  p.meta.Description,
			Adopted:      true,
			Repositories: p.meta.Repositories,
		}, nil
	}
	if s.denied {
		return nil, buildservice.ErrPermissionDenied.WithContext("project", name)
	}
	s.projects[name] = &project{meta: model.Project{Name: name, Title: title, Description: description, Repositories: repos}}
	return &model.Environment{Name: name, Title: title, Description: description, Repositories: repos}, nil
}

// LinkPackage implements buildservice.Service.
func (s *Service) LinkPackage(_ context.Context, pkg model.Package, env *model.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodLinkPackage); err != nil {
		return err
	}
	if err := s.linkErr[pkg.Name]; err != nil {
		return err
	}
	p, ok := s.projects[env.Name]
	if !ok {
		return buildservice.ErrProjectNotFound.WithContext("project", env.Name)
	}
	if !contains(p.packages, pkg.Name) {
		p.packages = append(p.packages, pkg.Name)
	}
	s.linked[env.Name] = append(s.linked[env.Name], pkg)
	return nil
}

// GetBuildStatus implements buildservice.Service.
func (s *Service) GetBuildStatus(ctx context.Context, pkg model.Package, _ *model.Environment) (model.BuildState, error) {
	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodGetBuildStatus); err != nil {
		return "", err
	}
	if n := s.statusErr[pkg.Name]; n > 0 {
		s.statusErr[pkg.Name] = n - 1
		return "", errors.NetworkError("status lookup failed").WithContext("package", pkg.Name).Build()
	}
	script, ok := s.scripts[pkg.Name]
	if !ok || len(script) == 0 {
		return model.StateSucceeded, nil
	}
	st := script[0]
	if len(script) > 1 {
		s.scripts[pkg.Name] = script[1:]
	}
	return st, nil
}

// GetDependencies implements buildservice.Service.
func (s *Service) GetDependencies(_ context.Context, project, repository, arch string) ([]buildservice.DepInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodGetDependencies); err != nil {
		return nil, err
	}
	if _, ok := s.projects[project]; !ok {
		return nil, buildservice.ErrProjectNotFound.WithContext("project", project)
	}
	return s.deps[depKey(project, repository, arch)], nil
}

// DeleteProject implements buildservice.Service.
func (s *Service) DeleteProject(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodDeleteProject); err != nil {
		return err
	}
	if _, ok := s.projects[name]; !ok {
		return buildservice.ErrProjectNotFound.WithContext("project", name)
	}
	delete(s.projects, name)
	delete(s.linked, name)
	return nil
}

// enter counts the call and applies the fail mode. Callers hold mu.
func (s *Service) enter(method string) error {
	s.calls[method]++
	switch s.failMode {
	case FailModeAuth:
		return buildservice.ErrAuthRequired
	case FailModeNetwork:
		return errors.NetworkError("test service unreachable").Build()
	case FailModeNotFound:
		return buildservice.ErrProjectNotFound
	}
	return nil
}

func depKey(project, repository, arch string) string {
	return project + "|" + repository + "|" + arch
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
