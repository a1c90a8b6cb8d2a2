// Package buildservice defines the Build Service collaborator used by every
// rebuild component and provides an Open Build Service HTTP/XML client.
//
// Implementations never cache build state: every GetBuildStatus call is a
// live read.
package buildservice

import (
	"context"

	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// DepInfo is the dependency metadata of one package in one repository.
// Deps lists provider package names in declared order.
type DepInfo struct {
	Name string
	Deps []string
}

// Service is the contract between the rebuild components and the remote
// Build Service.
type Service interface {
	// GetProjectMeta returns title, description, links and repositories of project.
	GetProjectMeta(ctx context.Context, project string) (*model.Project, error)

	// GetPackages returns the packages owned by project, without inherited ones.
	GetPackages(ctx context.Context, project string) ([]model.Package, error)

	// CreateOrGetProject creates the named project if absent. An existing
	// project is returned unchanged with Adopted set.
	CreateOrGetProject(ctx context.Context, name, title, description string, repos []model.Repository) (*model.Environment, error)

	// LinkPackage creates or replaces a link to pkg inside env.
	LinkPackage(ctx context.Context, pkg model.Package, env *model.Environment) error

	// GetBuildStatus returns the aggregated build state of pkg in env.
	GetBuildStatus(ctx context.Context, pkg model.Package, env *model.Environment) (model.BuildState, error)

	// GetDependencies returns build dependency metadata of project for one repository and arch.
	GetDependencies(ctx context.Context, project, repository, arch string) ([]DepInfo, error)

	// DeleteProject removes project and everything in it.
	DeleteProject(ctx context.Context, project string) error
}
