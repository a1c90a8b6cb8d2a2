package model

import "fmt"

// Package is a buildable unit. Project is the project that really owns the
// sources, which differs from the target project for inherited packages.
type Package struct {
	Project      string   `json:"project"`
	Name         string   `json:"name"`
	Repositories []string `json:"repositories,omitempty"`
}

// PackageKey identifies a package across projects.
type PackageKey struct {
	Project string
	Name    string
}

// Key returns the identity of p.
func (p Package) Key() PackageKey {
	return PackageKey{Project: p.Project, Name: p.Name}
}

// String renders "project / name" as used in logs and reports.
func (p Package) String() string {
	return fmt.Sprintf("%s / %s", p.Project, p.Name)
}

// Repository is a build repository of a project.
type Repository struct {
	Name  string           `json:"name"`
	Archs []string         `json:"archs,omitempty"`
	Paths []RepositoryPath `json:"paths,omitempty"`
}

// RepositoryPath points a repository at another project's repository for
// build dependencies.
type RepositoryPath struct {
	Project    string `json:"project"`
	Repository string `json:"repository"`
}

// Project is a named package collection that may link parent projects.
type Project struct {
	Name         string       `json:"name"`
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	Links        []string     `json:"links,omitempty"`
	Repositories []Repository `json:"repositories,omitempty"`
}

// Environment is the sub-project used to rebuild the selection in isolation.
type Environment struct {
	Name         string       `json:"name"`
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	Adopted      bool         `json:"adopted"`
	Repositories []Repository `json:"repositories,omitempty"`
}

// EnvironmentName returns the sub-project name for project and suffix.
func EnvironmentName(project, suffix string) string {
	return project + ":" + suffix
}

// Names returns the package names of pkgs in order.
func Names(pkgs []Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.Name
	}
	return out
}

// DependencyEdge records that Consumer needs Provider to build in Repository.
type DependencyEdge struct {
	Consumer   string `json:"consumer"`
	Provider   string `json:"provider"`
	Repository string `json:"repository"`
}
