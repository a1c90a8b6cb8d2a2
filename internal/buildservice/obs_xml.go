package buildservice

import (
	"encoding/xml"

	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

type projectMeta struct {
	XMLName      xml.Name         `xml:"project"`
	Name         string           `xml:"name,attr"`
	Title        string           `xml:"title"`
	Description  string           `xml:"description"`
	Links        []projectLink    `xml:"link"`
	Repositories []repositoryMeta `xml:"repository"`
}

type projectLink struct {
	Project string `xml:"project,attr"`
}

type repositoryMeta struct {
	Name  string     `xml:"name,attr"`
	Paths []pathMeta `xml:"path"`
	Archs []string   `xml:"arch"`
}

type pathMeta struct {
	Project    string `xml:"project,attr"`
	Repository string `xml:"repository,attr"`
}

type packageMeta struct {
	XMLName     xml.Name `xml:"package"`
	Name        string   `xml:"name,attr"`
	Project     string   `xml:"project,attr"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
}

type linkMeta struct {
	XMLName xml.Name `xml:"link"`
	Project string   `xml:"project,attr"`
	Package string   `xml:"package,attr"`
}

type directory struct {
	XMLName xml.Name `xml:"directory"`
	Entries []struct {
		Name string `xml:"name,attr"`
	} `xml:"entry"`
}

type resultList struct {
	XMLName xml.Name `xml:"resultlist"`
	Results []struct {
		Repository string `xml:"repository,attr"`
		Arch       string `xml:"arch,attr"`
		Dirty      bool   `xml:"dirty,attr"`
		Statuses   []struct {
			Package string `xml:"package,attr"`
			Code    string `xml:"code,attr"`
		} `xml:"status"`
	} `xml:"result"`
}

type buildDepInfo struct {
	XMLName  xml.Name `xml:"builddepinfo"`
	Packages []struct {
		Name    string   `xml:"name,attr"`
		PkgDeps []string `xml:"pkgdep"`
	} `xml:"package"`
}

func (m *projectMeta) toModel() *model.Project {
	p := &model.Project{Name: m.Name, Title: m.Title, Description: m.Description}
	for _, l := range m.Links {
		p.Links = append(p.Links, l.Project)
	}
	for _, r := range m.Repositories {
		repo := model.Repository{Name: r.Name, Archs: r.Archs}
		for _, path := range r.Paths {
			repo.Paths = append(repo.Paths, model.RepositoryPath{Project: path.Project, Repository: path.Repository})
		}
		p.Repositories = append(p.Repositories, repo)
	}
	return p
}

func newProjectMeta(name, title, description string, repos []model.Repository) *projectMeta {
	m := &projectMeta{Name: name, Title: title, Description: description}
	for _, r := range repos {
		rm := repositoryMeta{Name: r.Name, Archs: r.Archs}
		for _, p := range r.Paths {
			rm.Paths = append(rm.Paths, pathMeta{Project: p.Project, Repository: p.Repository})
		}
		m.Repositories = append(m.Repositories, rm)
	}
	return m
}

// states returns the per repository/arch states reported for pkg. Results
// of dirty repositories are outdated and count as scheduled.
func (r *resultList) states(pkg string) []model.BuildState {
	var out []model.BuildState
	for _, res := range r.Results {
		for _, st := range res.Statuses {
			if st.Package != pkg {
				continue
			}
			if res.Dirty {
				out = append(out, model.StateScheduled)
				continue
			}
			out = append(out, StateFromCode(st.Code))
		}
	}
	return out
}
