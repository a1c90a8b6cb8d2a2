package environment

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/testservice"
)

func parent() model.Project {
	return model.Project{
		Name:         "Factory",
		Repositories: []model.Repository{{Name: "standard", Archs: []string{"x86_64"}}},
	}
}

func TestEnsureCreates(t *testing.T) {
	svc := testservice.New().AddProject(parent(), "a")
	env, err := New(svc).Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	require.NoError(t, err)

	assert.Equal(t, "Factory:Rebuild", env.Name)
	assert.False(t, env.Adopted)
	assert.Equal(t, []model.Repository{{
		Name:  "standard",
		Archs: []string{"x86_64"},
		Paths: []model.RepositoryPath{{Project: "Factory", Repository: "standard"}},
	}}, env.Repositories)
	assert.True(t, svc.HasProject("Factory:Rebuild"))
}

func TestEnsureIsIdempotent(t *testing.T) {
	svc := testservice.New().AddProject(parent(), "a")
	m := New(svc)

	_, err := m.Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	require.NoError(t, err)
	env, err := m.Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	require.NoError(t, err)
	assert.True(t, env.Adopted)
	assert.Equal(t, "T", env.Title)
}

func TestEnsureDenied(t *testing.T) {
	svc := testservice.New().AddProject(parent()).DenyCreate()
	_, err := New(svc).Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	assert.True(t, stderrors.Is(err, ErrEnvironmentDenied))
}

func TestEnsureRequiresSuffix(t *testing.T) {
	svc := testservice.New().AddProject(parent())
	_, err := New(svc).Ensure(context.Background(), "Factory", "", "T", "D")
	assert.True(t, stderrors.Is(err, ErrSuffixRequired))
	assert.Zero(t, svc.MutatingCalls())
}

func TestLinkAllIsolatesFailures(t *testing.T) {
	svc := testservice.New().AddProject(parent()).FailLink("b", fmt.Errorf("quota exceeded"))
	m := New(svc, WithConcurrency(2))
	env, err := m.Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	require.NoError(t, err)

	pkgs := []model.Package{
		{Project: "Factory", Name: "a"},
		{Project: "Base", Name: "b"},
		{Project: "Factory", Name: "c"},
	}
	res := m.LinkAll(context.Background(), env, pkgs)

	require.Len(t, res, 3)
	assert.NoError(t, res[0].Err)
	assert.EqualError(t, res[1].Err, "quota exceeded")
	assert.Equal(t, pkgs[1], res[1].Package)
	assert.NoError(t, res[2].Err)
	assert.ElementsMatch(t, []model.Package{pkgs[0], pkgs[2]}, svc.Linked("Factory:Rebuild"))
}

func TestStale(t *testing.T) {
	svc := testservice.New().
		AddProject(parent()).
		AddProject(model.Project{Name: "Factory:Rebuild"}, "old", "a")
	m := New(svc)
	env, err := m.Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	require.NoError(t, err)
	require.True(t, env.Adopted)

	stale, err := m.Stale(context.Background(), env, []model.Package{{Project: "Factory", Name: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, stale)
}

func TestRemove(t *testing.T) {
	svc := testservice.New().AddProject(parent())
	m := New(svc)
	env, err := m.Ensure(context.Background(), "Factory", "Rebuild", "T", "D")
	require.NoError(t, err)

	require.NoError(t, m.Remove(context.Background(), env))
	assert.False(t, svc.HasProject("Factory:Rebuild"))
}
