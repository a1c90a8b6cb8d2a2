package commands

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rebuildcheck/internal/catalog"
	"git.home.luguber.info/inful/rebuildcheck/internal/config"
	"git.home.luguber.info/inful/rebuildcheck/internal/environment"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/history"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packages.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, kctx
}

func TestReadPackageFile(t *testing.T) {
	path := writeFile(t, "# core\n  glibc \n\nzlib\n#libpng\n\tbash\t\n")
	names, err := readPackageFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"glibc", "zlib", "bash"}, names)
}

func TestReadPackageFileMissing(t *testing.T) {
	_, err := readPackageFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestMergeNames(t *testing.T) {
	got := mergeNames([]string{"a", " b", ""}, []string{"b", "c", "a"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, mergeNames(nil, []string{" "}))
}

func TestRequestModes(t *testing.T) {
	cfg := config.Default()
	file := writeFile(t, "zlib\nglibc\n")

	tests := []struct {
		name  string
		flags CheckFlags
		mode  model.Mode
		names []string
		repo  string
	}{
		{name: "full", mode: model.ModeFull},
		{name: "triggered", flags: CheckFlags{TriggeredBy: []string{"gcc", "glibc"}}, mode: model.ModeTriggered, names: []string{"gcc", "glibc"}},
		{name: "triggered wins", flags: CheckFlags{TriggeredBy: []string{"gcc"}, Packages: []string{"bash"}}, mode: model.ModeTriggered, names: []string{"gcc"}},
		{name: "explicit merged", flags: CheckFlags{Packages: []string{"glibc", "bash"}, PackagesFile: file}, mode: model.ModeExplicit, names: []string{"glibc", "bash", "zlib"}},
		{name: "dependents", flags: CheckFlags{Packages: []string{"zlib"}, Dependencies: "standard", Direction: DirectionDependents}, mode: model.ModeExplicitDependents, names: []string{"zlib"}, repo: "standard"},
		{name: "required", flags: CheckFlags{Packages: []string{"zlib"}, Dependencies: "standard", Direction: DirectionRequired}, mode: model.ModeExplicitRequired, names: []string{"zlib"}, repo: "standard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.flags.request(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, req.Mode)
			assert.Equal(t, tt.names, req.Names)
			assert.Equal(t, tt.repo, req.Repository)
		})
	}
}

func TestRequestDependenciesWithoutPackages(t *testing.T) {
	_, err := (&CheckFlags{Dependencies: "standard"}).request(config.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRequestValidatesMergedMonitorOptions(t *testing.T) {
	tests := []struct {
		name  string
		flags CheckFlags
		field string
	}{
		{name: "poll interval too short", flags: CheckFlags{PollInterval: time.Millisecond}, field: "monitor.poll_interval"},
		{name: "timeout below poll interval", flags: CheckFlags{PollInterval: time.Minute, Timeout: 2 * time.Second}, field: "monitor.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.request(config.Default())
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestRequestFlagOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.Cleanup = true

	req, err := (&CheckFlags{}).request(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultProject, req.Project)
	assert.Equal(t, config.DefaultEnvironmentSuffix, req.Suffix)
	assert.Equal(t, config.DefaultEnvironmentTitle, req.Title)
	assert.Equal(t, config.DefaultPollInterval, req.Monitor.PollInterval)
	assert.Equal(t, config.DefaultConcurrency, req.Monitor.Concurrency)
	assert.True(t, req.Cleanup)
	assert.NotNil(t, req.Monitor.Observer)

	req, err = (&CheckFlags{
		Project:      "home:me",
		Suffix:       "Verify",
		PollInterval: 5 * time.Second,
		Timeout:      time.Hour,
		Concurrency:  2,
		DryRun:       true,
	}).request(cfg)
	require.NoError(t, err)
	assert.Equal(t, "home:me", req.Project)
	assert.Equal(t, "Verify", req.Suffix)
	assert.Equal(t, 5*time.Second, req.Monitor.PollInterval)
	assert.Equal(t, time.Hour, req.Monitor.Timeout)
	assert.Equal(t, 2, req.Monitor.Concurrency)
	assert.True(t, req.DryRun)
}

func TestParseDefaultsToCheck(t *testing.T) {
	cli, kctx := parse(t, "-p", "home:me", "--packages", "a,b", "--dependencies", "standard", "--direction", "required", "-d")
	assert.Equal(t, "check", kctx.Command())
	assert.Equal(t, "home:me", cli.Check.Project)
	assert.Equal(t, []string{"a", "b"}, cli.Check.Packages)
	assert.Equal(t, DirectionRequired, cli.Check.Direction)
	assert.True(t, cli.Debug)
}

func TestParseRejectsUnknownDirection(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	_, err = parser.Parse([]string{"check", "--direction", "sideways"})
	assert.Error(t, err)
}

func TestParseWatch(t *testing.T) {
	cli, kctx := parse(t, "watch", "--every", "30m", "--triggered-by", "gcc")
	assert.Equal(t, "watch", kctx.Command())
	assert.Equal(t, 30*time.Minute, cli.Watch.Every)
	assert.Equal(t, []string{"gcc"}, cli.Watch.TriggeredBy)
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, ExitCode(&buf, nil, false))
	assert.Equal(t, 1, ExitCode(&buf, ErrChecksFailed, false))
	assert.Empty(t, buf.String())

	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"project not found", catalog.ErrProjectNotFound.WithContext("project", "home:me"), "project not found"},
		{"environment denied", environment.ErrEnvironmentDenied.WithContext("project", "home:me:Rebuild"), "environment"},
		{"link cycle", catalog.ErrLinkCycle.WithContext("path", "A -> B -> A"), "project link cycle"},
		{"bad flag", errors.ValidationError("bad flag").Build(), "bad flag"},
		{"unclassified", stderrors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, 1, ExitCode(&out, tt.err, false))
			assert.Contains(t, out.String(), tt.msg)
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := history.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), "job-1", history.TypeJobStarted, map[string]string{"project": "openSUSE:Factory"}))
	require.NoError(t, store.Close())

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	cmd := &HistoryCmd{JobID: "job-1", Path: dbPath, Format: "text"}
	require.NoError(t, cmd.Run(&Global{}, &CLI{}))
	assert.Contains(t, buf.String(), history.TypeJobStarted)
	assert.Contains(t, buf.String(), "openSUSE:Factory")

	err = (&HistoryCmd{JobID: "job-2", Path: dbPath}).Run(&Global{}, &CLI{})
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebuildcheck.yaml")
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	require.NoError(t, (&InitCmd{}).Run(&Global{}, &CLI{Config: path}))
	assert.FileExists(t, path)
	assert.Error(t, (&InitCmd{}).Run(&Global{}, &CLI{Config: path}))
	assert.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, &CLI{Config: path}))
}
