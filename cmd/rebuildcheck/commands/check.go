package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/rebuildcheck/internal/buildservice"
	"git.home.luguber.info/inful/rebuildcheck/internal/config"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/history"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/metrics"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/monitor"
	"git.home.luguber.info/inful/rebuildcheck/internal/notify"
	"git.home.luguber.info/inful/rebuildcheck/internal/orchestrator"
	"git.home.luguber.info/inful/rebuildcheck/internal/retry"
)

// Directions for --dependencies.
const (
	DirectionDependents = "dependents"
	DirectionRequired   = "required"
)

// CheckFlags are shared by the check and watch commands. Zero values fall
// back to the configuration file.
type CheckFlags struct {
	Project      string        `short:"p" help:"Parent project to verify (default openSUSE:Factory)"`
	Arch         string        `help:"Architecture used for dependency metadata (default x86_64)"`
	TriggeredBy  []string      `name:"triggered-by" sep:"," help:"Check only these packages of the project; falls back to the full project when none match"`
	Packages     []string      `sep:"," help:"Rebuild exactly these packages"`
	PackagesFile string        `name:"packages-file" help:"File with one package name per line"`
	Dependencies string        `placeholder:"REPOSITORY" help:"Expand the explicit packages through the dependency graph of this repository"`
	Direction    string        `enum:"dependents,required" default:"dependents" help:"Expansion direction for --dependencies (dependents|required)"`
	DryRun       bool          `name:"dry-run" help:"Print the selected packages and exit"`
	Suffix       string        `help:"Sub-project suffix (default Rebuild)"`
	PollInterval time.Duration `name:"poll-interval" help:"Interval between build status polls"`
	Timeout      time.Duration `help:"Give up waiting after this long"`
	Concurrency  int           `help:"Parallel Build Service requests"`
	Format       string        `enum:"text,json" default:"text" help:"Report format (text|json)"`
	Cleanup      bool          `help:"Delete the sub-project after reporting"`
	History      string        `placeholder:"PATH" help:"SQLite database receiving run events"`
	NATSURL      string        `name:"nats-url" help:"Publish the report to this NATS server"`
	MetricsAddr  string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address during the run"`
}

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	CheckFlags `embed:""`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req, err := c.request(cfg)
	if err != nil {
		return err
	}
	r, err := c.newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.close()
	return r.check(ctx, req)
}

// request derives the run request from flags and configuration. The
// package file is re-read on every call.
func (f *CheckFlags) request(cfg *config.Config) (orchestrator.Request, error) {
	req := orchestrator.Request{
		Project:     firstNonEmpty(f.Project, cfg.Project),
		Mode:        model.ModeFull,
		DryRun:      f.DryRun,
		Suffix:      firstNonEmpty(f.Suffix, cfg.Environment.Suffix),
		Title:       cfg.Environment.Title,
		Description: cfg.Environment.Description,
		Cleanup:     f.Cleanup || cfg.Environment.Cleanup,
		Monitor: monitor.Options{
			PollInterval: firstPositive(f.PollInterval, cfg.Monitor.PollInterval),
			Timeout:      firstPositive(f.Timeout, cfg.Monitor.Timeout),
			Concurrency:  f.concurrency(cfg),
			Observer:     logProgress,
		},
	}
	if err := config.ValidateMonitor(req.Monitor.PollInterval, req.Monitor.Timeout); err != nil {
		return req, err
	}

	var fromFile []string
	if f.PackagesFile != "" {
		names, err := readPackageFile(f.PackagesFile)
		if err != nil {
			return req, err
		}
		fromFile = names
	}
	explicit := mergeNames(f.Packages, fromFile)
	triggered := mergeNames(f.TriggeredBy)

	switch {
	case len(triggered) > 0:
		if len(explicit) > 0 {
			slog.Warn("--triggered-by takes precedence, ignoring explicit packages", logfields.Count(len(explicit)))
		}
		req.Mode = model.ModeTriggered
		req.Names = triggered
	case len(explicit) > 0:
		req.Mode = model.ModeExplicit
		req.Names = explicit
		if f.Dependencies != "" {
			req.Repository = f.Dependencies
			req.Mode = model.ModeExplicitDependents
			if f.Direction == DirectionRequired {
				req.Mode = model.ModeExplicitRequired
			}
		}
	case f.Dependencies != "":
		return req, errors.ValidationError("--dependencies needs --packages or --packages-file").
			WithContext("repository", f.Dependencies).
			Build()
	}
	return req, nil
}

func (f *CheckFlags) concurrency(cfg *config.Config) int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	return cfg.Monitor.Concurrency
}

// runner owns the long-lived collaborators of one or more runs.
type runner struct {
	orch    *orchestrator.Orchestrator
	format  string
	closers []func()
}

func (f *CheckFlags) newRunner(ctx context.Context, cfg *config.Config) (*runner, error) {
	r := &runner{format: f.Format}

	var recorder metrics.Recorder
	if addr := firstNonEmpty(f.MetricsAddr, cfg.Metrics.Listen); addr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		go func() {
			if err := metrics.Serve(ctx, addr, cfg.Metrics.Path, reg); err != nil {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	svc, err := buildservice.NewOBSClient(buildservice.Options{
		APIURL:   cfg.API.URL,
		Username: cfg.API.Username,
		Password: cfg.API.Password,
		Token:    cfg.API.Token,
		Timeout:  cfg.API.Timeout,
		Retry:    retry.FromConfig(cfg.Retry),
		Recorder: recorder,
	})
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithArch(firstNonEmpty(f.Arch, cfg.Arch)),
		orchestrator.WithMaxDepth(cfg.Catalog.MaxDepth),
		orchestrator.WithConcurrency(f.concurrency(cfg)),
		orchestrator.WithRecorder(recorder),
	}

	if path := firstNonEmpty(f.History, cfg.History.Path); path != "" {
		store, err := history.NewSQLiteStore(path)
		if err != nil {
			slog.Warn("Run history disabled", logfields.Path(path), logfields.Error(err))
		} else {
			opts = append(opts, orchestrator.WithJournal(store))
			r.closers = append(r.closers, func() { _ = store.Close() })
		}
	}

	if url := firstNonEmpty(f.NATSURL, cfg.Notify.NATSURL); url != "" {
		pub, err := notify.NewNATSPublisher(url, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Report publishing disabled", logfields.URL(url), logfields.Error(err))
		} else {
			opts = append(opts, orchestrator.WithPublisher(pub))
			r.closers = append(r.closers, pub.Close)
		}
	}

	r.orch = orchestrator.New(svc, opts...)
	return r, nil
}

// check runs one request, prints the report and converts failed packages
// into ErrChecksFailed.
func (r *runner) check(ctx context.Context, req orchestrator.Request) error {
	report, err := r.run(ctx, req)
	if err != nil {
		return err
	}
	if report.ExitCode() != 0 {
		return ErrChecksFailed
	}
	return nil
}

func (r *runner) run(ctx context.Context, req orchestrator.Request) (*model.Report, error) {
	report, err := r.orch.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := orchestrator.Render(stdout, report, r.format); err != nil {
		return report, errors.InternalError("failed to render report").WithCause(err).Build()
	}
	return report, nil
}

func (r *runner) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// logProgress prints one line per poll cycle.
func logProgress(p monitor.Progress) {
	passed, failed := 0, 0
	for state, n := range p.Counts {
		switch {
		case state.IsPassing():
			passed += n
		case state.IsTerminal():
			failed += n
		}
	}
	slog.Info("Build progress",
		logfields.Cycle(p.Cycle),
		slog.Int("passed", passed),
		slog.Int("failed", failed),
		slog.Int("waiting", p.Pending))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
