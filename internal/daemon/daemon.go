// Package daemon repeats rebuild checks on a schedule and whenever the
// package list file changes.
package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// DefaultDebounce collapses bursts of file events into one run.
const DefaultDebounce = 2 * time.Second

// RunFunc performs one rebuild check.
type RunFunc func(ctx context.Context) (*model.Report, error)

// Daemon schedules RunFunc. Runs never overlap; a trigger arriving while a
// run is in progress is dropped.
type Daemon struct {
	every     time.Duration
	run       RunFunc
	watchPath string
	debounce  time.Duration

	runMu sync.Mutex

	mu      sync.Mutex
	runs    int
	last    *model.Report
	lastErr error
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithWatch triggers an extra run when path is written, created or renamed.
func WithWatch(path string) Option { return func(d *Daemon) { d.watchPath = path } }

// WithDebounce overrides DefaultDebounce.
func WithDebounce(dur time.Duration) Option {
	return func(d *Daemon) {
		if dur > 0 {
			d.debounce = dur
		}
	}
}

// New creates a Daemon running fn every interval.
func New(every time.Duration, fn RunFunc, opts ...Option) (*Daemon, error) {
	if every <= 0 {
		return nil, errors.ValidationError("watch interval must be positive").
			WithContext("field", "every").
			Build()
	}
	d := &Daemon{every: every, run: fn, debounce: DefaultDebounce}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Run starts the schedule with an immediate first run and blocks until ctx
// is done.
func (d *Daemon) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return errors.DaemonError("failed to create scheduler").WithCause(err).Build()
	}

	job, err := s.NewJob(
		gocron.DurationJob(d.every),
		gocron.NewTask(func() { d.runOnce(ctx, "schedule") }),
		gocron.WithName("rebuild-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return errors.DaemonError("failed to schedule rebuild check").WithCause(err).Build()
	}

	if d.watchPath != "" {
		w, err := newFileWatcher(d.watchPath, d.debounce, func() {
			go d.runOnce(ctx, "package file changed")
		})
		if err != nil {
			_ = s.Shutdown()
			return err
		}
		defer w.close()
		go w.loop(ctx)
	}

	slog.Info("Watching project", slog.Duration("every", d.every), logfields.Path(d.watchPath), slog.String("job_id", job.ID().String()))
	s.Start()
	<-ctx.Done()

	slog.Info("Stopping scheduler")
	if err := s.Shutdown(); err != nil {
		return errors.DaemonError("scheduler shutdown failed").WithCause(err).Build()
	}
	return nil
}

// Runs returns how many checks completed.
func (d *Daemon) Runs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}

// Last returns the outcome of the most recent check.
func (d *Daemon) Last() (*model.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.lastErr
}

func (d *Daemon) runOnce(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	if !d.runMu.TryLock() {
		slog.Info("Rebuild check already running, skipping trigger", slog.String("reason", reason))
		return
	}
	defer d.runMu.Unlock()

	slog.Info("Running rebuild check", slog.String("reason", reason))
	report, err := d.run(ctx)
	if err != nil {
		slog.Error("Rebuild check failed", logfields.Error(err))
	}

	d.mu.Lock()
	d.runs++
	d.last, d.lastErr = report, err
	d.mu.Unlock()
}

type fileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	fire     func()
}

func newFileWatcher(path string, debounce time.Duration, fire func()) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.DaemonError("failed to resolve watch path").WithCause(err).WithContext("path", path).Build()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}
	// The directory is watched so editors that replace the file are seen.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, errors.DaemonError("failed to watch directory").WithCause(err).WithContext("path", filepath.Dir(abs)).Build()
	}
	return &fileWatcher{path: abs, watcher: w, debounce: debounce, fire: fire}, nil
}

func (fw *fileWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	name := filepath.Base(fw.path)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("Package file changed", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fw.debounce, fw.fire)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (fw *fileWatcher) close() {
	if err := fw.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", logfields.Error(err))
	}
}
