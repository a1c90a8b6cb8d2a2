package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/rebuildcheck/internal/daemon"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	CheckFlags `embed:""`

	Every time.Duration `default:"6h" help:"Interval between rebuild checks"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	// Validate flags before the first scheduled run.
	if _, err := w.request(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := w.newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.close()

	var opts []daemon.Option
	if w.PackagesFile != "" {
		opts = append(opts, daemon.WithWatch(w.PackagesFile))
	}
	d, err := daemon.New(w.Every, func(ctx context.Context) (*model.Report, error) {
		req, err := w.request(cfg)
		if err != nil {
			return nil, err
		}
		return r.run(ctx, req)
	}, opts...)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
