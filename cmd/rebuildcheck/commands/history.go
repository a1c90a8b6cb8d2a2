package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	JobID  string `arg:"" name:"job-id" help:"Job ID printed in the run log"`
	Path   string `name:"history" placeholder:"PATH" help:"SQLite history database (default from config)"`
	Format string `enum:"text,json" default:"text" help:"Output format (text|json)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	path := h.Path
	if path == "" {
		cfg, err := root.LoadConfig()
		if err != nil {
			return err
		}
		path = cfg.History.Path
	}
	if path == "" {
		return errors.ValidationError("no history database configured").
			WithContext("flag", "--history").
			Build()
	}

	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.GetByJobID(context.Background(), h.JobID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.NotFoundError("no events recorded for job").
			WithContext("job_id", h.JobID).
			Build()
	}
	return printEvents(events, h.Format)
}

func printEvents(events []history.Event, format string) error {
	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	for _, ev := range events {
		if _, err := fmt.Fprintf(stdout, "%s  %-20s %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Type, ev.Payload); err != nil {
			return err
		}
	}
	return nil
}
