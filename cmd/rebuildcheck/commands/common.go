package commands

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/rebuildcheck/internal/config"
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
)

// ErrChecksFailed is returned when the report contains failed or timed out
// packages. The report itself has already been printed.
var ErrChecksFailed = stderrors.New("rebuild check failed")

// stdout receives reports and command output.
var stdout io.Writer = os.Stdout

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"rebuildcheck.yaml"`
	Debug   bool             `short:"d" help:"Enable debug logging"`
	APIURL  string           `name:"apiurl" short:"A" help:"Build Service API URL (overrides config)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check   CheckCmd   `cmd:"" default:"withargs" help:"Rebuild packages in a sub-project and report the outcome"`
	Watch   WatchCmd   `cmd:"" help:"Repeat the rebuild check on a schedule"`
	History HistoryCmd `cmd:"" help:"Show the recorded events of a run"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, c.Debug, config.LogLevelInfo, config.LogFormatText))
	return nil
}

// LoadConfig reads the configuration file and applies global flag overrides.
// The default path may be absent; an explicitly named file must exist.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config, c.Config != config.DefaultPath)
	if err != nil {
		return nil, errors.ConfigError("failed to load configuration").
			WithCause(err).
			WithContext("path", c.Config).
			Build()
	}
	if c.APIURL != "" {
		cfg.API.URL = c.APIURL
	}
	slog.SetDefault(newLogger(os.Stderr, c.Debug, cfg.Logging.Level, cfg.Logging.Format))
	return cfg, nil
}

func newLogger(w io.Writer, debug bool, level config.LogLevel, format config.LogFormat) *slog.Logger {
	lvl := slog.LevelInfo
	switch {
	case debug, level == config.LogLevelDebug:
		lvl = slog.LevelDebug
	case level == config.LogLevelWarn:
		lvl = slog.LevelWarn
	case level == config.LogLevelError:
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ExitCode maps a command error to the process exit status: 0 on success,
// 1 for failed checks and for every fatal error. Errors are printed to w
// through the CLI adapter; failed checks were already reported.
func ExitCode(w io.Writer, err error, verbose bool) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, ErrChecksFailed):
		return 1
	default:
		errors.NewCLIErrorAdapter(verbose, slog.Default()).Report(w, err)
		return 1
	}
}
