package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID       = "job_id"
	KeyProject     = "project"
	KeyPackage     = "package"
	KeySource      = "source_project"
	KeyEnvironment = "environment"
	KeyRepo        = "repository"
	KeyArch        = "arch"
	KeyMode        = "mode"
	KeyState       = "state"
	KeyCycle       = "cycle"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyURL         = "url"
	KeyPath        = "path"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func Project(name string) slog.Attr   { return slog.String(KeyProject, name) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Source(project string) slog.Attr { return slog.String(KeySource, project) }
func Environment(n string) slog.Attr  { return slog.String(KeyEnvironment, n) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Arch(a string) slog.Attr         { return slog.String(KeyArch, a) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Cycle(n int) slog.Attr           { return slog.Int(KeyCycle, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
