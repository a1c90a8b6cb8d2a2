package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var title = cases.Title(language.English)

// Render writes report to w in format. A dry run in text format prints one
// package name per line and nothing else.
func Render(w io.Writer, report *model.Report, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return renderText(w, report)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return errors.ValidationError("unknown output format").
			WithContext("field", "format").
			WithContext("value", format).
			Build()
	}
}

func renderText(w io.Writer, r *model.Report) error {
	var b strings.Builder
	if r.DryRun {
		for _, res := range r.Results {
			b.WriteString(res.Package.Name)
			b.WriteByte('\n')
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Rebuild check %s of %s", r.JobID, r.Project)
	if r.Environment != "" {
		fmt.Fprintf(&b, " in %s", r.Environment)
	}
	fmt.Fprintf(&b, " (mode %s)\n", r.Mode)

	for _, state := range model.AllStates {
		var group []model.PackageResult
		for _, res := range r.Results {
			if res.State == state {
				group = append(group, res)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", heading(state), len(group))
		for _, res := range group {
			b.WriteString("  " + res.Package.String())
			if res.Reason != "" {
				b.WriteString(": " + res.Reason)
			}
			b.WriteByte('\n')
		}
	}

	if len(r.Unresolved) > 0 {
		fmt.Fprintf(&b, "\nUnresolved (%d)\n  %s\n", len(r.Unresolved), strings.Join(r.Unresolved, ", "))
	}

	verdict := "PASSED"
	if !r.OverallSuccess {
		verdict = "FAILED"
	}
	fmt.Fprintf(&b, "\nResult: %s (%d packages, %d failed, %d timed out, %d cycles, %s)\n",
		verdict, len(r.Results), len(r.Failures), len(r.TimedOut), r.Cycles, r.Duration.Round(time.Second))

	_, err := io.WriteString(w, b.String())
	return err
}

func heading(s model.BuildState) string {
	if s == model.StateTimedOut {
		return title.String("timed out")
	}
	return title.String(string(s))
}
