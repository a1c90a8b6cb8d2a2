// Package model holds the value types shared by the selection, environment
// and monitoring stages: packages, projects, build states, the per-run job
// and the final report.
package model
