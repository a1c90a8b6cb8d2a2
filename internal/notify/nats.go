// Package notify publishes finished rebuild reports to NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "rebuildcheck.report"

// HeaderJobID carries the job ID of a published report.
const HeaderJobID = "Rebuildcheck-Job-Id"

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// ReportEvent is the message body published for every finished run.
type ReportEvent struct {
	*model.Report
	Verdict   string    `json:"verdict"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSPublisher publishes reports on one subject.
type NATSPublisher struct {
	conn    conn
	subject string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("rebuildcheck"),
		nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS publisher connected", logfields.URL(url), slog.String("subject", subjectOrDefault(subject)))
	return newPublisher(nc, subject), nil
}

func newPublisher(c conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subjectOrDefault(subject)}
}

// Publish sends report and waits until the server has received it.
func (p *NATSPublisher) Publish(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(ReportEvent{
		Report:    report,
		Verdict:   Verdict(report),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return errors.InternalError("failed to marshal report event").WithCause(err).Build()
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(HeaderJobID, report.JobID)
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return errors.NetworkError("failed to publish report").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.NetworkError("failed to flush report").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	slog.Debug("Published report", logfields.JobID(report.JobID), slog.String("subject", p.subject))
	return nil
}

// Close drops the connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// Verdict summarizes a report in one word.
func Verdict(r *model.Report) string {
	switch {
	case r.DryRun:
		return "dry-run"
	case r.OverallSuccess:
		return "passed"
	case len(r.Failures) == 0 && len(r.TimedOut) > 0:
		return "timed-out"
	default:
		return "failed"
	}
}

func subjectOrDefault(s string) string {
	if s == "" {
		return DefaultSubject
	}
	return s
}
