package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and creates if needed) the history database.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StorageError("open history database").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError("initialize history schema").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_job_id ON events(job_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store.
func (s *SQLiteStore) Append(ctx context.Context, jobID, eventType string, payload []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return errors.StorageError("marshal event metadata").WithCause(err).Build()
		}
	}
	if payload == nil {
		payload = []byte("null")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (job_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		jobID, eventType, time.Now().UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return errors.StorageError("insert event").
			WithCause(err).
			WithContext("job_id", jobID).
			WithContext("type", eventType).
			Build()
	}
	return nil
}

// Record marshals payload as JSON and appends it.
func (s *SQLiteStore) Record(ctx context.Context, jobID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.StorageError("marshal event payload").
			WithCause(err).
			WithContext("type", eventType).
			Build()
	}
	return s.Append(ctx, jobID, eventType, raw, nil)
}

// GetByJobID retrieves all events of one run.
func (s *SQLiteStore) GetByJobID(ctx context.Context, jobID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, job_id, event_type, timestamp, payload, metadata FROM events WHERE job_id = ? ORDER BY id",
		jobID,
	)
	if err != nil {
		return nil, errors.StorageError("query events").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, job_id, event_type, timestamp, payload, metadata FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, errors.StorageError("query events").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var payload, metadataJSON []byte

		if err := rows.Scan(&e.ID, &e.JobID, &e.Type, &ts, &payload, &metadataJSON); err != nil {
			return nil, errors.StorageError("scan event").WithCause(err).Build()
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Payload = json.RawMessage(payload)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, errors.StorageError("unmarshal event metadata").WithCause(err).Build()
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("iterate events").WithCause(err).Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
