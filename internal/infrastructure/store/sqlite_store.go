package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// SQLiteStore is a SnapshotStore backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.SnapshotStore = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at dsn with the modernc driver
// and prepares the schema. Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, internalError("open sqlite database", err)
	}
	// One connection: SQLite serialises writers, and each ":memory:"
	// connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore initializes the required schema in db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, internalError("initialise sqlite schema", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			flow_name TEXT NOT NULL,
			flow_path TEXT NOT NULL,
			snapshot BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	)
	return err
}

// Save inserts or replaces a session.
func (s *SQLiteStore) Save(ctx context.Context, record ports.SessionRecord) error {
	if record.ID == "" {
		return internalError("session id is required", nil)
	}

	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return internalError("encode snapshot", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, flow_name, flow_path, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			flow_name = excluded.flow_name,
			flow_path = excluded.flow_path,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		record.ID,
		record.FlowName,
		record.FlowPath,
		snapshot,
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return internalError("save session", err)
	}
	return nil
}

// Load returns the session stored under id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*ports.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, flow_name, flow_path, snapshot, created_at, updated_at
		FROM sessions
		WHERE id = ?`,
		id,
	)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every session, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]ports.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow_name, flow_path, snapshot, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, internalError("list sessions", err)
	}
	defer rows.Close()

	var out []ports.SessionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError("list sessions", err)
	}
	// RFC3339Nano trims trailing zeros, so text order is only approximate.
	sortRecords(out)
	return out, nil
}

// Delete removes the session stored under id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return internalError("delete session", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return internalError("delete session", err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*ports.SessionRecord, error) {
	var (
		record    ports.SessionRecord
		snapshot  []byte
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&record.ID, &record.FlowName, &record.FlowPath, &snapshot, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, internalError("scan session", err)
	}

	if err := json.Unmarshal(snapshot, &record.Snapshot); err != nil {
		return nil, internalError("decode snapshot", err)
	}

	var err error
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, internalError("decode created_at", err)
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, internalError("decode updated_at", err)
	}
	return &record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
