// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/savingsgroup/internal/models"
	"github.com/mmynk/savingsgroup/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
//
// Every transaction is opened with BEGIN IMMEDIATE, so writers serialize on
// the database lock and status checks made inside a transaction hold until it
// commits.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction and commits if it returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", models.ErrNotFound, what, id)
}

// meetingStatus reads the status of a meeting inside tx.
func meetingStatus(ctx context.Context, q queryer, meetingID string) (models.MeetingStatus, error) {
	var status models.MeetingStatus
	err := q.QueryRowContext(ctx, "SELECT status FROM meetings WHERE id = ?", meetingID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("meeting", meetingID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meeting status: %w", err)
	}
	return status, nil
}

// requireOpen fails with ErrMeetingNotActive unless the meeting is in one of the given statuses.
func requireOpen(ctx context.Context, q queryer, meetingID string, open ...models.MeetingStatus) error {
	if len(open) == 0 {
		open = []models.MeetingStatus{models.MeetingInProgress}
	}
	status, err := meetingStatus(ctx, q, meetingID)
	if err != nil {
		return err
	}
	for _, o := range open {
		if status == o {
			return nil
		}
	}
	return fmt.Errorf("%w: meeting %s is %s", models.ErrMeetingNotActive, meetingID, status)
}
