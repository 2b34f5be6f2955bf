package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unclesp1d3r/bitrecover/appstate"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	busyTimeoutMs = 10_000
	maxRetries    = 3
	memoryPath    = ":memory:"
)

const schema = `CREATE TABLE IF NOT EXISTS found (
	fingerprint TEXT PRIMARY KEY,
	plaintext   TEXT NOT NULL,
	found_at    TEXT NOT NULL
)`

// SQLiteStore persists credentials in an SQLite database. The primary key on the
// fingerprint makes the first insert win; later writers compare against it.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path with WAL journaling and a
// busy timeout so concurrent sessions can record results.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("results: mkdir: %w", err)
		}
	}

	// DSN pragmas apply to every pooled connection.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyTimeoutMs)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("results: open: %w", err)
	}

	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("results: create schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("results: ping: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, fingerprint, plaintext string) error {
	if err := checkFingerprint(fingerprint); err != nil {
		return err
	}

	foundAt := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.exec(ctx,
		`INSERT INTO found (fingerprint, plaintext, found_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO NOTHING`,
		fingerprint, plaintext, foundAt)
	if err != nil {
		return fmt.Errorf("results: record: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	existing, err := s.Lookup(ctx, fingerprint)
	if err != nil {
		return err
	}

	if existing == nil {
		return fmt.Errorf("results: record for %s was neither inserted nor found", fingerprint)
	}

	if existing.Plaintext != plaintext {
		return conflict(fingerprint, existing.Plaintext, plaintext)
	}

	return nil
}

// Lookup implements Store.
func (s *SQLiteStore) Lookup(ctx context.Context, fingerprint string) (*FoundCredential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, plaintext, found_at FROM found WHERE fingerprint = ?`, fingerprint)

	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("results: lookup: %w", err)
	}

	return cred, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]FoundCredential, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint, plaintext, found_at FROM found`)
	if err != nil {
		return nil, fmt.Errorf("results: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FoundCredential

	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("results: list: %w", err)
		}

		out = append(out, *cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: list: %w", err)
	}

	sortCredentials(out)

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*FoundCredential, error) {
	var (
		cred    FoundCredential
		foundAt string
	)

	if err := row.Scan(&cred.Fingerprint, &cred.Plaintext, &foundAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, foundAt)
	if err != nil {
		return nil, fmt.Errorf("bad found_at %q: %w", foundAt, err)
	}

	cred.FoundAt = t

	return &cred, nil
}

// exec runs a statement, retrying when SQLite reports the database as busy.
func (s *SQLiteStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var lastErr error

	for i := range maxRetries {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}

		if !isBusy(err) {
			return nil, err
		}

		lastErr = err
		appstate.Logger.Debug("Results database busy, retrying", "attempt", i+1)

		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()

			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return nil, lastErr
}

func isBusy(err error) bool {
	msg := err.Error()

	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
