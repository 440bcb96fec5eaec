package flowstate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS session_values (
	session TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (session, key)
)`

// SQLiteStore keeps one row per persisted key in a local database file.
type SQLiteStore struct {
	db      *sql.DB
	session string
}

// OpenSQLiteStore opens (creating when needed) the database at path with WAL.
func OpenSQLiteStore(path, session string) (*SQLiteStore, error) {
	if session == "" {
		session = "default"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, session: session}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_values WHERE session = ?`, s.session)
	if err != nil {
		return State{}, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(allKeys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return State{}, fmt.Errorf("scan session value: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}
	return decodeState(values)
}

// Save replaces the session's rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, state State) error {
	values, err := encodeState(state)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_values WHERE session = ?`, s.session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	for _, k := range allKeys {
		v, ok := values[k]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_values (session, key, value) VALUES (?, ?, ?)`, s.session, k, v); err != nil {
			return fmt.Errorf("failed to save %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE session = ?`, s.session); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
