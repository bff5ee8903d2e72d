package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// SQLiteSlotStore persists slots in a SQLite file so they survive a restart
// of the console, the way browser storage survives a reload. A file lock
// keeps a second console from writing the same directory.
type SQLiteSlotStore struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// OpenSQLiteSlotStore opens or creates slots.db under dir
func OpenSQLiteSlotStore(dir string) (*SQLiteSlotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "slots.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire storage lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("storage dir %s is in use by another console", dir)
	}

	dbPath := filepath.Join(dir, "slots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS image_slots (
		slot TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("create image_slots table: %w", err)
	}

	return &SQLiteSlotStore{db: db, lock: lock, path: dbPath}, nil
}

// Path returns the database file path
func (s *SQLiteSlotStore) Path() string {
	return s.path
}

func (s *SQLiteSlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM image_slots WHERE slot = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select slot %s: %w", key, err)
	}
	return payload, true, nil
}

func (s *SQLiteSlotStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO image_slots (slot, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM image_slots WHERE slot = ?`, key); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSlotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}
