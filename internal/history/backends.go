package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // SQLite driver for golang-migrate
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/fileutils"
	_ "modernc.org/sqlite" // Pure Go SQLite driver for database/sql
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open returns the backend named by backend, storing its data in dir.
func Open(backend, dir string) (KV, error) {
	switch backend {
	case constants.HistoryFileBackend:
		return NewFileKV(dir)
	case constants.HistorySQLiteBackend:
		return NewSQLiteKV(filepath.Join(dir, constants.HistoryDBName))
	default:
		return nil, fmt.Errorf("unknown history backend %q, expected %q or %q", backend, constants.HistoryFileBackend, constants.HistorySQLiteBackend)
	}
}

// FileKV stores each key as a JSON file in a directory.
type FileKV struct {
	dir string
}

// NewFileKV returns a FileKV storing its files in dir, creating it if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create history directory: %v", err)
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key+constants.ReportExtension)
}

// Get returns the content of the file for key.
func (f *FileKV) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %v", key, err)
	}
	return data, nil
}

// Set atomically replaces the file for key.
func (f *FileKV) Set(key string, value []byte) error {
	return fileutils.AtomicWrite(f.path(key), value, 0600)
}

// Delete removes the file for key. Deleting a missing key is not an error.
func (f *FileKV) Delete(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete %s: %v", key, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileKV) Close() error {
	return nil
}

// SQLiteKV stores keys in the kv table of a SQLite database.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV opens the database at path, creating it and applying pending migrations as needed.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("could not create history directory: %v", err)
	}

	if err := migrateUp(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open history database: %v", err)
	}
	// A single connection serializes writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	return &SQLiteKV{db: db}, nil
}

func migrateUp(path string) (err error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not load migrations: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+filepath.ToSlash(path))
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %v", err)
	}
	defer func() {
		if sErr, dbErr := m.Close(); sErr != nil || dbErr != nil {
			if sErr != nil {
				slog.Error("failed to close migration source", "error", sErr)
			}
			if dbErr != nil {
				slog.Error("failed to close migration database", "error", dbErr)
			}
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("History database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %v", err)
	}
	slog.Info("History database migrations applied", "path", path)
	return nil
}

// Get returns the value stored under key.
func (s *SQLiteKV) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not query %s: %v", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value stored under key.
func (s *SQLiteKV) Set(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("could not store %s: %v", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteKV) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("could not delete %s: %v", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
