// Package storage is the storage engine (C3): a mutex-guarded SQLite
// connection wrapper, embedded schema migrations, and the concrete
// repository implementation the use-case layer talks to through the
// Repository port (C4).
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MycelicMemory/mycelicmemory/internal/logging"
	"github.com/MycelicMemory/mycelicmemory/internal/memoryerr"
)

// Engine owns the single SQLite connection backing one memory database
// file. Every statement or transaction it runs holds mu for the span of
// that statement only, keeping critical sections short per the
// concurrency model: any number of readers and at most one writer.
type Engine struct {
	db   *sql.DB
	path string
	log  *logging.Logger
	mu   sync.RWMutex
}

// Open opens (creating if necessary) the SQLite file at path, sets the
// required pragmas, and runs migrations. A non-nil error here should be
// treated as a startup failure: the process must exit non-zero before
// serving, per the error handling design.
func Open(path string) (*Engine, error) {
	log := logging.GetLogger("storage")
	log.Info("opening storage engine", "path", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, memoryerr.FileSystemError("create database directory", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, memoryerr.DatabaseError("open sqlite3 connection", err)
	}

	// SQLite tolerates exactly one writer; a single pooled connection
	// means the mutex below is the only thing serializing access, never
	// connection-pool contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, memoryerr.DatabaseError("ping sqlite3 connection", err)
	}

	e := &Engine{db: db, path: path, log: log}

	if err := RunMigrations(e); err != nil {
		db.Close()
		return nil, memoryerr.MigrationError("run migrations", err)
	}

	log.Info("storage engine ready", "path", path)
	return e, nil
}

// Close checkpoints the WAL (best effort) and closes the underlying
// connection.
func (e *Engine) Close() error {
	if err := e.Checkpoint(); err != nil {
		e.log.Warn("wal checkpoint on close failed", "error", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Close()
}

// Path returns the database file path.
func (e *Engine) Path() string { return e.path }

// DB exposes the underlying *sql.DB for callers that need raw access
// (migrations, stats); production queries should prefer the exec/query/
// queryRow/begin helpers below so every call passes through the mutex.
func (e *Engine) DB() *sql.DB { return e.db }

func (e *Engine) exec(query string, args ...interface{}) (sql.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Exec(query, args...)
}

func (e *Engine) query(query string, args ...interface{}) (*sql.Rows, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db.Query(query, args...)
}

func (e *Engine) queryRow(query string, args ...interface{}) *sql.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db.QueryRow(query, args...)
}

// begin starts a transaction. The caller is responsible for holding it
// only as long as a single logical write (the mutex is not held across
// the transaction; SetMaxOpenConns(1) plus WAL mode serialize writers).
func (e *Engine) begin() (*sql.Tx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Begin()
}

// SchemaVersionApplied returns the highest version recorded in
// schema_version, or 0 if the table does not exist yet.
func (e *Engine) SchemaVersionApplied() (int, error) {
	exists, err := e.tableExists("schema_version")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var version int
	if err := e.queryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return version, nil
}

func (e *Engine) tableExists(name string) (bool, error) {
	var count int
	err := e.queryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (e *Engine) bootstrapV1() error {
	tx, err := e.begin()
	if err != nil {
		return fmt.Errorf("begin schema bootstrap: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(CoreSchema); err != nil {
		return fmt.Errorf("create core schema: %w", err)
	}
	if _, err := tx.Exec(FTS5Schema); err != nil {
		return fmt.Errorf("create fts5 schema: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, unixepoch())`, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// Vacuum runs a compacting pass on the database file.
func (e *Engine) Vacuum() error {
	_, err := e.exec("VACUUM")
	return err
}

// Checkpoint forces a WAL checkpoint, truncating the WAL file.
func (e *Engine) Checkpoint() error {
	_, err := e.exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}
