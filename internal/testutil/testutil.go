// Package testutil provides testing helpers shared by the storage and
// use-case test suites.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
	"github.com/MycelicMemory/mycelicmemory/internal/storage"
)

// TestDB wraps a fully migrated storage engine backed by a temporary
// SQLite file, plus the repository over it. Cleaned up automatically when
// the test completes.
type TestDB struct {
	Engine *storage.Engine
	Repo   *storage.SQLiteRepository
	Path   string
	t      *testing.T
}

// NewTestDB opens a temporary database with the full schema applied.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	engine, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
	})

	return &TestDB{
		Engine: engine,
		Repo:   storage.NewSQLiteRepository(engine),
		Path:   dbPath,
		t:      t,
	}
}

// NewMemory builds a memory with sensible test defaults; vary it through
// the returned pointer before saving.
func NewMemory(memType, title, content string) *memorycore.Memory {
	return memorycore.New(memorycore.MemoryType(memType), title, content)
}

// MustSave saves a memory and fails the test on error.
func (db *TestDB) MustSave(m *memorycore.Memory) {
	db.t.Helper()
	if err := db.Repo.Save(m); err != nil {
		db.t.Fatalf("Save failed: %v", err)
	}
}

// MustExec executes a SQL statement and fails the test on error.
func (db *TestDB) MustExec(query string, args ...interface{}) {
	db.t.Helper()
	if _, err := db.Engine.DB().Exec(query, args...); err != nil {
		db.t.Fatalf("SQL exec failed: %v\nQuery: %s", err, query)
	}
}

// Count returns the number of rows in a table
func (db *TestDB) Count(table string) int {
	db.t.Helper()

	var count int
	err := db.Engine.DB().QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		db.t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return count
}

// AssertRowCount asserts that a table has exactly n rows
func (db *TestDB) AssertRowCount(table string, expected int) {
	db.t.Helper()

	actual := db.Count(table)
	if actual != expected {
		db.t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}

// Pragma reads a pragma value as text.
func (db *TestDB) Pragma(name string) string {
	db.t.Helper()

	var value string
	if err := db.Engine.DB().QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		db.t.Fatalf("Failed to read pragma %s: %v", name, err)
	}
	return value
}

// TempFile creates a temporary file for testing
// Automatically cleaned up after test completion
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	return path
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}
