package testutil

import (
	"os"
	"testing"
)

func TestNewTestDB(t *testing.T) {
	db := NewTestDB(t)

	if err := db.Engine.DB().Ping(); err != nil {
		t.Fatalf("Database ping failed: %v", err)
	}

	// Schema should already be migrated: both tables exist.
	db.AssertRowCount("memories", 0)
	db.AssertRowCount("schema_version", 1)
}

func TestNewTestDBPragmas(t *testing.T) {
	db := NewTestDB(t)

	if mode := db.Pragma("journal_mode"); mode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", mode)
	}
	if fk := db.Pragma("foreign_keys"); fk != "1" {
		t.Errorf("Expected foreign_keys=1, got %s", fk)
	}
}

func TestMustSaveAndCount(t *testing.T) {
	db := NewTestDB(t)

	db.MustSave(NewMemory("tech", "Title", "Content"))
	db.AssertRowCount("memories", 1)

	db.MustExec("DELETE FROM memories")
	db.AssertRowCount("memories", 0)
}

func TestTempFile(t *testing.T) {
	content := []byte("test content")
	path := TempFile(t, "test.txt", content)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read temp file: %v", err)
	}

	if string(data) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(data))
	}
}

func TestAssertNoError(t *testing.T) {
	// Should not fail with nil error
	AssertNoError(t, nil)
}
