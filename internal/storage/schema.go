package storage

// SchemaVersion is the current schema version. Migrations are dispatched
// by comparing a freshly opened database's recorded version against this
// constant; see RunMigrations.
const SchemaVersion = 1

// CoreSchema creates the memories table, its indexes, and the migration
// bookkeeping table. It is idempotent (IF NOT EXISTS throughout) so it can
// run unconditionally at open time.
const CoreSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS memories (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	title           TEXT NOT NULL,
	tags            TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL,
	reference_count INTEGER NOT NULL DEFAULT 0,
	confidence      REAL NOT NULL DEFAULT 1.0 CHECK(confidence BETWEEN 0 AND 1),
	created_at      INTEGER NOT NULL DEFAULT (unixepoch()),
	last_accessed   INTEGER,
	deleted         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
CREATE INDEX IF NOT EXISTS idx_memories_reference_count ON memories(reference_count DESC);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at DESC);
`

// FTS5Schema creates the FTS5 index over non-deleted memories and the
// triggers that keep it in lockstep with the memories table. The porter
// unicode61 tokenizer does not segment CJK text on word boundaries, so
// non-space-delimited scripts match only on exact folded substrings;
// switching tokenizers is a semantic change, not a drop-in swap. The
// index duplicates memory_id/title/tags/content, keyed by the memories
// rowid; every read goes through search_fts, which joins back to
// memories on that rowid.
const FTS5Schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	memory_id UNINDEXED,
	title,
	tags,
	content,
	tokenize = 'porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS memories_fts_ai AFTER INSERT ON memories
WHEN NEW.deleted = 0
BEGIN
	INSERT INTO memories_fts(rowid, memory_id, title, tags, content)
	VALUES (new.rowid, new.id, new.title, new.tags, new.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_fts_ad AFTER DELETE ON memories
BEGIN
	DELETE FROM memories_fts WHERE rowid = old.rowid;
END;

CREATE TRIGGER IF NOT EXISTS memories_fts_au AFTER UPDATE ON memories
BEGIN
	DELETE FROM memories_fts WHERE rowid = old.rowid;
	INSERT INTO memories_fts(rowid, memory_id, title, tags, content)
	SELECT new.rowid, new.id, new.title, new.tags, new.content
	WHERE new.deleted = 0;
END;
`

// RunMigrations brings a freshly opened database up to SchemaVersion.
// Schema version 1 is bootstrapped by CoreSchema and FTS5Schema (both
// idempotent) when no version is recorded yet; this dispatcher exists so a future
// version 2 has somewhere to hang an ALTER TABLE step without disturbing
// callers, following the same version-gated-steps shape as the rest of
// the migration discipline in this package.
func RunMigrations(e *Engine) error {
	version, err := e.SchemaVersionApplied()
	if err != nil {
		return err
	}

	if version < 1 {
		if err := e.bootstrapV1(); err != nil {
			return err
		}
	}

	// Future: if version < 2 { if err := e.migrateV1ToV2(); err != nil { return err } }

	return nil
}
