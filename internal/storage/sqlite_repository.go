package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
	"github.com/MycelicMemory/mycelicmemory/internal/memoryerr"
)

// SQLiteRepository is the Engine-backed implementation of Repository.
type SQLiteRepository struct {
	engine *Engine
}

// NewSQLiteRepository wraps an already-open Engine in a Repository.
func NewSQLiteRepository(engine *Engine) *SQLiteRepository {
	return &SQLiteRepository{engine: engine}
}

// Save upserts a single memory; triggers keep the FTS index consistent.
func (r *SQLiteRepository) Save(m *memorycore.Memory) error {
	_, err := r.engine.exec(`
		INSERT INTO memories (id, type, title, tags, content, reference_count, confidence, created_at, last_accessed, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			tags = excluded.tags,
			content = excluded.content,
			reference_count = excluded.reference_count,
			confidence = excluded.confidence,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed,
			deleted = excluded.deleted
	`, m.ID, string(m.Type), m.Title, m.TagsJoined(), m.Content, m.ReferenceCount,
		m.Confidence.Float64(), m.CreatedAt, nullableInt64(m.LastAccessed), boolToInt(m.Deleted))
	if err != nil {
		return memoryerr.DatabaseError("save memory", err)
	}
	return nil
}

// SaveBatch writes every memory in one transaction: all or none.
func (r *SQLiteRepository) SaveBatch(memories []*memorycore.Memory) error {
	if len(memories) == 0 {
		return nil
	}

	tx, err := r.engine.begin()
	if err != nil {
		return memoryerr.DatabaseError("begin save_batch transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO memories (id, type, title, tags, content, reference_count, confidence, created_at, last_accessed, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			tags = excluded.tags,
			content = excluded.content,
			reference_count = excluded.reference_count,
			confidence = excluded.confidence,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed,
			deleted = excluded.deleted
	`)
	if err != nil {
		return memoryerr.DatabaseError("prepare save_batch statement", err)
	}
	defer stmt.Close()

	for _, m := range memories {
		if _, err := stmt.Exec(m.ID, string(m.Type), m.Title, m.TagsJoined(), m.Content, m.ReferenceCount,
			m.Confidence.Float64(), m.CreatedAt, nullableInt64(m.LastAccessed), boolToInt(m.Deleted)); err != nil {
			return memoryerr.DatabaseError(fmt.Sprintf("save memory %s in batch", m.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return memoryerr.DatabaseError("commit save_batch transaction", err)
	}
	return nil
}

const memoryColumns = "id, type, title, tags, content, reference_count, confidence, created_at, last_accessed, deleted"

func scanMemory(row rowScanner) (*memorycore.Memory, error) {
	var m memorycore.Memory
	var memType, tags string
	var confidence float64
	var lastAccessed sql.NullInt64
	var deleted int

	err := row.Scan(&m.ID, &memType, &m.Title, &tags, &m.Content, &m.ReferenceCount,
		&confidence, &m.CreatedAt, &lastAccessed, &deleted)
	if err != nil {
		return nil, err
	}

	m.Type = memorycore.MemoryType(memType)
	m.Tags = memorycore.SplitTags(tags)
	m.Confidence = memorycore.Confidence(confidence)
	m.Deleted = deleted != 0
	if lastAccessed.Valid {
		v := lastAccessed.Int64
		m.LastAccessed = &v
	}
	return &m, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemories(rows *sql.Rows) ([]*memorycore.Memory, error) {
	defer rows.Close()
	var out []*memorycore.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, memoryerr.DatabaseError("scan memory row", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, memoryerr.DatabaseError("iterate memory rows", err)
	}
	return out, nil
}

// FindByID returns the memory only if it is not deleted.
func (r *SQLiteRepository) FindByID(id string) (*memorycore.Memory, error) {
	row := r.engine.queryRow(`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND deleted = 0`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, memoryerr.DatabaseError("find memory by id", err)
	}
	return m, nil
}

// FindByType returns all non-deleted memories of that type, newest first.
func (r *SQLiteRepository) FindByType(memType memorycore.MemoryType) ([]*memorycore.Memory, error) {
	rows, err := r.engine.query(`SELECT `+memoryColumns+` FROM memories WHERE type = ? AND deleted = 0 ORDER BY created_at DESC`, string(memType))
	if err != nil {
		return nil, memoryerr.DatabaseError("find memories by type", err)
	}
	return scanMemories(rows)
}

// FindAll returns all non-deleted rows, newest first.
func (r *SQLiteRepository) FindAll() ([]*memorycore.Memory, error) {
	rows, err := r.engine.query(`SELECT ` + memoryColumns + ` FROM memories WHERE deleted = 0 ORDER BY created_at DESC`)
	if err != nil {
		return nil, memoryerr.DatabaseError("find all memories", err)
	}
	return scanMemories(rows)
}

// SearchFTS matches query against the FTS index, excludes deleted rows,
// and orders by confidence DESC, reference_count DESC — FTS5's bm25 rank
// is deliberately not used as the primary order.
func (r *SQLiteRepository) SearchFTS(query string, limit int) ([]*memorycore.Memory, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.engine.query(`
		SELECT `+prefixColumns("m", memoryColumns)+`
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ? AND m.deleted = 0
		ORDER BY m.confidence DESC, m.reference_count DESC, m.created_at DESC
		LIMIT ?
	`, escapeFTS5Query(query), limit)
	if err != nil {
		return nil, memoryerr.DatabaseError("search_fts", err)
	}
	return scanMemories(rows)
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

// escapeFTS5Query neutralizes FTS5 query-syntax characters that would
// otherwise be interpreted as column filters or operators, by quoting the
// query as a single phrase and doubling any embedded quotes.
func escapeFTS5Query(query string) string {
	escaped := strings.ReplaceAll(query, `"`, `""`)
	return `"` + escaped + `"`
}

// IncrementReferenceCount bumps reference_count by one and sets
// last_accessed to now. Missing ids are a no-op, never an error.
func (r *SQLiteRepository) IncrementReferenceCount(id string) error {
	_, err := r.engine.exec(`
		UPDATE memories SET reference_count = reference_count + 1, last_accessed = ?
		WHERE id = ?
	`, time.Now().Unix(), id)
	if err != nil {
		return memoryerr.DatabaseError("increment reference count", err)
	}
	return nil
}

// CleanupDeleted physically removes soft-deleted rows and returns the
// count removed.
func (r *SQLiteRepository) CleanupDeleted() (int, error) {
	result, err := r.engine.exec(`DELETE FROM memories WHERE deleted = 1`)
	if err != nil {
		return 0, memoryerr.DatabaseError("cleanup_deleted", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, memoryerr.DatabaseError("cleanup_deleted rows affected", err)
	}
	return int(n), nil
}

// RebuildFTSIndex clears and repopulates memories_fts from the current
// non-deleted rows. Used after catastrophic inconsistency.
func (r *SQLiteRepository) RebuildFTSIndex() error {
	tx, err := r.engine.begin()
	if err != nil {
		return memoryerr.DatabaseError("begin rebuild_fts_index transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM memories_fts`); err != nil {
		return memoryerr.DatabaseError("clear fts index", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO memories_fts(rowid, memory_id, title, tags, content)
		SELECT rowid, id, title, tags, content FROM memories WHERE deleted = 0
	`); err != nil {
		return memoryerr.DatabaseError("repopulate fts index", err)
	}

	return tx.Commit()
}

// Vacuum delegates to the engine's compacting pass.
func (r *SQLiteRepository) Vacuum() error {
	if err := r.engine.Vacuum(); err != nil {
		return memoryerr.DatabaseError("vacuum", err)
	}
	return nil
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

func idArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func rowsAffectedOrErr(result sql.Result, context string) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, memoryerr.DatabaseError(context, err)
	}
	return int(n), nil
}

// BulkSoftDelete marks every listed id deleted in one transaction.
func (r *SQLiteRepository) BulkSoftDelete(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE memories SET deleted = 1 WHERE id IN (%s)`, placeholders(len(ids)))
	result, err := r.engine.exec(query, idArgs(ids)...)
	if err != nil {
		return 0, memoryerr.DatabaseError("bulk_soft_delete", err)
	}
	return rowsAffectedOrErr(result, "bulk_soft_delete rows affected")
}

// BulkHardDelete physically removes every listed id in one transaction,
// regardless of its deleted flag.
func (r *SQLiteRepository) BulkHardDelete(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM memories WHERE id IN (%s)`, placeholders(len(ids)))
	result, err := r.engine.exec(query, idArgs(ids)...)
	if err != nil {
		return 0, memoryerr.DatabaseError("bulk_hard_delete", err)
	}
	return rowsAffectedOrErr(result, "bulk_hard_delete rows affected")
}

// BulkAddTags merges tags into every listed memory's tag list,
// deduplicating, in one transaction.
func (r *SQLiteRepository) BulkAddTags(ids []string, tags []string) (int, error) {
	return r.bulkMutateTags(ids, func(existing []string) []string {
		seen := make(map[string]struct{}, len(existing))
		merged := make([]string, 0, len(existing)+len(tags))
		for _, t := range existing {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				merged = append(merged, t)
			}
		}
		for _, t := range tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				merged = append(merged, t)
			}
		}
		return merged
	})
}

// BulkRemoveTags removes tags from every listed memory's tag list,
// preserving the remaining order, in one transaction.
func (r *SQLiteRepository) BulkRemoveTags(ids []string, tags []string) (int, error) {
	remove := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		remove[t] = struct{}{}
	}
	return r.bulkMutateTags(ids, func(existing []string) []string {
		remaining := make([]string, 0, len(existing))
		for _, t := range existing {
			if _, drop := remove[t]; !drop {
				remaining = append(remaining, t)
			}
		}
		return remaining
	})
}

func (r *SQLiteRepository) bulkMutateTags(ids []string, mutate func([]string) []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.engine.begin()
	if err != nil {
		return 0, memoryerr.DatabaseError("begin bulk tag mutation transaction", err)
	}
	defer tx.Rollback()

	affected := 0
	for _, id := range ids {
		var tagsJoined string
		err := tx.QueryRow(`SELECT tags FROM memories WHERE id = ?`, id).Scan(&tagsJoined)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return 0, memoryerr.DatabaseError("read tags for bulk mutation", err)
		}

		newTags := mutate(memorycore.SplitTags(tagsJoined))
		result, err := tx.Exec(`UPDATE memories SET tags = ? WHERE id = ?`, strings.Join(newTags, ","), id)
		if err != nil {
			return 0, memoryerr.DatabaseError("write tags for bulk mutation", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, memoryerr.DatabaseError("bulk tag mutation rows affected", err)
		}
		affected += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, memoryerr.DatabaseError("commit bulk tag mutation transaction", err)
	}
	return affected, nil
}

// BulkUpdateConfidence sets confidence on every listed id in one
// transaction.
func (r *SQLiteRepository) BulkUpdateConfidence(ids []string, value memorycore.Confidence) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE memories SET confidence = ? WHERE id IN (%s)`, placeholders(len(ids)))
	args := append([]interface{}{value.Float64()}, idArgs(ids)...)
	result, err := r.engine.exec(query, args...)
	if err != nil {
		return 0, memoryerr.DatabaseError("bulk_update_confidence", err)
	}
	return rowsAffectedOrErr(result, "bulk_update_confidence rows affected")
}

// BulkUpdateType sets type on every listed id in one transaction.
func (r *SQLiteRepository) BulkUpdateType(ids []string, memType memorycore.MemoryType) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE memories SET type = ? WHERE id IN (%s)`, placeholders(len(ids)))
	args := append([]interface{}{string(memType)}, idArgs(ids)...)
	result, err := r.engine.exec(query, args...)
	if err != nil {
		return 0, memoryerr.DatabaseError("bulk_update_type", err)
	}
	return rowsAffectedOrErr(result, "bulk_update_type rows affected")
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
