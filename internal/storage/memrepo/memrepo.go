// Package memrepo is an in-memory Repository implementation used by use-case
// tests so they don't need a real SQLite file. It mirrors the semantics of
// the SQLite-backed repository: deleted rows are invisible to every finder,
// and search is a simple case-insensitive substring match rather than FTS5.
package memrepo

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
)

// Repository is a HashMap-backed stand-in for the SQLite repository.
type Repository struct {
	mu    sync.RWMutex
	store map[string]*memorycore.Memory
}

// New returns an empty in-memory repository.
func New() *Repository {
	return &Repository{store: make(map[string]*memorycore.Memory)}
}

func clone(m *memorycore.Memory) *memorycore.Memory {
	c := *m
	c.Tags = append([]string(nil), m.Tags...)
	if m.LastAccessed != nil {
		v := *m.LastAccessed
		c.LastAccessed = &v
	}
	return &c
}

// Save upserts a single memory.
func (r *Repository) Save(m *memorycore.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[m.ID] = clone(m)
	return nil
}

// SaveBatch upserts every memory; in-memory writes can't partially fail.
func (r *Repository) SaveBatch(memories []*memorycore.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range memories {
		r.store[m.ID] = clone(m)
	}
	return nil
}

// FindByID returns the memory if present and not deleted.
func (r *Repository) FindByID(id string) (*memorycore.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.store[id]
	if !ok || m.Deleted {
		return nil, nil
	}
	return clone(m), nil
}

// FindByType returns all non-deleted memories of that type, newest first.
func (r *Repository) FindByType(memType memorycore.MemoryType) ([]*memorycore.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*memorycore.Memory
	for _, m := range r.store {
		if !m.Deleted && m.Type == memType {
			out = append(out, clone(m))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

// FindAll returns all non-deleted memories, newest first.
func (r *Repository) FindAll() ([]*memorycore.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*memorycore.Memory
	for _, m := range r.store {
		if !m.Deleted {
			out = append(out, clone(m))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

// SearchFTS performs a naive case-insensitive substring match over title,
// tags, and content, since there is no real FTS5 index to query here. It
// orders results the same way the SQLite repository does: confidence DESC,
// reference_count DESC, created_at DESC.
func (r *Repository) SearchFTS(query string, limit int) ([]*memorycore.Memory, error) {
	if limit <= 0 {
		limit = 10
	}

	needle := strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	var out []*memorycore.Memory
	for _, m := range r.store {
		if m.Deleted {
			continue
		}
		if needle == "" || matches(m, needle) {
			out = append(out, clone(m))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].ReferenceCount != out[j].ReferenceCount {
			return out[i].ReferenceCount > out[j].ReferenceCount
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(m *memorycore.Memory, needle string) bool {
	if strings.Contains(strings.ToLower(m.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(m.Content), needle) {
		return true
	}
	for _, t := range m.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func sortByCreatedDesc(memories []*memorycore.Memory) {
	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt > memories[j].CreatedAt
	})
}

// IncrementReferenceCount bumps reference_count and stamps last_accessed.
// Missing ids are a no-op.
func (r *Repository) IncrementReferenceCount(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return nil
	}
	m.ReferenceCount++
	now := nowFunc()
	m.LastAccessed = &now
	return nil
}

// nowFunc is a seam for tests that want deterministic timestamps; it
// defaults to wall-clock time.
var nowFunc = func() int64 { return time.Now().Unix() }

// CleanupDeleted physically removes every soft-deleted entry.
func (r *Repository) CleanupDeleted() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.store {
		if m.Deleted {
			delete(r.store, id)
			n++
		}
	}
	return n, nil
}

// RebuildFTSIndex is a no-op: there is no separate index to rebuild.
func (r *Repository) RebuildFTSIndex() error { return nil }

// Vacuum is a no-op for the in-memory repository.
func (r *Repository) Vacuum() error { return nil }

// BulkSoftDelete marks every listed id deleted.
func (r *Repository) BulkSoftDelete(ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if m, ok := r.store[id]; ok {
			m.Deleted = true
			n++
		}
	}
	return n, nil
}

// BulkHardDelete physically removes every listed id.
func (r *Repository) BulkHardDelete(ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := r.store[id]; ok {
			delete(r.store, id)
			n++
		}
	}
	return n, nil
}

// BulkAddTags merges tags into each listed memory's tag list, deduplicating.
func (r *Repository) BulkAddTags(ids []string, tags []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		m, ok := r.store[id]
		if !ok {
			continue
		}
		seen := make(map[string]struct{}, len(m.Tags))
		merged := make([]string, 0, len(m.Tags)+len(tags))
		for _, t := range m.Tags {
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				merged = append(merged, t)
			}
		}
		for _, t := range tags {
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				merged = append(merged, t)
			}
		}
		m.Tags = merged
		n++
	}
	return n, nil
}

// BulkRemoveTags removes tags from each listed memory's tag list,
// preserving the order of what remains.
func (r *Repository) BulkRemoveTags(ids []string, tags []string) (int, error) {
	remove := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		remove[t] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		m, ok := r.store[id]
		if !ok {
			continue
		}
		remaining := make([]string, 0, len(m.Tags))
		for _, t := range m.Tags {
			if _, drop := remove[t]; !drop {
				remaining = append(remaining, t)
			}
		}
		m.Tags = remaining
		n++
	}
	return n, nil
}

// BulkUpdateConfidence sets confidence on every listed id.
func (r *Repository) BulkUpdateConfidence(ids []string, value memorycore.Confidence) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if m, ok := r.store[id]; ok {
			m.Confidence = value
			n++
		}
	}
	return n, nil
}

// BulkUpdateType sets type on every listed id.
func (r *Repository) BulkUpdateType(ids []string, memType memorycore.MemoryType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if m, ok := r.store[id]; ok {
			m.Type = memType
			n++
		}
	}
	return n, nil
}
