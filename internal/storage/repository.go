package storage

import "github.com/MycelicMemory/mycelicmemory/internal/memorycore"

// Repository is the abstract capability the use-case layer depends on.
// A second, in-memory implementation (see the memrepo subpackage)
// satisfies the same contract for tests, including "deleted rows are
// invisible" semantics and a naive substring search over title+content.
type Repository interface {
	Save(memory *memorycore.Memory) error
	SaveBatch(memories []*memorycore.Memory) error
	FindByID(id string) (*memorycore.Memory, error)
	FindByType(memType memorycore.MemoryType) ([]*memorycore.Memory, error)
	FindAll() ([]*memorycore.Memory, error)
	SearchFTS(query string, limit int) ([]*memorycore.Memory, error)
	IncrementReferenceCount(id string) error

	CleanupDeleted() (int, error)
	RebuildFTSIndex() error
	Vacuum() error

	BulkSoftDelete(ids []string) (int, error)
	BulkHardDelete(ids []string) (int, error)
	BulkAddTags(ids []string, tags []string) (int, error)
	BulkRemoveTags(ids []string, tags []string) (int, error)
	BulkUpdateConfidence(ids []string, value memorycore.Confidence) (int, error)
	BulkUpdateType(ids []string, memType memorycore.MemoryType) (int, error)
}
