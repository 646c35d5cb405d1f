// Package usecase implements the remember/recall use cases on top of the
// Repository port: input validation, retrieval strategy selection,
// ranking, markdown formatting, and the fire-and-forget reference-count
// side effect.
package usecase

import (
	"sort"
	"strings"
	"sync"

	"github.com/MycelicMemory/mycelicmemory/internal/logging"
	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
	"github.com/MycelicMemory/mycelicmemory/internal/storage"
)

// DefaultRecallLimit caps recall results when the caller does not supply
// a limit.
const DefaultRecallLimit = 10

// Service wraps the repository with the memory business logic.
type Service struct {
	repo  storage.Repository
	types *memorycore.TypeSet
	log   *logging.Logger

	// wg tracks in-flight reference-count updates so they outlive the
	// recall response but never outlive the process.
	wg sync.WaitGroup
}

// NewService builds a Service enforcing project's admissible memory types.
func NewService(repo storage.Repository, project *memorycore.ProjectConfig) *Service {
	return &Service{
		repo:  repo,
		types: project.TypeSet(),
		log:   logging.GetLogger("usecase"),
	}
}

// RememberBatch validates every input, constructs Memory instances, and
// writes them in a single atomic batch. Validation of all inputs happens
// before any write, so a bad entry anywhere in the batch means nothing is
// persisted.
func (s *Service) RememberBatch(inputs []memorycore.Input) ([]*memorycore.Memory, error) {
	if len(inputs) == 0 {
		return []*memorycore.Memory{}, nil
	}

	memories := make([]*memorycore.Memory, 0, len(inputs))
	for _, in := range inputs {
		memType, title, content, err := in.Validate(s.types)
		if err != nil {
			return nil, err
		}

		confidence := memorycore.Confidence(memorycore.DefaultConfidence)
		if in.Confidence != nil {
			confidence, err = memorycore.NewConfidence(*in.Confidence)
			if err != nil {
				return nil, err
			}
		}

		m := memorycore.New(memType, title, content).
			WithTags(in.Tags).
			WithConfidence(confidence)
		memories = append(memories, m)
	}

	if err := s.repo.SaveBatch(memories); err != nil {
		return nil, err
	}

	s.log.Info("remembered batch", "count", len(memories))
	return memories, nil
}

// RecallResult carries the formatted markdown plus the number of memories
// it contains.
type RecallResult struct {
	Markdown   string
	TotalCount int
}

// Recall retrieves memories by free-text query plus optional type/tag
// filters, ranked by confidence then reference count, formatted as
// markdown. Reference counts for the returned memories are bumped on a
// background goroutine; the response never waits on it and its errors are
// logged, not surfaced.
func (s *Service) Recall(query string, limit int, typeFilter string, tagFilter []string) (*RecallResult, error) {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}

	// An unknown type filter is an error, never silently "no filter".
	var memType memorycore.MemoryType
	if typeFilter != "" {
		var err error
		memType, err = s.types.Validate(typeFilter)
		if err != nil {
			return nil, err
		}
	}

	query = strings.TrimSpace(query)
	hasFilters := typeFilter != "" || len(tagFilter) > 0

	var memories []*memorycore.Memory
	var err error
	switch {
	case query == "" && !hasFilters:
		memories, err = s.repo.FindAll()
	case hasFilters:
		// Filter in memory so filter semantics stay deterministic
		// regardless of FTS tokenization quirks.
		if typeFilter != "" {
			memories, err = s.repo.FindByType(memType)
		} else {
			memories, err = s.repo.FindAll()
		}
		if err == nil && query != "" {
			memories = filterByQuery(memories, query)
		}
	default:
		// Double the limit gives headroom for the post-FTS re-sort.
		memories, err = s.repo.SearchFTS(query, limit*2)
	}
	if err != nil {
		return nil, err
	}

	if len(tagFilter) > 0 {
		filtered := memories[:0]
		for _, m := range memories {
			if m.HasAllTags(tagFilter) {
				filtered = append(filtered, m)
			}
		}
		memories = filtered
	}

	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].Confidence != memories[j].Confidence {
			return memories[i].Confidence > memories[j].Confidence
		}
		return memories[i].ReferenceCount > memories[j].ReferenceCount
	})

	if len(memories) > limit {
		memories = memories[:limit]
	}

	ids := make([]string, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, id := range ids {
			if err := s.repo.IncrementReferenceCount(id); err != nil {
				s.log.Warn("reference count update failed", "id", id, "error", err)
			}
		}
	}()

	return &RecallResult{
		Markdown:   FormatMarkdown(memories),
		TotalCount: len(memories),
	}, nil
}

// filterByQuery keeps memories whose title or content contains query,
// case-insensitively.
func filterByQuery(memories []*memorycore.Memory, query string) []*memorycore.Memory {
	needle := strings.ToLower(query)
	out := memories[:0]
	for _, m := range memories {
		if strings.Contains(strings.ToLower(m.Title), needle) ||
			strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, m)
		}
	}
	return out
}

// Wait blocks until all in-flight reference-count updates have completed.
// Called at shutdown, and by tests that assert on counter state.
func (s *Service) Wait() {
	s.wg.Wait()
}
