// Package memorycore holds the domain model for stored notes: the Memory
// entity, its value objects, and the project configuration that governs
// which memory types are admissible.
package memorycore

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MycelicMemory/mycelicmemory/internal/memoryerr"
)

// Memory is the unit of stored knowledge.
type Memory struct {
	ID             string
	Type           MemoryType
	Title          string
	Content        string
	Tags           []string
	Confidence     Confidence
	ReferenceCount int
	CreatedAt      int64
	LastAccessed   *int64
	Deleted        bool
}

// New constructs a Memory with a fresh UUID, default confidence 1.0,
// empty tags, reference_count 0, created_at = now, last_accessed unset,
// and deleted = false.
func New(memType MemoryType, title, content string) *Memory {
	return &Memory{
		ID:         uuid.NewString(),
		Type:       memType,
		Title:      title,
		Content:    content,
		Tags:       nil,
		Confidence: DefaultConfidence,
		CreatedAt:  time.Now().Unix(),
	}
}

// WithTags returns a copy of m with its tags replaced.
func (m *Memory) WithTags(tags []string) *Memory {
	c := *m
	c.Tags = tags
	return &c
}

// WithConfidence returns a copy of m with its confidence replaced.
func (m *Memory) WithConfidence(confidence Confidence) *Memory {
	c := *m
	c.Confidence = confidence
	return &c
}

// TagsJoined returns the tags comma-joined for storage.
func (m *Memory) TagsJoined() string {
	return strings.Join(m.Tags, ",")
}

// SplitTags parses a comma-joined tag column back into a slice, dropping
// empty entries.
func SplitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasTag reports whether m carries the given tag exactly.
func (m *Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAllTags reports whether every tag in required is present in m's tag
// list (AND semantics, per the recall use case's tag-filter contract).
func (m *Memory) HasAllTags(required []string) bool {
	for _, t := range required {
		if !m.HasTag(t) {
			return false
		}
	}
	return true
}

func (m *Memory) String() string {
	return m.Title
}

// Input is the validated shape of a single remember entry, before a
// Memory is constructed from it.
type Input struct {
	Type       string
	Title      string
	Content    string
	Tags       []string
	Confidence *float64
}

// Validate checks Input against the project's admissible types and the
// non-empty-after-trim rule for title/content, returning the trimmed
// title/content and a validated MemoryType. It does not construct a
// Memory; that is the caller's job once every input in a batch validates.
func (in Input) Validate(types *TypeSet) (MemoryType, string, string, error) {
	memType, err := types.Validate(in.Type)
	if err != nil {
		return "", "", "", err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", "", "", memoryerr.InvalidInput("title", "must not be empty")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", "", "", memoryerr.InvalidInput("content", "must not be empty")
	}

	return memType, title, content, nil
}
