package memorycore

import "github.com/MycelicMemory/mycelicmemory/internal/memoryerr"

// MemoryType is a closed sum type constructed from the project's
// configured type names. It is represented as plain text in storage for
// schema evolution; validation happens at the domain boundary.
type MemoryType string

// TypeSet is the set of admissible memory-type names for a project,
// loaded from ProjectConfig at startup.
type TypeSet struct {
	names map[string]struct{}
}

// NewTypeSet builds a TypeSet from the configured type names.
func NewTypeSet(names []string) *TypeSet {
	set := &TypeSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		set.names[n] = struct{}{}
	}
	return set
}

// Validate returns InvalidMemoryType(name) unless name is a member of the
// set. Used identically on the remember write path and on a recall type
// filter — an unknown type is never silently treated as "no filter".
func (s *TypeSet) Validate(name string) (MemoryType, error) {
	if _, ok := s.names[name]; !ok {
		return "", memoryerr.InvalidMemoryType(name)
	}
	return MemoryType(name), nil
}

// Names returns the configured type names in no particular order.
func (s *TypeSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	return out
}
