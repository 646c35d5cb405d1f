package memorycore

import (
	"testing"

	"github.com/MycelicMemory/mycelicmemory/internal/memoryerr"
)

func TestNewDefaults(t *testing.T) {
	m := New("tech", "Title", "Content")

	if m.ID == "" {
		t.Error("expected a generated id")
	}
	if m.Confidence != DefaultConfidence {
		t.Errorf("expected default confidence 1.0, got %v", m.Confidence)
	}
	if m.ReferenceCount != 0 || m.Deleted || m.LastAccessed != nil {
		t.Errorf("unexpected defaults: %+v", m)
	}
	if m.CreatedAt == 0 {
		t.Error("expected created_at to be set")
	}
	if len(m.Tags) != 0 {
		t.Errorf("expected no tags, got %v", m.Tags)
	}
}

func TestNewGeneratesUniqueIDs(t *testing.T) {
	a := New("tech", "A", "x")
	b := New("tech", "B", "y")
	if a.ID == b.ID {
		t.Errorf("ids must be unique, both %s", a.ID)
	}
}

func TestWithTagsAndConfidenceReturnCopies(t *testing.T) {
	m := New("tech", "T", "c")

	tagged := m.WithTags([]string{"a"})
	if len(m.Tags) != 0 {
		t.Error("WithTags mutated the receiver")
	}
	if len(tagged.Tags) != 1 {
		t.Errorf("expected tags on the copy, got %v", tagged.Tags)
	}

	confident := m.WithConfidence(0.5)
	if m.Confidence != DefaultConfidence {
		t.Error("WithConfidence mutated the receiver")
	}
	if confident.Confidence != 0.5 {
		t.Errorf("expected 0.5 on the copy, got %v", confident.Confidence)
	}
}

func TestTagsJoinedAndSplitRoundTrip(t *testing.T) {
	m := New("tech", "T", "c").WithTags([]string{"rust", "async"})
	joined := m.TagsJoined()
	if joined != "rust,async" {
		t.Errorf("expected rust,async, got %q", joined)
	}

	split := SplitTags(joined)
	if len(split) != 2 || split[0] != "rust" || split[1] != "async" {
		t.Errorf("round trip failed: %v", split)
	}

	if SplitTags("") != nil {
		t.Error("empty column should parse to no tags")
	}
	if got := SplitTags("a,,b"); len(got) != 2 {
		t.Errorf("empty entries should be dropped, got %v", got)
	}
}

func TestHasAllTags(t *testing.T) {
	m := New("tech", "T", "c").WithTags([]string{"rust", "backend"})

	if !m.HasAllTags(nil) {
		t.Error("empty requirement should always pass")
	}
	if !m.HasAllTags([]string{"rust"}) {
		t.Error("single present tag should pass")
	}
	if !m.HasAllTags([]string{"rust", "backend"}) {
		t.Error("all present tags should pass")
	}
	if m.HasAllTags([]string{"rust", "frontend"}) {
		t.Error("missing tag should fail AND semantics")
	}
}

func TestNewConfidenceBounds(t *testing.T) {
	for _, v := range []float64{0.0, 0.5, 1.0} {
		c, err := NewConfidence(v)
		if err != nil {
			t.Errorf("NewConfidence(%v) unexpected error: %v", v, err)
		}
		if c.Float64() != v {
			t.Errorf("NewConfidence(%v) = %v", v, c)
		}
	}

	for _, v := range []float64{-0.0001, 1.0001, -1, 2} {
		_, err := NewConfidence(v)
		if err == nil {
			t.Errorf("NewConfidence(%v) should fail", v)
			continue
		}
		e, ok := memoryerr.As(err)
		if !ok || e.Kind != memoryerr.KindInvalidConfidence {
			t.Errorf("NewConfidence(%v): expected KindInvalidConfidence, got %v", v, err)
		}
	}
}

func TestConfidenceString(t *testing.T) {
	if got := Confidence(0.9).String(); got != "0.90" {
		t.Errorf("expected 0.90, got %s", got)
	}
}

func TestTypeSetValidate(t *testing.T) {
	set := NewTypeSet([]string{"tech", "domain"})

	if _, err := set.Validate("tech"); err != nil {
		t.Errorf("expected tech to validate: %v", err)
	}

	_, err := set.Validate("workflow")
	if err == nil {
		t.Fatal("expected workflow to be rejected")
	}
	e, ok := memoryerr.As(err)
	if !ok || e.Kind != memoryerr.KindInvalidMemoryType {
		t.Errorf("expected KindInvalidMemoryType, got %v", err)
	}
}

func TestInputValidate(t *testing.T) {
	set := NewTypeSet([]string{"tech"})

	memType, title, content, err := Input{
		Type:    "tech",
		Title:   "  Padded  ",
		Content: " body ",
	}.Validate(set)
	if err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if memType != "tech" || title != "Padded" || content != "body" {
		t.Errorf("trimming failed: %q / %q / %q", memType, title, content)
	}

	tests := []struct {
		name string
		in   Input
		kind memoryerr.Kind
	}{
		{"bad type", Input{Type: "x", Title: "t", Content: "c"}, memoryerr.KindInvalidMemoryType},
		{"blank title", Input{Type: "tech", Title: "   ", Content: "c"}, memoryerr.KindInvalidInput},
		{"blank content", Input{Type: "tech", Title: "t", Content: "\n"}, memoryerr.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := tt.in.Validate(set)
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := memoryerr.As(err)
			if !ok || e.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, err)
			}
		})
	}
}
