package usecase

import (
	"fmt"
	"strings"

	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
)

// FormatMarkdown renders memories in the recall output format: a heading
// per memory, its tags and counters in emphasis lines, the content body,
// and a `---` delimiter with a trailing blank line.
func FormatMarkdown(memories []*memorycore.Memory) string {
	var b strings.Builder

	for _, m := range memories {
		fmt.Fprintf(&b, "## %s\n", m.Title)
		fmt.Fprintf(&b, "*Tags: %s*\n", strings.Join(m.Tags, ", "))
		fmt.Fprintf(&b, "*References: %d, Confidence: %.2f*\n\n", m.ReferenceCount, m.Confidence.Float64())
		b.WriteString(m.Content)
		b.WriteString("\n\n")
		b.WriteString("---\n\n")
	}

	return b.String()
}
