// Package report renders finding sequences for human readers: grouped by
// structure, capped per structure, chunked to a transport's message size
// limit, with optional per-structure descriptions and reviewer notes.
package report

import (
	"fmt"
	"strings"

	"github.com/gridsight/gridsight/finding"
)

// Options controls rendering. Zero values fall back to the defaults used
// by the original reporting flow.
type Options struct {
	// MaxPerStructure caps how many findings are listed per structure;
	// the rest collapse into "... and N more". Default: 5.
	MaxPerStructure int

	// ChunkSize is the byte limit per rendered chunk. Default: 4000.
	ChunkSize int

	// Descriptions maps structure ids to human-written context lines.
	Descriptions map[string]string

	// Annotations maps finding canonical keys to reviewer notes, shown
	// inline next to the matching finding.
	Annotations map[string]string
}

func (o *Options) applyDefaults() {
	if o.MaxPerStructure <= 0 {
		o.MaxPerStructure = 5
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 4000
	}
}

// Render produces the full report text for a categorized finding set.
func Render(cat *finding.Categorized, opts Options) string {
	opts.applyDefaults()

	if cat.Len() == 0 {
		return "No empty cells found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Empty cells found: %d\n", cat.Len())

	for _, id := range cat.Structures() {
		group := cat.Group(id)

		b.WriteByte('\n')
		b.WriteString(id)
		if desc := opts.Descriptions[id]; desc != "" {
			b.WriteString(" — ")
			b.WriteString(desc)
		}
		b.WriteByte('\n')

		shown := group
		if len(shown) > opts.MaxPerStructure {
			shown = shown[:opts.MaxPerStructure]
		}
		for _, f := range shown {
			b.WriteString("  - ")
			b.WriteString(f.Describe())
			if note := opts.Annotations[finding.CanonicalKey(f)]; note != "" {
				fmt.Fprintf(&b, " [note: %s]", note)
			}
			b.WriteByte('\n')
		}
		if rest := len(group) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}
	return b.String()
}

// RenderChunks renders and splits the report at line boundaries so no
// chunk exceeds Options.ChunkSize bytes. A single line longer than the
// limit becomes its own oversized chunk rather than being cut mid-line.
func RenderChunks(cat *finding.Categorized, opts Options) []string {
	opts.applyDefaults()
	return Chunk(Render(cat, opts), opts.ChunkSize)
}

// Chunk splits text into pieces of at most size bytes, breaking only at
// newlines.
func Chunk(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len() > 0 && cur.Len()+len(line) > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
