package diff

import (
	"fmt"
	"time"
)

// LineOp is the prefix class of a hunk body line.
type LineOp byte

const (
	OpContext LineOp = ' '
	OpRemove  LineOp = '-'
	OpAdd     LineOp = '+'
)

// Line is one body line of a hunk with its prefix stripped.
type Line struct {
	Op   LineOp
	Text string
}

// Chunk is a parsed unified diff hunk.
type Chunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Section  string

	ContextLines []string
	RemovedLines []string
	AddedLines   []string

	// Body keeps the interleaving of context, removed and added lines.
	Body []Line

	// Raw is the hunk text as it was given, prefixes included.
	Raw string
}

// OldLines returns the context and removed lines in body order, i.e. the
// lines the hunk expects to find in the source.
func (c Chunk) OldLines() []string {
	lines := make([]string, 0, len(c.ContextLines)+len(c.RemovedLines))
	for _, l := range c.Body {
		if l.Op != OpAdd {
			lines = append(lines, l.Text)
		}
	}
	return lines
}

// NewLines returns the context and added lines in body order.
func (c Chunk) NewLines() []string {
	lines := make([]string, 0, len(c.ContextLines)+len(c.AddedLines))
	for _, l := range c.Body {
		if l.Op != OpRemove {
			lines = append(lines, l.Text)
		}
	}
	return lines
}

// IsInsertion reports whether the hunk only adds lines. The body decides, not
// the header, since generated headers often carry a wrong old count.
func (c Chunk) IsInsertion() bool {
	return len(c.OldLines()) == 0
}

// IsDeletion reports whether the hunk adds nothing.
func (c Chunk) IsDeletion() bool {
	return len(c.AddedLines) == 0
}

// overlay returns a copy of the chunk whose context and removed lines are
// taken from lines starting at index at, the way they appear in the source.
// Added lines keep the chunk's text. Lines past the end of the source keep
// the chunk's text as well.
func (c Chunk) overlay(lines []string, at int) Chunk {
	out := c
	out.Body = make([]Line, 0, len(c.Body))
	out.ContextLines = nil
	out.RemovedLines = nil
	out.AddedLines = nil

	i := at
	for _, l := range c.Body {
		if l.Op != OpAdd {
			if i >= 0 && i < len(lines) {
				l.Text = lines[i]
			}
			i++
		}
		out.appendLine(l.Op, l.Text)
	}
	return out
}

// hintIndex is the 0-based buffer index the header points at.
func (c Chunk) hintIndex() int {
	if c.IsInsertion() {
		// "@@ -10,0 +11,2 @@" inserts after line 10
		if c.OldStart < 0 {
			return 0
		}
		return c.OldStart
	}
	if c.OldStart < 1 {
		return 0
	}
	return c.OldStart - 1
}

// Tier names the strategy that produced an ApplyResult.
type Tier string

const (
	TierExternal   Tier = "external"
	TierStructured Tier = "structured"
	TierManual     Tier = "manual"
	TierIdentity   Tier = "identity"
)

// ChunkStatus is the per-chunk outcome of an Apply call.
type ChunkStatus string

const (
	StatusApplied     ChunkStatus = "applied"
	StatusRelocated   ChunkStatus = "relocated"
	StatusInserted    ChunkStatus = "inserted"
	StatusParseFailed ChunkStatus = "parse_failed"
	StatusSkipped     ChunkStatus = "skipped"
)

// ChunkOutcome records what happened to one input hunk. Index is 1-based in
// input order; Line is the 1-based line the edit landed on, 0 if unknown.
type ChunkOutcome struct {
	Index  int         `json:"index"`
	Status ChunkStatus `json:"status"`
	Line   int         `json:"line,omitempty"`
}

// ApplyResult is what Apply returns. Text is always usable: at worst it is
// the unmodified source.
type ApplyResult struct {
	Success       bool           `json:"success"`
	Text          string         `json:"text"`
	Tier          Tier           `json:"tier"`
	ChunksApplied int            `json:"chunks_applied"`
	ChunksTotal   int            `json:"chunks_total"`
	Warnings      []string       `json:"warnings,omitempty"`
	Outcomes      []ChunkOutcome `json:"outcomes,omitempty"`
	Duration      time.Duration  `json:"duration"`
}

func (r *ApplyResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// parsedChunk pairs a chunk with its 1-based position in the expanded input.
type parsedChunk struct {
	index int
	chunk Chunk
}
