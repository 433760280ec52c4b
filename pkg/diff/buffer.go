package diff

import (
	"sort"
	"strings"
)

// LineBuffer is the mutable, line-indexed text being patched.
type LineBuffer struct {
	lines           []string
	trailingNewline bool
}

// NewLineBuffer splits text into lines. The trailing newline, if any, is
// remembered rather than stored as an empty last line. An empty text is
// treated as having one so that inserted lines end with a newline.
func NewLineBuffer(text string) *LineBuffer {
	text = normalizeLineEndings(text)
	if text == "" {
		return &LineBuffer{trailingNewline: true}
	}

	trailing := strings.HasSuffix(text, "\n")
	if trailing {
		text = text[:len(text)-1]
	}

	return &LineBuffer{
		lines:           strings.Split(text, "\n"),
		trailingNewline: trailing,
	}
}

func (b *LineBuffer) Lines() []string {
	return b.lines
}

func (b *LineBuffer) Len() int {
	return len(b.lines)
}

func (b *LineBuffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	s := strings.Join(b.lines, "\n")
	if b.trailingNewline {
		s += "\n"
	}
	return s
}

// splice removes remove lines at index at and inserts lines in their place.
func (b *LineBuffer) splice(at, remove int, lines []string) {
	at = max(0, min(at, len(b.lines)))
	remove = max(0, min(remove, len(b.lines)-at))

	next := make([]string, 0, len(b.lines)-remove+len(lines))
	next = append(next, b.lines[:at]...)
	next = append(next, lines...)
	next = append(next, b.lines[at+remove:]...)
	b.lines = next
}

// ApplyChunk applies one chunk to the buffer. The old block is located
// within window lines of the header's position. Its removed lines are
// dropped and its added lines inserted, while context lines keep the
// buffer's text. When it cannot be located, the added lines are inserted verbatim
// at the hinted line so that nothing the chunk adds is lost. The returned
// outcome has no Index set.
func ApplyChunk(buf *LineBuffer, c Chunk, window int) ChunkOutcome {
	hint := c.hintIndex()
	at := min(hint, buf.Len())

	oldLines := c.OldLines()
	if len(oldLines) == 0 {
		buf.splice(at, 0, c.NewLines())
		return ChunkOutcome{Status: StatusApplied, Line: at + 1}
	}

	idx, match := Locator{Window: window}.Locate(buf.lines, oldLines, hint)
	if match == MatchNone {
		if len(c.AddedLines) == 0 {
			return ChunkOutcome{Status: StatusSkipped, Line: at + 1}
		}
		buf.splice(at, 0, c.AddedLines)
		return ChunkOutcome{Status: StatusInserted, Line: at + 1}
	}

	// context lines stay as the buffer has them
	buf.splice(idx, len(oldLines), c.overlay(buf.lines, idx).NewLines())
	if idx != hint {
		return ChunkOutcome{Status: StatusRelocated, Line: idx + 1}
	}
	return ChunkOutcome{Status: StatusApplied, Line: idx + 1}
}

// sortDescending orders chunks by OldStart, last first. Equal starts keep
// their input order.
func sortDescending(chunks []parsedChunk) []parsedChunk {
	sorted := make([]parsedChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].chunk.OldStart > sorted[j].chunk.OldStart
	})
	return sorted
}

func sortAscending(chunks []parsedChunk) []parsedChunk {
	sorted := make([]parsedChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].chunk.OldStart < sorted[j].chunk.OldStart
	})
	return sorted
}

// applyManual is the in-memory tier: every chunk is applied to one buffer
// in descending order.
func applyManual(source string, chunks []parsedChunk, window int) tierResult {
	buf := NewLineBuffer(source)
	res := tierResult{}

	for _, pc := range sortDescending(chunks) {
		outcome := ApplyChunk(buf, pc.chunk, window)
		outcome.Index = pc.index
		res.outcomes = append(res.outcomes, outcome)

		hintLine := pc.chunk.hintIndex() + 1
		switch outcome.Status {
		case StatusRelocated:
			res.warnf("chunk %d relocated by fuzzy match (line %d -> line %d)", pc.index, hintLine, outcome.Line)
		case StatusInserted:
			res.warnf("chunk %d could not be located, inserted verbatim at line %d", pc.index, outcome.Line)
		case StatusSkipped:
			res.warnf("chunk %d could not be located and adds no lines, skipped", pc.index)
		}
	}

	res.text = buf.String()
	return res
}
