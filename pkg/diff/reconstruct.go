package diff

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultContextWiden is how many source lines of context are added on each
// side of a chunk that was found exactly.
const DefaultContextWiden = 3

// DiffReconstructor rebuilds chunks into a patch document that standalone
// tools accept: one file header pair, ascending hunks, recounted headers and
// context widened from the source where the chunk's position is certain.
type DiffReconstructor struct {
	sourceLines []string
	fileName    string
	window      int
	widen       int
}

// placement is where the reconstructor put one chunk. Lines are 1-based.
type placement struct {
	index     int
	hintLine  int
	line      int
	relocated bool
}

type reconstructedHunk struct {
	pc       parsedChunk
	start    int
	anchored bool
	before   int
	after    int
}

func NewDiffReconstructor(source, fileName string, window, widen int) *DiffReconstructor {
	return &DiffReconstructor{
		sourceLines: NewLineBuffer(source).Lines(),
		fileName:    fileName,
		window:      window,
		widen:       widen,
	}
}

// ReconstructDiff returns the patch document and the placement of every
// chunk in document order, so tool output about "Hunk #N" can be mapped back.
func (d *DiffReconstructor) ReconstructDiff(chunks []parsedChunk) (string, []placement) {
	hunks := d.findHunkPositions(chunks)
	d.widenContext(hunks)

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", d.fileName))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", d.fileName))

	placements := make([]placement, 0, len(hunks))
	offset := 0
	for _, h := range hunks {
		oldLen := len(h.pc.chunk.OldLines())
		newLen := len(h.pc.chunk.NewLines())

		oldStart := h.start - h.before + 1
		oldCount := h.before + oldLen + h.after
		newStart := oldStart + offset
		newCount := h.before + newLen + h.after
		offset += newCount - oldCount

		result.WriteString(fmt.Sprintf("@@ -%s +%s @@\n", hunkRange(oldStart, oldCount), hunkRange(newStart, newCount)))
		for _, line := range d.sourceLines[h.start-h.before : h.start] {
			result.WriteString(" " + line + "\n")
		}
		body := h.pc.chunk.Body
		if h.anchored {
			body = h.pc.chunk.overlay(d.sourceLines, h.start).Body
		}
		for _, line := range body {
			result.WriteString(string(rune(line.Op)) + line.Text + "\n")
		}
		if h.after > 0 {
			for _, line := range d.sourceLines[h.start+oldLen : h.start+oldLen+h.after] {
				result.WriteString(" " + line + "\n")
			}
		}

		hint := h.pc.chunk.hintIndex()
		placements = append(placements, placement{
			index:     h.pc.index,
			hintLine:  hint + 1,
			line:      h.start + 1,
			relocated: h.start != hint,
		})
	}

	return result.String(), placements
}

// findHunkPositions moves a chunk to where its old block is found by an
// exact normalized match. Chunks that cannot be found keep their header
// position and are not anchored.
func (d *DiffReconstructor) findHunkPositions(chunks []parsedChunk) []reconstructedHunk {
	hunks := make([]reconstructedHunk, 0, len(chunks))
	locator := Locator{Window: d.window}

	for _, pc := range sortAscending(chunks) {
		hint := pc.chunk.hintIndex()
		oldLines := pc.chunk.OldLines()
		h := reconstructedHunk{pc: pc}

		switch {
		case len(oldLines) == 0:
			h.start = min(hint, len(d.sourceLines))
			h.anchored = true
		default:
			if idx, match := locator.Locate(d.sourceLines, oldLines, hint); match == MatchExact {
				h.start = idx
				h.anchored = true
			} else {
				h.start = max(0, min(hint, len(d.sourceLines)-len(oldLines)))
			}
		}

		hunks = append(hunks, h)
	}

	sort.SliceStable(hunks, func(i, j int) bool {
		return hunks[i].start < hunks[j].start
	})
	return hunks
}

// widenContext adds up to d.widen source lines around anchored hunks
// without running into a neighbouring hunk.
func (d *DiffReconstructor) widenContext(hunks []reconstructedHunk) {
	prevEnd := 0
	for i := range hunks {
		h := &hunks[i]
		end := h.start + len(h.pc.chunk.OldLines())
		if end > len(d.sourceLines) {
			end = len(d.sourceLines)
		}

		if h.anchored && d.widen > 0 {
			nextStart := len(d.sourceLines)
			if i+1 < len(hunks) {
				nextStart = hunks[i+1].start
			}
			h.before = clamp(d.widen, 0, h.start-prevEnd)
			h.after = clamp(d.widen, 0, nextStart-end)
		}

		prevEnd = max(prevEnd, end+h.after)
	}
}

// hunkRange formats one side of a hunk header. An empty side names the line
// before it, as diff does.
func hunkRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
