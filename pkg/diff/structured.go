package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// StructuredApplicator applies chunks in-process through diff-match-patch.
// The chunks are laid over the source as one whole-file diff, so every patch
// carries real surrounding context, and the patch matcher absorbs small
// differences between what a chunk expects and what the source holds.
type StructuredApplicator struct {
	dmp    *diffmatchpatch.DiffMatchPatch
	window int
}

func NewStructuredApplicator(window int) *StructuredApplicator {
	if window <= 0 {
		window = DefaultFuzzyWindow
	}
	return &StructuredApplicator{dmp: diffmatchpatch.New(), window: window}
}

// Apply returns the patched text and relocation warnings. It fails unless
// every patch applied.
func (s *StructuredApplicator) Apply(source string, chunks []Chunk) (string, []string, error) {
	res, err := s.apply(source, indexChunks(chunks))
	if err != nil {
		return "", nil, err
	}
	return res.text, res.warnings, nil
}

type anchoredChunk struct {
	pc    parsedChunk
	at    int
	found bool
}

func (s *StructuredApplicator) apply(source string, chunks []parsedChunk) (tierResult, error) {
	input := source
	addedNewline := false
	if input != "" && !strings.HasSuffix(input, "\n") {
		input += "\n"
		addedNewline = true
	}
	lines := NewLineBuffer(input).Lines()

	res := tierResult{}
	anchored := s.anchor(lines, chunks)

	var diffs []diffmatchpatch.Diff
	cursor := 0
	for _, a := range anchored {
		chunk := a.pc.chunk
		at := max(a.at, cursor)
		if a.found {
			// delete and keep the source's own text, not the chunk's copy
			chunk = chunk.overlay(lines, at)
		}
		oldLines := chunk.OldLines()

		if at > cursor {
			diffs = append(diffs, diffmatchpatch.Diff{Type: diffmatchpatch.DiffEqual, Text: joinLines(lines[cursor:at])})
		}
		diffs = append(diffs, s.lineDiffs(joinLines(oldLines), joinLines(chunk.NewLines()))...)
		cursor = min(at+len(oldLines), len(lines))

		hint := a.pc.chunk.hintIndex()
		outcome := ChunkOutcome{Index: a.pc.index, Status: StatusApplied, Line: at + 1}
		switch {
		case a.found && at != hint:
			outcome.Status = StatusRelocated
			res.warnf("chunk %d relocated by structured match (line %d -> line %d)", a.pc.index, hint+1, at+1)
		case !a.found:
			outcome.Status = StatusRelocated
			res.warnf("chunk %d relocated by structured match (near line %d)", a.pc.index, hint+1)
		}
		res.outcomes = append(res.outcomes, outcome)
	}
	if cursor < len(lines) {
		diffs = append(diffs, diffmatchpatch.Diff{Type: diffmatchpatch.DiffEqual, Text: joinLines(lines[cursor:])})
	}

	diffs = s.dmp.DiffCleanupMerge(diffs)
	expected := s.dmp.DiffText1(diffs)
	patches := s.dmp.PatchMake(expected, diffs)

	text, applied := s.dmp.PatchApply(patches, input)
	failed := 0
	for _, ok := range applied {
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		return tierResult{}, fmt.Errorf("%d of %d patches did not apply", failed, len(applied))
	}

	if addedNewline {
		text = strings.TrimSuffix(text, "\n")
	}
	res.text = text
	return res, nil
}

// anchor places every chunk at the exact match of its old block, or at its
// header position when there is none, in ascending order.
func (s *StructuredApplicator) anchor(lines []string, chunks []parsedChunk) []anchoredChunk {
	locator := Locator{Window: s.window}
	anchored := make([]anchoredChunk, 0, len(chunks))

	for _, pc := range sortAscending(chunks) {
		hint := pc.chunk.hintIndex()
		oldLines := pc.chunk.OldLines()
		a := anchoredChunk{pc: pc, at: min(hint, len(lines)), found: len(oldLines) == 0}

		if len(oldLines) > 0 {
			if idx, match := locator.Locate(lines, oldLines, hint); match == MatchExact {
				a.at = idx
				a.found = true
			}
		}
		anchored = append(anchored, a)
	}

	sort.SliceStable(anchored, func(i, j int) bool {
		return anchored[i].at < anchored[j].at
	})
	return anchored
}

// lineDiffs diffs two texts line by line.
func (s *StructuredApplicator) lineDiffs(text1, text2 string) []diffmatchpatch.Diff {
	if text1 == text2 {
		if text1 == "" {
			return nil
		}
		return []diffmatchpatch.Diff{{Type: diffmatchpatch.DiffEqual, Text: text1}}
	}
	chars1, chars2, lineArray := s.dmp.DiffLinesToChars(text1, text2)
	return s.dmp.DiffCharsToLines(s.dmp.DiffMain(chars1, chars2, false), lineArray)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
