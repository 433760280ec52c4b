package diff

import (
	"strings"
)

// DefaultFuzzyWindow is how many lines either side of the hinted line the
// locator searches.
const DefaultFuzzyWindow = 50

// Match is the strategy that located a block.
type Match int

const (
	MatchNone Match = iota
	MatchExact
	MatchFirstLine
	MatchSubstring
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFirstLine:
		return "first-line"
	case MatchSubstring:
		return "substring"
	}
	return "none"
}

// Locator finds where a chunk's old block sits in a buffer.
type Locator struct {
	Window int
}

// Locate uses the default window.
func Locate(buf []string, oldLines []string, hint int) (int, Match) {
	return Locator{Window: DefaultFuzzyWindow}.Locate(buf, oldLines, hint)
}

// Locate returns the 0-based index of the block start. Candidates are
// visited outward from hint so the nearest hit wins within a strategy. It
// returns (-1, MatchNone) when nothing in the window matches.
func (l Locator) Locate(buf []string, oldLines []string, hint int) (int, Match) {
	n := len(oldLines)
	if n == 0 || n > len(buf) {
		return -1, MatchNone
	}

	window := l.Window
	if window < 0 {
		window = 0
	}
	lo := max(0, hint-window)
	hi := min(len(buf)-n, hint+window)
	if lo > hi {
		return -1, MatchNone
	}

	normBuf := make([]string, len(buf))
	for i := lo; i < hi+n; i++ {
		normBuf[i] = normalizeLineForMatching(buf[i])
	}
	normOld := normalizeLines(oldLines)

	if idx := scanOutward(hint, lo, hi, func(i int) bool {
		for j, want := range normOld {
			if normBuf[i+j] != want {
				return false
			}
		}
		return true
	}); idx >= 0 {
		return idx, MatchExact
	}

	pos, first := firstNonBlank(normOld)
	if pos < 0 {
		return -1, MatchNone
	}

	if idx := scanOutward(hint, lo, hi, func(i int) bool {
		return normBuf[i+pos] == first
	}); idx >= 0 {
		return idx, MatchFirstLine
	}

	if idx := scanOutward(hint, lo, hi, func(i int) bool {
		candidate := normBuf[i+pos]
		if candidate == "" {
			return false
		}
		return strings.Contains(candidate, first) || strings.Contains(first, candidate)
	}); idx >= 0 {
		return idx, MatchSubstring
	}

	return -1, MatchNone
}

// scanOutward visits hint, hint+1, hint-1, hint+2, ... within [lo, hi] and
// returns the first index for which match holds, or -1.
func scanOutward(hint, lo, hi int, match func(int) bool) int {
	for radius := 0; ; radius++ {
		below := hint + radius
		if below >= lo && below <= hi && match(below) {
			return below
		}

		above := hint - radius
		if radius > 0 && above >= lo && above <= hi && match(above) {
			return above
		}

		if below > hi && above < lo {
			return -1
		}
	}
}

func firstNonBlank(lines []string) (int, string) {
	for i, line := range lines {
		if line != "" {
			return i, line
		}
	}
	return -1, ""
}
