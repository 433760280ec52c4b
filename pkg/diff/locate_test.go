package diff

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return lines
}

func TestLocate(t *testing.T) {
	buf := numberedLines(100)

	withSpaces := numberedLines(100)
	withSpaces[9] = "   line    10  "

	farAway := numberedLines(100)
	farAway[70] = "alpha beta"

	twice := numberedLines(100)
	twice[19] = "marker"
	twice[29] = "marker"

	tests := []struct {
		name      string
		buf       []string
		window    int
		oldLines  []string
		hint      int
		wantIndex int
		wantMatch Match
	}{
		{
			name:      "exact at hint",
			buf:       buf,
			oldLines:  []string{"line 10", "line 11"},
			hint:      9,
			wantIndex: 9,
			wantMatch: MatchExact,
		},
		{
			name:      "exact after drift",
			buf:       buf,
			oldLines:  []string{"line 10", "line 11", "line 12"},
			hint:      5,
			wantIndex: 9,
			wantMatch: MatchExact,
		},
		{
			name:      "whitespace differences ignored",
			buf:       withSpaces,
			oldLines:  []string{"line 10", "line\t11"},
			hint:      9,
			wantIndex: 9,
			wantMatch: MatchExact,
		},
		{
			name:      "first line only",
			buf:       buf,
			oldLines:  []string{"line 10", "something else"},
			hint:      12,
			wantIndex: 9,
			wantMatch: MatchFirstLine,
		},
		{
			name:      "first non-blank line offsets the block",
			buf:       buf,
			oldLines:  []string{"", "line 10", "something else"},
			hint:      8,
			wantIndex: 8,
			wantMatch: MatchFirstLine,
		},
		{
			name:      "substring",
			buf:       buf,
			oldLines:  []string{"line 10 // edited", "nope"},
			hint:      9,
			wantIndex: 9,
			wantMatch: MatchSubstring,
		},
		{
			name:      "outside the window",
			buf:       farAway,
			window:    10,
			oldLines:  []string{"alpha beta"},
			hint:      9,
			wantIndex: -1,
			wantMatch: MatchNone,
		},
		{
			name:      "inside a wider window",
			buf:       farAway,
			window:    70,
			oldLines:  []string{"alpha beta"},
			hint:      9,
			wantIndex: 70,
			wantMatch: MatchExact,
		},
		{
			name:      "nearest candidate wins",
			buf:       twice,
			oldLines:  []string{"marker"},
			hint:      27,
			wantIndex: 29,
			wantMatch: MatchExact,
		},
		{
			name:      "block longer than buffer",
			buf:       numberedLines(2),
			oldLines:  []string{"line 1", "line 2", "line 3"},
			hint:      0,
			wantIndex: -1,
			wantMatch: MatchNone,
		},
		{
			name:      "blank block that is not present",
			buf:       buf,
			oldLines:  []string{"", "  "},
			hint:      3,
			wantIndex: -1,
			wantMatch: MatchNone,
		},
		{
			name:      "hint past the end",
			buf:       buf,
			oldLines:  []string{"line 99", "line 100"},
			hint:      120,
			wantIndex: 98,
			wantMatch: MatchExact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := tt.window
			if window == 0 {
				window = DefaultFuzzyWindow
			}
			idx, match := Locator{Window: window}.Locate(tt.buf, tt.oldLines, tt.hint)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantMatch, match, match.String())
		})
	}
}

func TestLocateDefaultWindow(t *testing.T) {
	buf := numberedLines(200)
	buf[120] = "target"

	_, match := Locate(buf, []string{"target"}, 60)
	assert.Equal(t, MatchNone, match)

	idx, match := Locate(buf, []string{"target"}, 75)
	assert.Equal(t, 120, idx)
	assert.Equal(t, MatchExact, match)
}
