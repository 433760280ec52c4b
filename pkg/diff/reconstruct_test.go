package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedChunks(t *testing.T, texts ...string) []parsedChunk {
	t.Helper()
	chunks := make([]parsedChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, parsedChunk{index: i + 1, chunk: mustParse(t, text)})
	}
	return chunks
}

func TestReconstructDiffWidensAndRecounts(t *testing.T) {
	source := numberedSource(20)
	chunks := parsedChunks(t,
		// header miscounts the body and points two lines too low
		"@@ -12,9 +12,9 @@\n line 10\n-line 11\n+eleven\n+eleven again\n",
	)

	doc, placements := NewDiffReconstructor(source, "src.py", DefaultFuzzyWindow, 3).ReconstructDiff(chunks)

	want := "--- a/src.py\n" +
		"+++ b/src.py\n" +
		"@@ -7,8 +7,9 @@\n" +
		" line 7\n line 8\n line 9\n" +
		" line 10\n-line 11\n+eleven\n+eleven again\n" +
		" line 12\n line 13\n line 14\n"
	assert.Equal(t, want, doc)

	require.Len(t, placements, 1)
	assert.Equal(t, placement{index: 1, hintLine: 12, line: 10, relocated: true}, placements[0])
}

func TestReconstructDiffRunningOffset(t *testing.T) {
	source := numberedSource(30)
	chunks := parsedChunks(t,
		"@@ -20,1 +20,1 @@\n-line 20\n+twenty\n",
		"@@ -5,1 +5,3 @@\n-line 5\n+five\n+5\n+V\n",
	)

	doc, placements := NewDiffReconstructor(source, "f", DefaultFuzzyWindow, 0).ReconstructDiff(chunks)

	want := "--- a/f\n" +
		"+++ b/f\n" +
		"@@ -5 +5,3 @@\n-line 5\n+five\n+5\n+V\n" +
		"@@ -20 +22 @@\n-line 20\n+twenty\n"
	assert.Equal(t, want, doc)

	require.Len(t, placements, 2)
	assert.Equal(t, 2, placements[0].index)
	assert.Equal(t, 1, placements[1].index)
}

func TestReconstructDiffDoesNotWidenIntoNeighbour(t *testing.T) {
	source := numberedSource(20)
	chunks := parsedChunks(t,
		"@@ -5,1 +5,1 @@\n-line 5\n+five\n",
		"@@ -8,1 +8,1 @@\n-line 8\n+eight\n",
	)

	doc, _ := NewDiffReconstructor(source, "f", DefaultFuzzyWindow, 3).ReconstructDiff(chunks)

	want := "--- a/f\n" +
		"+++ b/f\n" +
		"@@ -2,6 +2,6 @@\n line 2\n line 3\n line 4\n-line 5\n+five\n line 6\n line 7\n" +
		"@@ -8,4 +8,4 @@\n-line 8\n+eight\n line 9\n line 10\n line 11\n"
	assert.Equal(t, want, doc)
}

func TestReconstructDiffUnanchoredKeepsHeaderPosition(t *testing.T) {
	source := numberedSource(10)
	chunks := parsedChunks(t, "@@ -4,1 +4,1 @@\n-not in the file\n+replacement\n")

	doc, placements := NewDiffReconstructor(source, "f", DefaultFuzzyWindow, 3).ReconstructDiff(chunks)

	assert.Equal(t, "--- a/f\n+++ b/f\n@@ -4 +4 @@\n-not in the file\n+replacement\n", doc)
	assert.False(t, placements[0].relocated)
}

func TestReconstructDiffPureInsertion(t *testing.T) {
	source := numberedSource(10)
	chunks := parsedChunks(t, "@@ -4,0 +5,1 @@\n+inserted\n")

	doc, _ := NewDiffReconstructor(source, "f", DefaultFuzzyWindow, 2).ReconstructDiff(chunks)

	assert.Equal(t, "--- a/f\n+++ b/f\n@@ -3,4 +3,5 @@\n line 3\n line 4\n+inserted\n line 5\n line 6\n", doc)
}

func TestHunkRange(t *testing.T) {
	assert.Equal(t, "4,0", hunkRange(5, 0))
	assert.Equal(t, "5", hunkRange(5, 1))
	assert.Equal(t, "5,3", hunkRange(5, 3))
}
