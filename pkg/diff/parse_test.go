package diff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredParserAvailable(t *testing.T) {
	assert.True(t, StructuredParserAvailable)
	assert.Len(t, Parsers(), 2)
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Chunk
		oldLine []string
		newLine []string
	}{
		{
			name:    "full counts",
			text:    "@@ -3,2 +3,3 @@\n a\n-b\n+c\n+d\n",
			want:    Chunk{OldStart: 3, OldCount: 2, NewStart: 3, NewCount: 3},
			oldLine: []string{"a", "b"},
			newLine: []string{"a", "c", "d"},
		},
		{
			name:    "omitted counts default to one",
			text:    "@@ -7 +7 @@\n-x\n+y",
			want:    Chunk{OldStart: 7, OldCount: 1, NewStart: 7, NewCount: 1},
			oldLine: []string{"x"},
			newLine: []string{"y"},
		},
		{
			name:    "section text",
			text:    "@@ -1,1 +1,1 @@ def main():\n-pass\n+return 1",
			want:    Chunk{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1, Section: "def main():"},
			oldLine: []string{"pass"},
			newLine: []string{"return 1"},
		},
		{
			name:    "pure insertion",
			text:    "@@ -10,0 +11,2 @@\n+one\n+two\n",
			want:    Chunk{OldStart: 10, OldCount: 0, NewStart: 11, NewCount: 2},
			oldLine: []string{},
			newLine: []string{"one", "two"},
		},
		{
			name:    "crlf and file headers",
			text:    "--- a/x.py\r\n+++ b/x.py\r\n@@ -1,2 +1,2 @@\r\n a\r\n-b\r\n+B\r\n",
			want:    Chunk{OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 2},
			oldLine: []string{"a", "b"},
			newLine: []string{"a", "B"},
		},
		{
			name:    "no newline marker dropped",
			text:    "@@ -1 +1 @@\n-old\n\\ No newline at end of file\n+new\n\\ No newline at end of file\n",
			want:    Chunk{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1},
			oldLine: []string{"old"},
			newLine: []string{"new"},
		},
		{
			name:    "empty body line is empty context",
			text:    "@@ -1,3 +1,3 @@\n a\n\n-c\n+C\n",
			want:    Chunk{OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 3},
			oldLine: []string{"a", "", "c"},
			newLine: []string{"a", "", "C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := Parse(tt.text)
			require.NoError(t, err)

			assert.Equal(t, tt.want.OldStart, chunk.OldStart)
			assert.Equal(t, tt.want.OldCount, chunk.OldCount)
			assert.Equal(t, tt.want.NewStart, chunk.NewStart)
			assert.Equal(t, tt.want.NewCount, chunk.NewCount)
			assert.Equal(t, tt.want.Section, chunk.Section)
			assert.Equal(t, tt.oldLine, chunk.OldLines())
			assert.Equal(t, tt.newLine, chunk.NewLines())
			assert.Equal(t, tt.text, chunk.Raw)
		})
	}
}

func TestParseLineLists(t *testing.T) {
	chunk, err := Parse("@@ -1,4 +1,4 @@\n keep\n-drop one\n-drop two\n+add\n+add more\n tail\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"keep", "tail"}, chunk.ContextLines)
	assert.Equal(t, []string{"drop one", "drop two"}, chunk.RemovedLines)
	assert.Equal(t, []string{"add", "add more"}, chunk.AddedLines)
	require.Len(t, chunk.Body, 6)
	assert.Equal(t, Line{Op: OpRemove, Text: "drop one"}, chunk.Body[1])
	assert.False(t, chunk.IsInsertion())
	assert.False(t, chunk.IsDeletion())
}

func TestParserEquivalence(t *testing.T) {
	hunks := []string{
		"@@ -3,2 +3,3 @@\n a\n-b\n+c\n+d\n",
		"@@ -1 +1 @@\n-x\n+y",
		"@@ -10,0 +11,2 @@\n+one\n+two",
		"@@ -5,3 +5,0 @@\n-gone\n-also gone\n-and this\n",
		"@@ -1,3 +1,3 @@ class Foo:\n     def bar(self):\n-        return 1\n+        return 2\n",
		"@@ -2,3 +2,3 @@\n a\n\n-c\n+C\n",
		"--- a/f.sql\n+++ b/f.sql\n@@ -1,2 +1,2 @@\n SELECT *\n-FROM a\n+FROM b\n",
		"@@ -1,2 +1,2 @@\r\n a\r\n-b\r\n+c\r\n",
	}

	for _, text := range hunks {
		structured, err := StructuredParser{}.Parse(text)
		require.NoError(t, err, text)
		pattern, err := PatternParser{}.Parse(text)
		require.NoError(t, err, text)

		assert.Equal(t, structured, pattern, text)
	}
}

func TestParseMalformedHeader(t *testing.T) {
	for _, text := range []string{
		"@@ -x,y +z @@\n-a\n+b",
		"@@ garbage\n a",
		"@@ -1,2 +1,2\n a",
		"no header at all\n-a\n+b",
		"",
	} {
		_, err := Parse(text)
		require.Error(t, err, text)

		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), text)
		assert.Equal(t, "pattern", parseErr.Backend)
	}

	_, err := Parse("just words")
	assert.ErrorIs(t, err, ErrNoHunkHeader)
}

func TestPatternParserLenientPrefix(t *testing.T) {
	text := "@@ -1,3 +1,3 @@\n a\nb without prefix\n-c\n+C\n"

	_, err := StructuredParser{}.Parse(text)
	require.Error(t, err)

	chunk, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b without prefix", "c"}, chunk.OldLines())
	assert.Equal(t, []string{"a", "b without prefix", "C"}, chunk.NewLines())
}

func TestPatternParserRejectsSecondHeader(t *testing.T) {
	_, err := PatternParser{}.Parse("@@ -1 +1 @@\n-a\n+b\n@@ -5 +5 @@\n-c\n+d\n")
	assert.ErrorIs(t, err, ErrMultipleHunks)

	_, err = StructuredParser{}.Parse("@@ -1 +1 @@\n-a\n+b\n@@ -5 +5 @@\n-c\n+d\n")
	assert.ErrorIs(t, err, ErrMultipleHunks)
}

func TestSplitHunks(t *testing.T) {
	text := "diff --git a/x b/x\nindex 123..456 100644\n--- a/x\n+++ b/x\n@@ -1,2 +1,2 @@\n a\n-b\n+B\n@@ -10 +10 @@\n-j\n+J\n\n"

	hunks := SplitHunks(text)
	require.Len(t, hunks, 2)
	assert.Equal(t, "@@ -1,2 +1,2 @@\n a\n-b\n+B", hunks[0])
	assert.Equal(t, "@@ -10 +10 @@\n-j\n+J", hunks[1])

	assert.Nil(t, SplitHunks("  \n\n"))
	assert.Equal(t, []string{"-a\n+b"}, SplitHunks("-a\n+b\n"))
	assert.Equal(t, []string{"@@ -1 +1 @@\n-a\n+b"}, SplitHunks("Here is the fix:\n@@ -1 +1 @@\n-a\n+b\n"))
}

func TestChunkHintIndex(t *testing.T) {
	insertion, err := Parse("@@ -10,0 +11,2 @@\n+a\n+b")
	require.NoError(t, err)
	assert.True(t, insertion.IsInsertion())
	assert.Equal(t, 10, insertion.hintIndex())

	replace, err := Parse("@@ -10,1 +10,1 @@\n-a\n+b")
	require.NoError(t, err)
	assert.Equal(t, 9, replace.hintIndex())

	atTop, err := Parse("@@ -0,0 +1 @@\n+first")
	require.NoError(t, err)
	assert.Equal(t, 0, atTop.hintIndex())
}
