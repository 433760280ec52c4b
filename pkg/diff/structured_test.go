package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredApplicator(t *testing.T) {
	source := numberedSource(40)

	tests := []struct {
		name     string
		source   string
		hunks    []string
		want     string
		warnings int
	}{
		{
			name:   "exact replacement",
			source: source,
			hunks:  []string{"@@ -5,3 +5,3 @@\n line 5\n-line 6\n+six\n line 7\n"},
			want:   strings.Replace(source, "line 6\n", "six\n", 1),
		},
		{
			name:     "drifted chunk is anchored by content",
			source:   source,
			hunks:    []string{"@@ -12,3 +12,3 @@\n line 5\n-line 6\n+six\n line 7\n"},
			want:     strings.Replace(source, "line 6\n", "six\n", 1),
			warnings: 1,
		},
		{
			name:   "reindented chunk keeps source indentation",
			source: "def f():\n    x = 1\n    y = 2\n    return x + y\n",
			hunks:  []string{"@@ -2,2 +2,2 @@\n x = 1\n-y = 2\n+    y = 3\n"},
			want:   "def f():\n    x = 1\n    y = 3\n    return x + y\n",
		},
		{
			name:   "insertion and deletion",
			source: source,
			hunks: []string{
				"@@ -30,2 +30,1 @@\n line 30\n-line 31\n",
				"@@ -2,0 +3,2 @@\n+two and a bit\n+two and more\n",
			},
			want: strings.Replace(strings.Replace(source, "line 31\n", "", 1), "line 2\n", "line 2\ntwo and a bit\ntwo and more\n", 1),
		},
		{
			name:   "no trailing newline",
			source: "a\nb\nc",
			hunks:  []string{"@@ -3 +3 @@\n-c\n+C\n"},
			want:   "a\nb\nC",
		},
		{
			name:   "empty source",
			source: "",
			hunks:  []string{"@@ -0,0 +1,2 @@\n+x\n+y\n"},
			want:   "x\ny\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chunks []Chunk
			for _, h := range tt.hunks {
				chunks = append(chunks, mustParse(t, h))
			}

			text, warnings, err := NewStructuredApplicator(DefaultFuzzyWindow).Apply(tt.source, chunks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}
