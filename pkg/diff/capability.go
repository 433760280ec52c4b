package diff

import (
	godiff "github.com/sourcegraph/go-diff/diff"
)

const canaryHunk = "@@ -1,2 +1,2 @@\n a\n-b\n+c\n"

// StructuredParserAvailable is resolved once at package init by parsing a
// known hunk through go-diff. It is read-only afterwards.
var StructuredParserAvailable = probeStructuredParser()

func probeStructuredParser() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	hunks, err := godiff.ParseHunks([]byte(canaryHunk))
	if err != nil || len(hunks) != 1 {
		return false
	}
	h := hunks[0]
	return h.OrigStartLine == 1 && h.OrigLines == 2 && h.NewStartLine == 1 && h.NewLines == 2
}
