package corpus

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

// SynthesizeOptions controls case synthesis.
type SynthesizeOptions struct {
	Name     string
	Language syntax.Language
	Seed     int64
	Count    int
	// MaxEdits is the upper bound of random edits per case.
	MaxEdits int
	// Drift shifts every hunk header by a random offset in [-Drift, Drift].
	Drift int
	// Context is the number of context lines around each hunk.
	Context int
}

// Synthesize derives cases from source by making random edits, diffing the
// result against source and shifting the hunk headers the way a generator's
// coordinates drift.
func Synthesize(source string, opts SynthesizeOptions) ([]Case, error) {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	if opts.MaxEdits <= 0 {
		opts.MaxEdits = 3
	}
	if opts.Context <= 0 {
		opts.Context = 3
	}
	if opts.Name == "" {
		opts.Name = "synthetic"
	}

	cases := make([]Case, 0, opts.Count)
	for i := 0; len(cases) < opts.Count; i++ {
		if i >= opts.Count*10 {
			return nil, errors.Errorf("only %d of %d cases produced a change", len(cases), opts.Count)
		}

		rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
		m := NewMutator(rng, source, opts.Language)
		m.Mutate(1 + rng.Intn(opts.MaxEdits))

		target := strings.Join(m.Lines(), "\n")
		if strings.HasSuffix(source, "\n") {
			target += "\n"
		}
		if target == source {
			continue
		}

		hunks, err := unifiedHunks(source, target, opts.Context)
		if err != nil {
			return nil, err
		}
		if len(hunks) == 0 {
			continue
		}
		for j := range hunks {
			hunks[j] = shiftHeader(hunks[j], randomOffset(rng, opts.Drift))
		}

		cases = append(cases, Case{
			Name:     fmt.Sprintf("%s-%03d", opts.Name, len(cases)+1),
			Language: opts.Language.String(),
			Source:   source,
			Hunks:    hunks,
			Expected: target,
		})
	}
	return cases, nil
}

// unifiedHunks returns the hunks of a unified diff from a to b.
func unifiedHunks(a, b string, context int) ([]string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(a),
		B:        diffLines(b),
		FromFile: "a/source",
		ToFile:   "b/source",
		Context:  context,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to diff case")
	}

	var hunks []string
	for _, h := range diff.SplitHunks(text) {
		if strings.HasPrefix(h, "@@") {
			hunks = append(hunks, h)
		}
	}
	return hunks, nil
}

// diffLines splits s into newline-terminated lines.
func diffLines(s string) []string {
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	lines := strings.SplitAfter(s, "\n")
	return lines[:len(lines)-1]
}

func randomOffset(rng *rand.Rand, drift int) int {
	if drift <= 0 {
		return 0
	}
	return rng.Intn(2*drift+1) - drift
}

var headerRangeRegex = regexp.MustCompile(`^@@ -(\d+)((?:,\d+)?) \+(\d+)((?:,\d+)?) @@`)

// shiftHeader moves both start lines of a hunk header by offset, never below
// line 1.
func shiftHeader(hunk string, offset int) string {
	if offset == 0 {
		return hunk
	}
	header, body, hasBody := strings.Cut(hunk, "\n")
	m := headerRangeRegex.FindStringSubmatch(header)
	if m == nil {
		return hunk
	}

	shift := func(s string) string {
		n, _ := strconv.Atoi(s)
		if n == 0 {
			return s
		}
		return strconv.Itoa(max(1, n+offset))
	}
	shifted := fmt.Sprintf("@@ -%s%s +%s%s @@", shift(m[1]), m[2], shift(m[3]), m[4]) + header[len(m[0]):]

	if !hasBody {
		return shifted
	}
	return shifted + "\n" + body
}
