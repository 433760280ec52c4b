package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/logger"
)

// Extractor pulls a value out of loosely structured text.
type Extractor[T any] func(text string) (T, bool)

// First runs extractors in order and returns the first value found.
func First[T any](text string, extractors ...Extractor[T]) (T, bool) {
	for _, extract := range extractors {
		if v, ok := extract(text); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// HunkExtractors are tried in order by Hunks.
var HunkExtractors = []Extractor[[]string]{
	StrictDiff,
	FencedDiff,
	JSONEnvelope,
}

// Hunks returns the hunk texts found in a generator response, or nil.
func Hunks(response string) []string {
	hunks, ok := First(response, HunkExtractors...)
	if !ok {
		logger.Debug("no hunks found in response", zap.Int("bytes", len(response)))
		return nil
	}
	logger.Debug("extracted hunks", zap.Int("count", len(hunks)))
	return hunks
}

// StrictDiff accepts text that is itself a unified diff.
func StrictDiff(text string) ([]string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "@@") &&
		!strings.HasPrefix(trimmed, "--- ") &&
		!strings.HasPrefix(trimmed, "diff ") {
		return nil, false
	}
	return headedHunks(trimmed)
}

// headedHunks splits text into hunks and keeps only those that start with a
// hunk header.
func headedHunks(text string) ([]string, bool) {
	var hunks []string
	for _, h := range diff.SplitHunks(text) {
		if strings.HasPrefix(h, "@@") {
			hunks = append(hunks, h)
		}
	}
	return hunks, len(hunks) > 0
}

func hasHunkHeaderLine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "@@") {
			return true
		}
	}
	return false
}
