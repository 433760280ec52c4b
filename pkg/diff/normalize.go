package diff

import (
	"strings"
)

const noNewlineMarker = `\ No newline at end of file`

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// normalizeLineForMatching trims a line and collapses every internal
// whitespace run to a single space.
func normalizeLineForMatching(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

func normalizeLines(lines []string) []string {
	normalized := make([]string, len(lines))
	for i, line := range lines {
		normalized[i] = normalizeLineForMatching(line)
	}
	return normalized
}

func isHunkHeader(line string) bool {
	return strings.HasPrefix(line, "@@")
}

// isFileHeaderAt reports whether lines[i] starts a file header block
// ("diff --git", "index ...", or a "---" line directly followed by "+++").
func isFileHeaderAt(lines []string, i int) bool {
	line := lines[i]
	switch {
	case strings.HasPrefix(line, "diff --git "), strings.HasPrefix(line, "index "):
		return true
	case strings.HasPrefix(line, "--- "):
		return i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ")
	case strings.HasPrefix(line, "+++ "):
		return i > 0 && strings.HasPrefix(lines[i-1], "--- ")
	}
	return false
}

// SplitHunks splits text holding one or more hunks into self-contained hunk
// texts, each starting at its "@@" header. File header lines are dropped. A
// text without any header is returned as a single element so that parsing
// can report it.
func SplitHunks(text string) []string {
	text = normalizeLineEndings(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	var hunks []string
	var current []string
	sawHeader := false

	flush := func() {
		if len(current) > 0 {
			hunks = append(hunks, strings.Join(trimTrailingEmpty(current), "\n"))
		}
		current = nil
	}

	for i, line := range lines {
		if isHunkHeader(line) {
			flush()
			sawHeader = true
			current = append(current, line)
			continue
		}
		if isFileHeaderAt(lines, i) {
			flush()
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	flush()

	if !sawHeader {
		return []string{strings.TrimRight(text, "\n")}
	}
	return hunks
}

// cleanHunkLines prepares raw hunk text for either parser backend: line
// endings are normalized, anything before the first header is dropped,
// "\ No newline" markers are removed and trailing blank lines trimmed. Both
// backends see the same lines, which keeps their output identical.
func cleanHunkLines(raw string) []string {
	lines := strings.Split(normalizeLineEndings(raw), "\n")

	start := -1
	for i, line := range lines {
		if isHunkHeader(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return trimTrailingEmpty(lines)
	}

	cleaned := make([]string, 0, len(lines)-start)
	cleaned = append(cleaned, strings.TrimRight(lines[start], " \t"))
	for _, line := range lines[start+1:] {
		if line == noNewlineMarker {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return trimTrailingEmpty(cleaned)
}

func trimTrailingEmpty(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

// classifyBody sorts hunk body lines into the chunk's line lists. Lines with
// an unknown prefix are kept as context lines whose leading space was lost.
func classifyBody(chunk *Chunk, body []string) {
	for _, line := range body {
		if line == "" {
			chunk.appendLine(OpContext, "")
			continue
		}
		switch LineOp(line[0]) {
		case OpContext:
			chunk.appendLine(OpContext, line[1:])
		case OpRemove:
			chunk.appendLine(OpRemove, line[1:])
		case OpAdd:
			chunk.appendLine(OpAdd, line[1:])
		default:
			chunk.appendLine(OpContext, line)
		}
	}
}

func (c *Chunk) appendLine(op LineOp, text string) {
	c.Body = append(c.Body, Line{Op: op, Text: text})
	switch op {
	case OpContext:
		c.ContextLines = append(c.ContextLines, text)
	case OpRemove:
		c.RemovedLines = append(c.RemovedLines, text)
	case OpAdd:
		c.AddedLines = append(c.AddedLines, text)
	}
}
