package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// ErrNoHunkHeader is returned when a hunk text carries no "@@" header at all.
var ErrNoHunkHeader = errors.New("no hunk header")

// ErrMultipleHunks is returned when a single hunk text holds more than one header.
var ErrMultipleHunks = errors.New("more than one hunk header")

// ParseError is a per-chunk parse failure. It never aborts an Apply call.
type ParseError struct {
	Backend string
	Header  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Header == "" {
		return fmt.Sprintf("%s parser: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s parser: %q: %v", e.Backend, e.Header, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns the raw text of one hunk into a Chunk.
type Parser interface {
	Name() string
	Parse(text string) (Chunk, error)
}

// StructuredParser is backed by the go-diff unified diff grammar.
type StructuredParser struct{}

func (StructuredParser) Name() string { return "structured" }

func (p StructuredParser) Parse(text string) (chunk Chunk, err error) {
	lines := cleanHunkLines(text)
	header := ""
	if len(lines) > 0 {
		header = lines[0]
	}

	defer func() {
		if r := recover(); r != nil {
			chunk = Chunk{}
			err = &ParseError{Backend: p.Name(), Header: header, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if len(lines) == 0 || !isHunkHeader(lines[0]) {
		return Chunk{}, &ParseError{Backend: p.Name(), Err: ErrNoHunkHeader}
	}

	hunks, err := godiff.ParseHunks([]byte(strings.Join(lines, "\n") + "\n"))
	if err != nil {
		return Chunk{}, &ParseError{Backend: p.Name(), Header: header, Err: err}
	}
	if len(hunks) == 0 {
		return Chunk{}, &ParseError{Backend: p.Name(), Header: header, Err: ErrNoHunkHeader}
	}
	if len(hunks) > 1 {
		return Chunk{}, &ParseError{Backend: p.Name(), Header: header, Err: ErrMultipleHunks}
	}

	h := hunks[0]
	chunk = Chunk{
		OldStart: int(h.OrigStartLine),
		OldCount: int(h.OrigLines),
		NewStart: int(h.NewStartLine),
		NewCount: int(h.NewLines),
		Section:  h.Section,
		Raw:      text,
	}

	if body := strings.TrimSuffix(string(h.Body), "\n"); len(h.Body) > 0 {
		classifyBody(&chunk, strings.Split(body, "\n"))
	}

	return chunk, nil
}

var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(?: (.*))?$`)

// PatternParser is the hand-rolled fallback. It accepts the same header
// grammar as StructuredParser and is lenient about body line prefixes.
type PatternParser struct{}

func (PatternParser) Name() string { return "pattern" }

func (p PatternParser) Parse(text string) (Chunk, error) {
	lines := cleanHunkLines(text)
	if len(lines) == 0 || !isHunkHeader(lines[0]) {
		return Chunk{}, &ParseError{Backend: p.Name(), Err: ErrNoHunkHeader}
	}

	header := lines[0]
	matches := hunkHeaderRegex.FindStringSubmatch(header)
	if matches == nil {
		return Chunk{}, &ParseError{Backend: p.Name(), Header: header, Err: fmt.Errorf("malformed hunk header")}
	}

	chunk := Chunk{
		OldStart: atoiDefault(matches[1], 1),
		OldCount: atoiDefault(matches[2], 1),
		NewStart: atoiDefault(matches[3], 1),
		NewCount: atoiDefault(matches[4], 1),
		Section:  strings.TrimSpace(matches[5]),
		Raw:      text,
	}

	body := lines[1:]
	for _, line := range body {
		if isHunkHeader(line) {
			return Chunk{}, &ParseError{Backend: p.Name(), Header: header, Err: ErrMultipleHunks}
		}
	}
	classifyBody(&chunk, body)

	return chunk, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Parsers returns the backends in preference order.
func Parsers() []Parser {
	if StructuredParserAvailable {
		return []Parser{StructuredParser{}, PatternParser{}}
	}
	return []Parser{PatternParser{}}
}

// Parse parses one hunk with the first backend that accepts it. The error
// of the last backend is returned when none does.
func Parse(text string) (Chunk, error) {
	var err error
	for _, p := range Parsers() {
		var chunk Chunk
		if chunk, err = p.Parse(text); err == nil {
			return chunk, nil
		}
	}
	return Chunk{}, err
}
