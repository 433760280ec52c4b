package diff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/replicatedhq/patchsmith/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultExternalTimeout = 10 * time.Second
	DefaultMinLengthRatio  = 1.0
	DefaultFileName        = "source"
)

// ErrToolNotFound is returned when a patch tool is not on PATH.
var ErrToolNotFound = errors.New("patch tool not found")

// ToolError describes one failed tool invocation.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s exited with code %d: %v", e.Tool, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExternalToolApplier applies chunks with GNU patch, falling back to git apply.
type ExternalToolApplier struct {
	Timeout        time.Duration
	MinLengthRatio float64
	Window         int
	Widen          int
	FileName       string
}

type patchTool struct {
	name string
	args func(file, doc, out, rej string) []string
	// result is the file the tool leaves the patched text in.
	result func(file, out string) string
}

var patchTools = []patchTool{
	{
		name: "patch",
		args: func(file, doc, out, rej string) []string {
			return []string{"-p1", "-u", "-N", "-l", "-F3", "--batch", "--no-backup-if-mismatch", "-r", rej, "-o", out, "-i", doc, file}
		},
		result: func(file, out string) string { return out },
	},
	{
		name: "git",
		args: func(file, doc, out, rej string) []string {
			return []string{"apply", "-p1", "--ignore-whitespace", "--recount", "--verbose", doc}
		},
		result: func(file, out string) string { return file },
	},
}

// "Hunk #2 succeeded at 14 (offset 4 lines)." or "... with fuzz 1 (offset -2 lines)."
var hunkOffsetRegex = regexp.MustCompile(`Hunk #(\d+) succeeded at (\d+)(?: with fuzz \d+)?(?: \(offset (-?\d+) lines?\))?`)

// Apply runs the tools against a copy of source in a temp dir and returns
// the patched text and relocation warnings.
func (a *ExternalToolApplier) Apply(ctx context.Context, source string, chunks []Chunk) (string, []string, error) {
	res, err := a.apply(ctx, source, indexChunks(chunks))
	if err != nil {
		return "", nil, err
	}
	return res.text, res.warnings, nil
}

func (a *ExternalToolApplier) apply(ctx context.Context, source string, chunks []parsedChunk) (tierResult, error) {
	fileName := a.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}

	dir, err := os.MkdirTemp("", "patchsmith-")
	if err != nil {
		return tierResult{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// tools need a final newline to apply hunks touching the last line
	input := source
	addedNewline := false
	if input != "" && !strings.HasSuffix(input, "\n") {
		input += "\n"
		addedNewline = true
	}

	doc, placements := NewDiffReconstructor(input, fileName, a.Window, a.Widen).ReconstructDiff(chunks)
	docPath := filepath.Join(dir, "chunks.patch")
	if err := os.WriteFile(docPath, []byte(doc), 0644); err != nil {
		return tierResult{}, fmt.Errorf("write patch document: %w", err)
	}

	var errs []error
	for _, tool := range patchTools {
		text, output, err := a.runTool(ctx, tool, dir, fileName, input)
		if err != nil {
			logger.Debug("patch tool failed", zap.String("tool", tool.name), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		if float64(len(text)) < a.minLengthRatio()*float64(len(input)) {
			err := &ToolError{Tool: tool.name, Err: fmt.Errorf("result shorter than input (%d < %d bytes)", len(text), len(input))}
			logger.Debug("patch tool result rejected", zap.String("tool", tool.name), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		if addedNewline {
			text = strings.TrimSuffix(text, "\n")
		}

		res := tierResult{text: text}
		res.outcomes, res.warnings = toolOutcomes(tool.name, output, placements)
		return res, nil
	}

	return tierResult{}, errors.Join(errs...)
}

func (a *ExternalToolApplier) minLengthRatio() float64 {
	if a.MinLengthRatio <= 0 {
		return DefaultMinLengthRatio
	}
	return a.MinLengthRatio
}

func (a *ExternalToolApplier) timeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultExternalTimeout
	}
	return a.Timeout
}

// runTool writes a fresh copy of the source and runs one tool over it.
func (a *ExternalToolApplier) runTool(ctx context.Context, tool patchTool, dir, fileName, input string) (string, string, error) {
	bin, err := exec.LookPath(tool.name)
	if err != nil {
		return "", "", &ToolError{Tool: tool.name, Err: ErrToolNotFound}
	}

	file := filepath.Join(dir, fileName)
	if err := os.WriteFile(file, []byte(input), 0644); err != nil {
		return "", "", fmt.Errorf("write source: %w", err)
	}
	out := filepath.Join(dir, fileName+".out")
	rej := filepath.Join(dir, fileName+".rej")
	_ = os.Remove(out)

	toolCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	cmd := exec.CommandContext(toolCtx, bin, tool.args(fileName, "chunks.patch", filepath.Base(out), filepath.Base(rej))...)
	cmd.Dir = dir
	// keep git from discovering a repository above the temp dir
	cmd.Env = append(os.Environ(), "GIT_CEILING_DIRECTORIES="+filepath.Dir(dir))

	output, err := cmd.CombinedOutput()
	if toolCtx.Err() != nil {
		return "", string(output), &ToolError{Tool: tool.name, Output: string(output), Err: toolCtx.Err()}
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", string(output), &ToolError{Tool: tool.name, ExitCode: exitCode, Output: string(output), Err: err}
	}

	result, err := os.ReadFile(tool.result(file, out))
	if err != nil {
		return "", string(output), &ToolError{Tool: tool.name, Output: string(output), Err: fmt.Errorf("read result: %w", err)}
	}

	return string(result), string(output), nil
}

// toolOutcomes turns the document placements and the tool's offset reports
// into per-chunk outcomes and warnings.
func toolOutcomes(tool, output string, placements []placement) ([]ChunkOutcome, []string) {
	offsets := map[int]int{}
	for _, m := range hunkOffsetRegex.FindAllStringSubmatch(output, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if m[3] != "" && m[3] != "0" {
			offsets[n] = line
		}
	}

	outcomes := make([]ChunkOutcome, 0, len(placements))
	var warnings []string
	for i, p := range placements {
		outcome := ChunkOutcome{Index: p.index, Status: StatusApplied, Line: p.line}
		if line, ok := offsets[i+1]; ok {
			outcome.Status = StatusRelocated
			warnings = append(warnings, fmt.Sprintf("chunk %d relocated by %s (line %d -> line %d)", p.index, tool, p.hintLine, line))
			outcome.Line = line
		} else if p.relocated {
			outcome.Status = StatusRelocated
			warnings = append(warnings, fmt.Sprintf("chunk %d relocated by exact match (line %d -> line %d)", p.index, p.hintLine, p.line))
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, warnings
}

func indexChunks(chunks []Chunk) []parsedChunk {
	parsed := make([]parsedChunk, len(chunks))
	for i, c := range chunks {
		parsed[i] = parsedChunk{index: i + 1, chunk: c}
	}
	return parsed
}
