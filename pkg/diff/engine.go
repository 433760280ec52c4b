package diff

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/replicatedhq/patchsmith/pkg/logger"
	"go.uber.org/zap"
)

// Options tunes an Engine. Zero values fall back to the defaults; a
// negative ContextWiden turns widening off.
type Options struct {
	FuzzyWindow     int
	ExternalTimeout time.Duration
	MinLengthRatio  float64
	ContextWiden    int
	FileName        string

	DisableExternal   bool
	DisableStructured bool
}

func DefaultOptions() Options {
	return Options{
		FuzzyWindow:     DefaultFuzzyWindow,
		ExternalTimeout: DefaultExternalTimeout,
		MinLengthRatio:  DefaultMinLengthRatio,
		ContextWiden:    DefaultContextWiden,
		FileName:        DefaultFileName,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FuzzyWindow <= 0 {
		o.FuzzyWindow = d.FuzzyWindow
	}
	if o.ExternalTimeout <= 0 {
		o.ExternalTimeout = d.ExternalTimeout
	}
	if o.MinLengthRatio <= 0 {
		o.MinLengthRatio = d.MinLengthRatio
	}
	switch {
	case o.ContextWiden == 0:
		o.ContextWiden = d.ContextWiden
	case o.ContextWiden < 0:
		o.ContextWiden = 0
	}
	if o.FileName == "" {
		o.FileName = d.FileName
	}
	return o
}

// Engine applies hunks to a source text through a fixed order of tiers.
type Engine struct {
	opts       Options
	external   *ExternalToolApplier
	structured *StructuredApplicator
}

func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts: opts,
		external: &ExternalToolApplier{
			Timeout:        opts.ExternalTimeout,
			MinLengthRatio: opts.MinLengthRatio,
			Window:         opts.FuzzyWindow,
			Widen:          opts.ContextWiden,
			FileName:       opts.FileName,
		},
		structured: NewStructuredApplicator(opts.FuzzyWindow),
	}
}

func (e *Engine) Options() Options {
	return e.opts
}

var defaultEngine = NewEngine(DefaultOptions())

// Apply applies chunkTexts to source with the default engine.
func Apply(ctx context.Context, source string, chunkTexts []string) ApplyResult {
	return defaultEngine.Apply(ctx, source, chunkTexts)
}

// tierResult is what a single tier produces on success.
type tierResult struct {
	text     string
	outcomes []ChunkOutcome
	warnings []string
}

func (r *tierResult) warnf(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

type tier struct {
	name Tier
	run  func(ctx context.Context, source string, chunks []parsedChunk) (tierResult, error)
}

// Apply never fails. When no tier produces a result, the source comes back
// unchanged with TierIdentity.
func (e *Engine) Apply(ctx context.Context, source string, chunkTexts []string) (result ApplyResult) {
	start := time.Now()
	result = ApplyResult{
		Success: true,
		Text:    source,
		Tier:    TierIdentity,
	}
	defer func() {
		result.Duration = time.Since(start)
	}()

	normalized := normalizeLineEndings(source)
	crlf := strings.Contains(source, "\r\n")

	var parseOutcomes []ChunkOutcome
	chunks := e.parseAll(chunkTexts, &result, &parseOutcomes)
	result.Outcomes = parseOutcomes

	if len(chunks) == 0 {
		logger.Debug("no chunks to apply", zap.Int("total", result.ChunksTotal))
		return result
	}

	for _, t := range e.tiers() {
		if err := ctx.Err(); err != nil {
			logger.Warn("apply cancelled", zap.Error(err))
			break
		}

		logger.Debug("trying tier", zap.String("tier", string(t.name)), zap.Int("chunks", len(chunks)))
		res, err := runTier(ctx, t, normalized, chunks)
		if err != nil {
			logger.Debug("tier failed", zap.String("tier", string(t.name)), zap.Error(err))
			continue
		}

		result.Text = res.text
		if crlf {
			result.Text = strings.ReplaceAll(res.text, "\n", "\r\n")
		}
		result.Tier = t.name
		result.Warnings = append(result.Warnings, res.warnings...)
		result.Outcomes = mergeOutcomes(parseOutcomes, res.outcomes)
		result.ChunksApplied = countApplied(res.outcomes)

		for _, w := range result.Warnings {
			logger.Warn(w, zap.String("tier", string(t.name)))
		}
		logger.Debug("tier succeeded",
			zap.String("tier", string(t.name)),
			zap.Int("applied", result.ChunksApplied),
			zap.Int("total", result.ChunksTotal))
		return result
	}

	result.Warnings = append(result.Warnings, "no tier could apply the chunks, returning the source unchanged")
	return result
}

func (e *Engine) tiers() []tier {
	var tiers []tier
	if !e.opts.DisableExternal {
		tiers = append(tiers, tier{name: TierExternal, run: e.external.apply})
	}
	if !e.opts.DisableStructured && StructuredParserAvailable {
		tiers = append(tiers, tier{name: TierStructured, run: func(_ context.Context, source string, chunks []parsedChunk) (tierResult, error) {
			return e.structured.apply(source, chunks)
		}})
	}
	tiers = append(tiers, tier{name: TierManual, run: func(_ context.Context, source string, chunks []parsedChunk) (tierResult, error) {
		return applyManual(source, chunks, e.opts.FuzzyWindow), nil
	}})
	return tiers
}

// runTier converts a panic inside a tier into an error.
func runTier(ctx context.Context, t tier, source string, chunks []parsedChunk) (res tierResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("tier panicked", zap.String("tier", string(t.name)), zap.String("stack", string(debug.Stack())))
			res = tierResult{}
			err = fmt.Errorf("%s tier panicked: %v", t.name, r)
		}
	}()
	return t.run(ctx, source, chunks)
}

// parseAll expands every input with SplitHunks and parses each hunk.
// Failures are recorded on the result and the hunk is dropped.
func (e *Engine) parseAll(chunkTexts []string, result *ApplyResult, outcomes *[]ChunkOutcome) []parsedChunk {
	var chunks []parsedChunk
	index := 0
	for _, text := range chunkTexts {
		for _, hunkText := range SplitHunks(text) {
			index++
			chunk, err := parseSafely(hunkText)
			if err != nil {
				result.warnf("chunk %d: parse failure: %v", index, err)
				*outcomes = append(*outcomes, ChunkOutcome{Index: index, Status: StatusParseFailed})
				continue
			}
			chunks = append(chunks, parsedChunk{index: index, chunk: chunk})
		}
	}
	result.ChunksTotal = index
	return chunks
}

func parseSafely(text string) (chunk Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunk = Chunk{}
			err = &ParseError{Backend: "pattern", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return Parse(text)
}

func mergeOutcomes(a, b []ChunkOutcome) []ChunkOutcome {
	merged := make([]ChunkOutcome, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Index < merged[j].Index
	})
	return merged
}

func countApplied(outcomes []ChunkOutcome) int {
	n := 0
	for _, o := range outcomes {
		switch o.Status {
		case StatusApplied, StatusRelocated, StatusInserted:
			n++
		}
	}
	return n
}
