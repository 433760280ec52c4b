package corpus

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/logger"
	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

// EvaluateOptions controls an evaluation run.
type EvaluateOptions struct {
	// Workers is the number of cases applied concurrently.
	Workers int
	// Rate is the number of case starts allowed per second. Zero means
	// unlimited.
	Rate float64
	// Validate runs the syntax validator over every result.
	Validate bool
}

// CaseResult is the outcome of applying one case.
type CaseResult struct {
	Name          string        `json:"name"`
	Language      string        `json:"language,omitempty"`
	Passed        bool          `json:"passed"`
	Tier          diff.Tier     `json:"tier"`
	ChunksApplied int           `json:"chunks_applied"`
	ChunksTotal   int           `json:"chunks_total"`
	Warnings      []string      `json:"warnings,omitempty"`
	Duration      time.Duration `json:"duration"`
	Valid         *bool         `json:"valid,omitempty"`
	Validation    string        `json:"validation,omitempty"`
}

// Report summarizes an evaluation run.
type Report struct {
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Options    diff.Options      `json:"options"`
	Results    []CaseResult      `json:"results"`
	Passed     int               `json:"passed"`
	Failed     int               `json:"failed"`
	TierCounts map[diff.Tier]int `json:"tier_counts"`
}

// PassRate returns the share of passing cases.
func (r *Report) PassRate() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.Passed) / float64(len(r.Results))
}

// Evaluate applies every case with engine and compares the result with the
// expected text. Results keep the order of cases.
func Evaluate(ctx context.Context, engine *diff.Engine, cases []Case, opts EvaluateOptions) (*Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)

	report := &Report{
		StartedAt:  time.Now(),
		Options:    engine.Options(),
		Results:    make([]CaseResult, len(cases)),
		TierCounts: map[diff.Tier]int{},
	}

	jobs := make(chan int)
	wg := sync.WaitGroup{}
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = evaluateCase(ctx, engine, cases[i], opts.Validate)
			}
		}()
	}

	var waitErr error
	for i := range cases {
		if err := limiter.Wait(ctx); err != nil {
			waitErr = errors.Wrap(err, "rate limiter wait failed")
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if waitErr != nil {
		return nil, waitErr
	}

	for _, res := range report.Results {
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.TierCounts[res.Tier]++
	}
	report.Duration = time.Since(report.StartedAt)

	logger.Info("corpus evaluated",
		zap.Int("cases", len(cases)),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func evaluateCase(ctx context.Context, engine *diff.Engine, c Case, validate bool) CaseResult {
	res := engine.Apply(ctx, c.Source, c.Hunks)

	result := CaseResult{
		Name:          c.Name,
		Language:      c.Language,
		Passed:        res.Text == c.Expected,
		Tier:          res.Tier,
		ChunksApplied: res.ChunksApplied,
		ChunksTotal:   res.ChunksTotal,
		Warnings:      res.Warnings,
		Duration:      res.Duration,
	}

	if validate {
		lang := syntax.ParseLanguage(c.Language)
		if c.Language == "" {
			lang = syntax.DetectLanguage("", res.Text)
		}
		ok, msg := syntax.Validate(ctx, res.Text, lang)
		result.Valid = &ok
		result.Validation = msg
	}

	if !result.Passed {
		logger.Debug("case failed", zap.String("case", c.Name), zap.String("tier", string(res.Tier)))
	}
	return result
}
