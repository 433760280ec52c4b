package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tuvistavie/securerandom"

	"github.com/replicatedhq/patchsmith/pkg/corpus"
)

// EvalNotifyChannel receives the id of every stored run.
const EvalNotifyChannel = "patch_eval"

// EvalRun is a stored evaluation run without its cases.
type EvalRun struct {
	ID             string
	CreatedAt      time.Time
	Duration       time.Duration
	CaseCount      int
	Passed         int
	Failed         int
	FuzzyWindow    int
	ContextWiden   int
	MinLengthRatio float64
}

// SaveEvaluation stores a report and its cases in one transaction and
// returns the run id.
func SaveEvaluation(ctx context.Context, report *corpus.Report) (string, error) {
	conn, err := getPooledPostgresSession(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	runID, err := securerandom.Hex(6)
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}

	tierCounts, err := json.Marshal(report.TierCounts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tier counts: %w", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO patch_eval_run
		(id, created_at, duration_ms, case_count, passed, failed, fuzzy_window, context_widen, min_length_ratio, external_timeout_ms, tier_counts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.Exec(ctx, query,
		runID,
		report.StartedAt,
		report.Duration.Milliseconds(),
		len(report.Results),
		report.Passed,
		report.Failed,
		report.Options.FuzzyWindow,
		report.Options.ContextWiden,
		report.Options.MinLengthRatio,
		report.Options.ExternalTimeout.Milliseconds(),
		tierCounts,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, res := range report.Results {
		caseID, err := securerandom.Hex(6)
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		warnings, err := json.Marshal(res.Warnings)
		if err != nil {
			return "", fmt.Errorf("failed to marshal warnings: %w", err)
		}

		batch.Queue(`INSERT INTO patch_eval_case
			(id, run_id, name, language, passed, tier, chunks_applied, chunks_total, warnings, duration_us, valid, validation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			caseID, runID, res.Name, res.Language, res.Passed, string(res.Tier),
			res.ChunksApplied, res.ChunksTotal, warnings, res.Duration.Microseconds(),
			res.Valid, res.Validation)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("failed to insert cases: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, EvalNotifyChannel, runID); err != nil {
		return "", fmt.Errorf("failed to notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListEvaluations returns the most recent runs, newest first.
func ListEvaluations(ctx context.Context, limit int) ([]EvalRun, error) {
	conn, err := getPooledPostgresSession(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	query := `SELECT id, created_at, duration_ms, case_count, passed, failed, fuzzy_window, context_widen, min_length_ratio
		FROM patch_eval_run ORDER BY created_at DESC LIMIT $1`
	rows, err := conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []EvalRun
	for rows.Next() {
		var run EvalRun
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.CreatedAt, &durationMs, &run.CaseCount, &run.Passed, &run.Failed,
			&run.FuzzyWindow, &run.ContextWiden, &run.MinLengthRatio); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
