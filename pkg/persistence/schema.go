package persistence

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS patch_eval_run (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	duration_ms BIGINT NOT NULL,
	case_count INT NOT NULL,
	passed INT NOT NULL,
	failed INT NOT NULL,
	fuzzy_window INT NOT NULL,
	context_widen INT NOT NULL,
	min_length_ratio DOUBLE PRECISION NOT NULL,
	external_timeout_ms BIGINT NOT NULL,
	tier_counts JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS patch_eval_case (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES patch_eval_run (id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	language TEXT,
	passed BOOLEAN NOT NULL,
	tier TEXT NOT NULL,
	chunks_applied INT NOT NULL,
	chunks_total INT NOT NULL,
	warnings JSONB,
	duration_us BIGINT NOT NULL,
	valid BOOLEAN,
	validation TEXT
);

CREATE INDEX IF NOT EXISTS patch_eval_case_run_id ON patch_eval_case (run_id);
`

// EnsureSchema creates the evaluation tables when they do not exist.
func EnsureSchema(ctx context.Context) error {
	conn, err := getPooledPostgresSession(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
