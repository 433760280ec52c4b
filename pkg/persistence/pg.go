package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/replicatedhq/patchsmith/pkg/logger"
)

type PostgresOpts struct {
	URI string
}

var (
	pool          *pgxpool.Pool
	stopMonitorFn context.CancelFunc
)

func InitPostgres(opts PostgresOpts) error {
	if opts.URI == "" {
		return errors.New("Postgres URI is required")
	}

	conn, err := pgx.Connect(context.Background(), opts.URI)
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer conn.Close(context.Background())

	poolConfig, err := pgxpool.ParseConfig(opts.URI)
	if err != nil {
		return fmt.Errorf("failed to parse Postgres URI: %w", err)
	}

	// evaluation runs write in short bursts from a single process
	poolConfig.MaxConns = 8
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	logger.Info("Initializing database connection pool",
		zap.Int32("MaxConns", poolConfig.MaxConns),
		zap.Duration("MaxConnLifetime", poolConfig.MaxConnLifetime),
		zap.Duration("MaxConnIdleTime", poolConfig.MaxConnIdleTime))

	pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create Postgres pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopMonitorFn = cancel
	go monitorPoolHealth(ctx)

	return nil
}

// ClosePostgres stops the health monitor and closes the pool.
func ClosePostgres() {
	if stopMonitorFn != nil {
		stopMonitorFn()
		stopMonitorFn = nil
	}
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

// IsInitialized reports whether InitPostgres has succeeded.
func IsInitialized() bool {
	return pool != nil
}

func getPooledPostgresSession(ctx context.Context) (*pgxpool.Conn, error) {
	if pool == nil {
		return nil, errors.New("Postgres pool is not initialized")
	}

	startTime := time.Now()

	var conn *pgxpool.Conn
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		acquireCtx, cancel := context.WithTimeout(ctx, time.Duration(attempt)*5*time.Second)
		conn, err = pool.Acquire(acquireCtx)
		cancel()

		if err == nil {
			if duration := time.Since(startTime); duration > 100*time.Millisecond {
				logger.Debug("Slow DB connection acquisition",
					zap.String("duration", duration.String()),
					zap.Int("attempt", attempt))
			}
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logger.Warn("Failed to acquire DB connection",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", 3),
			zap.Error(err))

		time.Sleep(time.Duration(attempt*100) * time.Millisecond)
	}

	return nil, fmt.Errorf("failed to acquire from Postgres pool after 3 attempts: %w", err)
}

// monitorPoolHealth periodically checks the pool until ctx is cancelled.
func monitorPoolHealth(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p := pool
		if p == nil {
			return
		}

		stats := p.Stat()
		if stats.AcquiredConns() > stats.MaxConns()*80/100 {
			logger.Warn("DB Pool nearing saturation",
				zap.Int32("AcquiredConns", stats.AcquiredConns()),
				zap.Int32("MaxConns", stats.MaxConns()))
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		var result int
		err := p.QueryRow(checkCtx, "SELECT 1").Scan(&result)
		cancel()

		if err != nil && ctx.Err() == nil {
			logger.Error(fmt.Errorf("health check query failed: %w", err))
		}
	}
}
