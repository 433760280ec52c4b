package testhelpers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

type CreatePostgresContainerOpts struct {
	// InitScriptsDir holds .sql files run in lexical order at startup.
	InitScriptsDir string
}

func CreatePostgresContainer(ctx context.Context, opts CreatePostgresContainerOpts) (*PostgresContainer, error) {
	initScripts := []string{}
	if opts.InitScriptsDir != "" {
		if err := filepath.Walk(opts.InitScriptsDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(path) == ".sql" {
				initScripts = append(initScripts, path)
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(initScripts...),
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.
				ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		if pgContainer == nil {
			return nil, fmt.Errorf("container failed: %w", err)
		}

		logReader, logErr := pgContainer.Logs(ctx)
		if logErr != nil {
			return nil, fmt.Errorf("container failed: %v (failed to get logs: %v)", err, logErr)
		}
		defer logReader.Close()

		logs := new(bytes.Buffer)
		if _, readErr := logs.ReadFrom(logReader); readErr != nil {
			return nil, fmt.Errorf("container failed: %v (failed to read logs: %v)", err, readErr)
		}
		return nil, fmt.Errorf("container failed: %v\nLogs:\n%s", err, logs.String())
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}

	return &PostgresContainer{
		PostgresContainer: pgContainer,
		ConnectionString:  connStr,
	}, nil
}
