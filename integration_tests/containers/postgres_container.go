//go:build integration

package containers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	lanternmigrations "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/lantern-bot/internal/db/bundb"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// SetupPostgresContainer starts a Postgres testcontainer and returns the container and connection string.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("lantern"),
		postgres.WithUsername("lantern"),
		postgres.WithPassword("lantern"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	parsedURL, err := url.Parse(connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	query := parsedURL.Query()
	query.Set("sslmode", "disable")
	parsedURL.RawQuery = query.Encode()

	log.Printf("Postgres container ready: %s", parsedURL.Host)
	return pgContainer, parsedURL.String(), nil
}

// SetupLanternDB starts Postgres, applies the lantern migrations and returns a bun handle.
// The returned cleanup closes the handle and terminates the container.
func SetupLanternDB(ctx context.Context) (*bun.DB, string, func(), error) {
	container, dsn, err := SetupPostgresContainer(ctx)
	if err != nil {
		return nil, "", nil, err
	}

	db, err := bundb.Open(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", nil, err
	}

	cleanup := func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	}

	migrator := migrate.NewMigrator(db, lanternmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		cleanup()
		return nil, "", nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		cleanup()
		return nil, "", nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, dsn, cleanup, nil
}
