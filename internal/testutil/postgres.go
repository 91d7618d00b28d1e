// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/database"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Postgres starts a postgres container, migrates models and returns a connected
// gorm handle. The container is removed when the test finishes. Skipped with
// -short or when no container runtime is reachable.
func Postgres(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("courses_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.ConnectWithRetry(ctx, dsn, config.DatabaseConfig{
		MaxOpenConns:  10,
		RunMigrations: true,
	}, DiscardLogger(), 5, 500*time.Millisecond, models...)
	require.NoError(t, err, "connect to postgres container")
	t.Cleanup(func() { _ = database.Close(db, DiscardLogger()) })

	return db
}

// Truncate empties tables between subtests.
func Truncate(t *testing.T, db *gorm.DB, tables ...string) {
	t.Helper()
	require.NoError(t, db.Exec("TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE").Error)
}
