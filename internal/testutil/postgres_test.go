package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Without a reachable container runtime this skips instead of failing.
func TestPostgres_Connects(t *testing.T) {
	db := Postgres(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.PingContext(t.Context()))
}
