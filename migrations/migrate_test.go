package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/testutil"
	"github.com/zomestaydeveloper/Zomestay-sub001/migrations"
)

func TestNames_SortedSQLOnly(t *testing.T) {
	names, err := migrations.Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.IsNonDecreasing(t, names)
}

func TestApply_RecordsMigrations(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `DROP TABLE IF EXISTS schema_migrations`)
	require.NoError(t, err)

	_, err = migrations.Apply(ctx, pool)
	require.NoError(t, err)

	names, err := migrations.Names()
	require.NoError(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(names), count)

	applied, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var again int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&again))
	assert.Equal(t, count, again)
}
