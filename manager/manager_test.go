package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/dbconfig"
)

func sqliteConfig(alias string) *dbconfig.DatabaseConfig {
	return &dbconfig.DatabaseConfig{
		Alias:      alias,
		DBType:     dbconfig.SQLite,
		SQLite:     &dbconfig.SQLiteConn{Path: ":memory:"},
		Pool:       dbconfig.PoolConfig{MaxConns: 2, MaxRetries: 1, RetryInterval: time.Millisecond},
		IDStrategy: dbconfig.IDStrategy{Kind: dbconfig.IDAutoIncrement},
	}
}

func TestAddDatabaseAndResolve(t *testing.T) {
	m := New()
	err := m.AddDatabase(context.Background(), sqliteConfig("main"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	assert.Equal(t, "main", m.DefaultAlias())

	p, err := m.Resolve("")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestAddDatabaseRejectsDuplicateAlias(t *testing.T) {
	m := New()
	require.NoError(t, m.AddDatabase(context.Background(), sqliteConfig("main")))
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	err := m.AddDatabase(context.Background(), sqliteConfig("main"))
	assert.Error(t, err)
}

func TestAddDatabaseRefusedAfterLatch(t *testing.T) {
	m := New()
	require.NoError(t, m.AddDatabase(context.Background(), sqliteConfig("main")))
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	_, err := m.Resolve("main") // trips the latch
	require.NoError(t, err)

	err = m.AddDatabase(context.Background(), sqliteConfig("second"))
	assert.Error(t, err)
	assert.True(t, m.Locked())
}

func TestRemoveDatabaseReselectsDefault(t *testing.T) {
	m := New()
	require.NoError(t, m.AddDatabase(context.Background(), sqliteConfig("main")))
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	err := m.RemoveDatabase("main")
	require.NoError(t, err)
	assert.Equal(t, "", m.DefaultAlias())

	_, err = m.Resolve("main")
	assert.Error(t, err)
}

func TestResolveUnknownAliasFails(t *testing.T) {
	m := New()
	_, err := m.Resolve("missing")
	assert.Error(t, err)
}

func TestHealthCheckDoesNotTripLatch(t *testing.T) {
	m := New()
	require.NoError(t, m.AddDatabase(context.Background(), sqliteConfig("main")))
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	require.NoError(t, m.HealthCheck(context.Background(), "main"))
	assert.False(t, m.Locked())
}
