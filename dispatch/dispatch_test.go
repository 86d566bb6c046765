package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/manager"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/registry"
	"github.com/forbearing/quickdb/schema"
)

func newTestCore(t *testing.T, alias string, idStrategy dbconfig.IDStrategy) *Core {
	t.Helper()
	mgr := manager.New()
	cfg := &dbconfig.DatabaseConfig{
		Alias:      alias,
		DBType:     dbconfig.SQLite,
		SQLite:     &dbconfig.SQLiteConn{Path: ":memory:"},
		Pool:       dbconfig.PoolConfig{MaxConns: 2, MaxRetries: 1, RetryInterval: time.Millisecond},
		IDStrategy: idStrategy,
	}
	require.NoError(t, mgr.AddDatabase(context.Background(), cfg))
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })

	meta := schema.NewModelMeta("widgets")
	meta.AddField("name", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	require.NoError(t, registry.RegisterModel(meta))

	c := New(mgr)
	t.Cleanup(c.Close)
	return c
}

func TestCoreCreateAssignsUUIDWhenMissing(t *testing.T) {
	c := newTestCore(t, "uuid-alias", dbconfig.IDStrategy{Kind: dbconfig.IDUuid})

	row, err := c.Create(context.Background(), "uuid-alias", "widgets", map[string]qvalue.Value{
		"name": qvalue.String("bolt"),
	})
	require.NoError(t, err)

	id, ok := row.MapGet("id")
	require.True(t, ok)
	s, ok := id.AsString()
	require.True(t, ok)
	assert.NotEmpty(t, s)
}

func TestCoreCreateHonorsCallerSuppliedID(t *testing.T) {
	c := newTestCore(t, "uuid-alias-2", dbconfig.IDStrategy{Kind: dbconfig.IDUuid})

	row, err := c.Create(context.Background(), "uuid-alias-2", "widgets", map[string]qvalue.Value{
		"id":   qvalue.String("caller-supplied"),
		"name": qvalue.String("nut"),
	})
	require.NoError(t, err)

	id, _ := row.MapGet("id")
	s, _ := id.AsString()
	assert.Equal(t, "caller-supplied", s)
}

func TestCoreFindByIDRoundTrip(t *testing.T) {
	c := newTestCore(t, "find-alias", dbconfig.IDStrategy{Kind: dbconfig.IDUuid})
	ctx := context.Background()

	_, err := c.Create(ctx, "find-alias", "widgets", map[string]qvalue.Value{
		"id":   qvalue.String("w1"),
		"name": qvalue.String("washer"),
	})
	require.NoError(t, err)

	row, found, err := c.FindByID(ctx, "find-alias", "widgets", "w1")
	require.NoError(t, err)
	assert.True(t, found)
	name, _ := row.MapGet("name")
	s, _ := name.AsString()
	assert.Equal(t, "washer", s)

	_, found, err = c.FindByID(ctx, "find-alias", "widgets", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCoreUpdateByIDAndDeleteByID(t *testing.T) {
	c := newTestCore(t, "upd-alias", dbconfig.IDStrategy{Kind: dbconfig.IDUuid})
	ctx := context.Background()

	_, err := c.Create(ctx, "upd-alias", "widgets", map[string]qvalue.Value{
		"id":   qvalue.String("w2"),
		"name": qvalue.String("screw"),
	})
	require.NoError(t, err)

	ok, err := c.UpdateByID(ctx, "upd-alias", "widgets", "w2", map[string]qvalue.Value{"name": qvalue.String("rivet")})
	require.NoError(t, err)
	assert.True(t, ok)

	row, found, err := c.FindByID(ctx, "upd-alias", "widgets", "w2")
	require.NoError(t, err)
	require.True(t, found)
	name, _ := row.MapGet("name")
	s, _ := name.AsString()
	assert.Equal(t, "rivet", s)

	ok, err = c.DeleteByID(ctx, "upd-alias", "widgets", "w2")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err = c.FindByID(ctx, "upd-alias", "widgets", "w2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCoreCountAndFind(t *testing.T) {
	c := newTestCore(t, "count-alias", dbconfig.IDStrategy{Kind: dbconfig.IDUuid})
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Create(ctx, "count-alias", "widgets", map[string]qvalue.Value{"name": qvalue.String(name)})
		require.NoError(t, err)
	}

	n, err := c.Count(ctx, "count-alias", "widgets", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	rows, err := c.Find(ctx, "count-alias", "widgets", []query.QueryCondition{
		{Field: "name", Operator: query.OpEq, Value: qvalue.String("b")},
	}, query.Options{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCoreCreateStripsIDForAutoIncrement(t *testing.T) {
	c := newTestCore(t, "auto-alias", dbconfig.IDStrategy{Kind: dbconfig.IDAutoIncrement})
	ctx := context.Background()

	row, err := c.Create(ctx, "auto-alias", "widgets", map[string]qvalue.Value{
		"id":   qvalue.String("should-be-dropped"),
		"name": qvalue.String("gear"),
	})
	require.NoError(t, err)

	id, ok := row.MapGet("id")
	require.True(t, ok)
	n, isInt := id.AsI64()
	require.True(t, isInt, "auto-increment id must come back as an integer, not the stripped caller value")
	assert.Greater(t, n, int64(0))
}
