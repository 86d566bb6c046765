package idgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/idgen"
)

func TestAutoIncrementReturnsEmpty(t *testing.T) {
	g, err := idgen.New(dbconfig.IDStrategy{Kind: dbconfig.IDAutoIncrement})
	require.NoError(t, err)
	id, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestUuidStrategy(t *testing.T) {
	g, err := idgen.New(dbconfig.IDStrategy{Kind: dbconfig.IDUuid})
	require.NoError(t, err)
	id, err := g.Next()
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestObjectIdStrategy(t *testing.T) {
	g, err := idgen.New(dbconfig.IDStrategy{Kind: dbconfig.IDObjectId})
	require.NoError(t, err)
	id, err := g.Next()
	require.NoError(t, err)
	assert.Len(t, id, 24)
}

func TestCustomStrategyUnknownNameFails(t *testing.T) {
	_, err := idgen.New(dbconfig.IDStrategy{Kind: dbconfig.IDCustom, CustomName: "nope"})
	require.Error(t, err)
}

func TestCustomStrategyXid(t *testing.T) {
	g, err := idgen.New(dbconfig.IDStrategy{Kind: dbconfig.IDCustom, CustomName: "xid"})
	require.NoError(t, err)
	id, err := g.Next()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestSnowflakeRejectsOutOfRange(t *testing.T) {
	_, err := idgen.NewSnowflake(32, 0)
	assert.Error(t, err)
	_, err = idgen.NewSnowflake(0, 32)
	assert.Error(t, err)
}

func TestSnowflakeMonotonicAndUnique(t *testing.T) {
	sf, err := idgen.NewSnowflake(1, 1)
	require.NoError(t, err)

	seen := make(map[int64]bool, 10000)
	var last int64 = -1
	for range 10000 {
		id, err := sf.Next()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		assert.GreaterOrEqual(t, id, last)
		last = id
	}
}
