package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/adapter/sqlgen"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
)

func TestDropNullsRemovesOnlyNullEntries(t *testing.T) {
	out, err := sqlgen.DropNulls(map[string]qvalue.Value{
		"name":     qvalue.String("gizmo"),
		"nickname": qvalue.Null(),
		"count":    qvalue.I64(3),
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	_, hasNickname := out["nickname"]
	assert.False(t, hasNickname)
}

func TestDropNullsAllNullIsError(t *testing.T) {
	_, err := sqlgen.DropNulls(map[string]qvalue.Value{"a": qvalue.Null(), "b": qvalue.Null()})
	assert.Error(t, err)
}

func TestDropNullOpsRemovesOnlyNullOps(t *testing.T) {
	out, err := sqlgen.DropNullOps([]query.UpdateOperation{
		{Field: "count", Operator: query.UpdateIncrement, Value: qvalue.I64(1)},
		{Field: "nickname", Operator: query.UpdateSet, Value: qvalue.Null()},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "count", out[0].Field)
}

func TestDropNullOpsAllNullIsError(t *testing.T) {
	_, err := sqlgen.DropNullOps([]query.UpdateOperation{
		{Field: "a", Operator: query.UpdateSet, Value: qvalue.Null()},
	})
	assert.Error(t, err)
}
