package sqlgen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/adapter/sqlgen"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

func TestCompileSimpleAnd(t *testing.T) {
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.Postgres}}
	group := query.FromConditions([]query.QueryCondition{
		{Field: "name", Operator: query.OpEq, Value: qvalue.String("alice")},
		{Field: "age", Operator: query.OpGte, Value: qvalue.I64(18)},
	})
	sql, params, next, err := c.Compile(group, 1)
	require.NoError(t, err)
	assert.Equal(t, `("name" = $1 AND "age" >= $2)`, sql)
	assert.Equal(t, []any{"alice", int64(18)}, params)
	assert.Equal(t, 3, next)
}

func TestCompileSQLitePlaceholdersAreQuestionMarks(t *testing.T) {
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.SQLite}}
	group := query.Leaf(query.QueryCondition{Field: "id", Operator: query.OpEq, Value: qvalue.String("x")})
	sql, params, _, err := c.Compile(group, 1)
	require.NoError(t, err)
	assert.Equal(t, `"id" = ?`, sql)
	assert.Equal(t, []any{"x"}, params)
}

func TestCompileRejectsReservedIdentifier(t *testing.T) {
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.MySQL}}
	group := query.Leaf(query.QueryCondition{Field: "select", Operator: query.OpEq, Value: qvalue.String("x")})
	_, _, _, err := c.Compile(group, 1)
	assert.Error(t, err)
}

func TestCompileContainsOnArrayRejectedForSQLite(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeArray }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.SQLite}, Fields: fields}
	group := query.Leaf(query.QueryCondition{Field: "tags", Operator: query.OpContains, Value: qvalue.String("x")})
	_, _, _, err := c.Compile(group, 1)
	assert.Error(t, err)
}

func TestCompileInOnArrayPostgresOrsContainment(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeArray }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.Postgres}, Fields: fields}
	group := query.Leaf(query.QueryCondition{
		Field: "tags", Operator: query.OpIn,
		Value: qvalue.Seq(qvalue.String("a"), qvalue.String("b")),
	})
	sql, params, _, err := c.Compile(group, 1)
	require.NoError(t, err)
	assert.Contains(t, sql, "@>")
	assert.Contains(t, sql, " OR ")
	assert.Len(t, params, 2)
}

func TestCompileRangeCoercesStringToIntegerField(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeInteger }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.Postgres}, Fields: fields}
	group := query.Leaf(query.QueryCondition{Field: "count", Operator: query.OpGt, Value: qvalue.String("42")})
	sql, params, _, err := c.Compile(group, 1)
	require.NoError(t, err)
	assert.Equal(t, `"count" > $1`, sql)
	assert.Equal(t, []any{int64(42)}, params)
}

func TestCompileRangeCoercesStringToFloatField(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeFloat }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.SQLite}, Fields: fields}
	group := query.Leaf(query.QueryCondition{Field: "score", Operator: query.OpLte, Value: qvalue.String("3.5")})
	_, params, _, err := c.Compile(group, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{3.5}, params)
}

func TestCompileRangeCoercesStringToDateTimeField(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeDateTime }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.SQLite}, Fields: fields}
	group := query.Leaf(query.QueryCondition{Field: "created_at", Operator: query.OpGte, Value: qvalue.String("2024-01-15T14:30:00Z")})
	_, params, _, err := c.Compile(group, 1)
	require.NoError(t, err)
	require.Len(t, params, 1)
	got, ok := params[0].(time.Time)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)))
}

func TestCompileRangeRejectsUnparsableDateTimeString(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeDateTime }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.SQLite}, Fields: fields}
	group := query.Leaf(query.QueryCondition{Field: "created_at", Operator: query.OpGt, Value: qvalue.String("not-a-date")})
	_, _, _, err := c.Compile(group, 1)
	assert.Error(t, err)
}

func TestCompileRangeRejectsUnsupportedFieldKind(t *testing.T) {
	fields := func(string) schema.FieldTypeKind { return schema.TypeJson }
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.Postgres}, Fields: fields}
	group := query.Leaf(query.QueryCondition{Field: "payload", Operator: query.OpLt, Value: qvalue.String("x")})
	_, _, _, err := c.Compile(group, 1)
	assert.Error(t, err)
}

func TestCompileOrGroup(t *testing.T) {
	c := sqlgen.Compiler{Dialect: sqlgen.Dialect{Name: sqlgen.Postgres}}
	group := query.Or(
		query.Leaf(query.QueryCondition{Field: "a", Operator: query.OpEq, Value: qvalue.I64(1)}),
		query.Leaf(query.QueryCondition{Field: "b", Operator: query.OpEq, Value: qvalue.I64(2)}),
	)
	sql, _, _, err := c.Compile(group, 1)
	require.NoError(t, err)
	assert.Equal(t, `("a" = $1 OR "b" = $2)`, sql)
}
