package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/adapter/sqlgen"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
)

func newMockAdapter(t *testing.T, idKind dbconfig.IDStrategyKind) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	a := &Adapter{
		cfg: adapter.Config{
			Alias: "mock",
			DB:    &dbconfig.DatabaseConfig{Alias: "mock", DBType: dbconfig.MySQL, IDStrategy: dbconfig.IDStrategy{Kind: idKind}},
		},
		db:      db,
		dialect: sqlgen.Dialect{Name: sqlgen.MySQL},
	}
	return a, mock
}

func TestAdapterCreateAutoIncrementPopulatesID(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDAutoIncrement)

	mock.ExpectExec("INSERT INTO `widgets`").
		WillReturnResult(sqlmock.NewResult(9, 1))

	row, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"name": qvalue.String("gizmo"),
	}, nil)
	require.NoError(t, err)

	id, ok := row.MapGet("id")
	require.True(t, ok)
	n, ok := id.AsI64()
	require.True(t, ok)
	assert.EqualValues(t, 9, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCreateDropsNullFields(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDAutoIncrement)

	mock.ExpectExec("INSERT INTO `widgets` \\(`name`\\)").
		WillReturnResult(sqlmock.NewResult(9, 1))

	_, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"name":     qvalue.String("gizmo"),
		"nickname": qvalue.Null(),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCreateAllNullPayloadFails(t *testing.T) {
	a, _ := newMockAdapter(t, dbconfig.IDAutoIncrement)

	_, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"name": qvalue.Null(),
	}, nil)
	assert.Error(t, err)
}

func TestAdapterUpdateAllNullPayloadFails(t *testing.T) {
	a, _ := newMockAdapter(t, dbconfig.IDUuid)

	_, err := a.Update(context.Background(), "widgets",
		[]query.QueryCondition{{Field: "id", Operator: query.OpEq, Value: qvalue.String("w1")}},
		map[string]qvalue.Value{"name": qvalue.Null()}, nil)
	assert.Error(t, err)
}

func TestAdapterUpdateByIDReportsNotFound(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectExec("UPDATE `widgets` SET `name` = \\? WHERE `id` = \\?").
		WithArgs("renamed", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := a.UpdateByID(context.Background(), "widgets", "missing", map[string]qvalue.Value{
		"name": qvalue.String("renamed"),
	}, nil)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCountWithBacktickIdent(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `widgets` WHERE `name` = \\?").
		WithArgs("gizmo").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(5))

	n, err := a.Count(context.Background(), "widgets", []query.QueryCondition{
		{Field: "name", Operator: query.OpEq, Value: qvalue.String("gizmo")},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
