package sqlite

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
			DB:    &dbconfig.DatabaseConfig{Alias: "mock", DBType: dbconfig.SQLite, IDStrategy: dbconfig.IDStrategy{Kind: idKind}},
		},
		db:      db,
		dialect: sqlgen.Dialect{Name: sqlgen.SQLite},
	}
	return a, mock
}

func TestAdapterCreateAutoIncrementPopulatesID(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDAutoIncrement)

	mock.ExpectExec(`INSERT INTO "widgets"`).
		WillReturnResult(sqlmock.NewResult(7, 1))

	row, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"name": qvalue.String("gizmo"),
	}, nil)
	require.NoError(t, err)

	id, ok := row.MapGet("id")
	require.True(t, ok)
	n, ok := id.AsI64()
	require.True(t, ok)
	assert.EqualValues(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCreateHonorsCallerSuppliedID(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectExec(`INSERT INTO "widgets"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	row, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"id":   qvalue.String("caller-id"),
		"name": qvalue.String("gizmo"),
	}, nil)
	require.NoError(t, err)

	id, ok := row.MapGet("id")
	require.True(t, ok)
	s, ok := id.AsString()
	require.True(t, ok)
	assert.Equal(t, "caller-id", s)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCreateDropsNullFields(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectExec(`INSERT INTO "widgets" \("id", "name"\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"id":       qvalue.String("w1"),
		"name":     qvalue.String("gizmo"),
		"nickname": qvalue.Null(),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCreateAllNullExceptAutoIncrementIDFails(t *testing.T) {
	a, _ := newMockAdapter(t, dbconfig.IDAutoIncrement)

	_, err := a.Create(context.Background(), "widgets", map[string]qvalue.Value{
		"name": qvalue.Null(),
	}, nil)
	assert.Error(t, err)
}

func TestAdapterUpdateDropsNullFields(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectExec(`UPDATE "widgets" SET "name" = \? WHERE "id" = \?`).
		WithArgs("renamed", "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := a.Update(context.Background(), "widgets",
		[]query.QueryCondition{{Field: "id", Operator: query.OpEq, Value: qvalue.String("w1")}},
		map[string]qvalue.Value{"name": qvalue.String("renamed"), "nickname": qvalue.Null()}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterUpdateAllNullPayloadFails(t *testing.T) {
	a, _ := newMockAdapter(t, dbconfig.IDUuid)

	_, err := a.Update(context.Background(), "widgets",
		[]query.QueryCondition{{Field: "id", Operator: query.OpEq, Value: qvalue.String("w1")}},
		map[string]qvalue.Value{"name": qvalue.Null()}, nil)
	assert.Error(t, err)
}

func TestAdapterFindByIDNotFound(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	cols := []string{"id", "name"}
	mock.ExpectQuery(`SELECT \* FROM "widgets" WHERE "id" = \? LIMIT 1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	_, found, err := a.FindByID(context.Background(), "widgets", "missing", nil)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterFindByIDFound(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	cols := []string{"id", "name"}
	mock.ExpectQuery(`SELECT \* FROM "widgets" WHERE "id" = \? LIMIT 1`).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("w1", "gizmo"))

	row, found, err := a.FindByID(context.Background(), "widgets", "w1", nil)
	require.NoError(t, err)
	require.True(t, found)
	name, ok := row.MapGet("name")
	require.True(t, ok)
	s, _ := name.AsString()
	assert.Equal(t, "gizmo", s)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterUpdateByIDReportsRowsAffected(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectExec(`UPDATE "widgets" SET "name" = \? WHERE "id" = \?`).
		WithArgs("renamed", "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := a.UpdateByID(context.Background(), "widgets", "w1", map[string]qvalue.Value{
		"name": qvalue.String("renamed"),
	}, nil)
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterDeleteByIDReportsNotFound(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectExec(`DELETE FROM "widgets" WHERE "id" = \?`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := a.DeleteByID(context.Background(), "widgets", "missing")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterCount(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets" WHERE "name" = \?`).
		WithArgs("gizmo").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(3))

	n, err := a.Count(context.Background(), "widgets", []query.QueryCondition{
		{Field: "name", Operator: query.OpEq, Value: qvalue.String("gizmo")},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterTableExists(t *testing.T) {
	a, mock := newMockAdapter(t, dbconfig.IDUuid)

	mock.ExpectQuery(`SELECT count\(\*\) FROM sqlite_master`).
		WithArgs("widgets").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	ok, err := a.TableExists(context.Background(), "widgets")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterStoredProceduresUnsupported(t *testing.T) {
	a, _ := newMockAdapter(t, dbconfig.IDUuid)
	err := a.CreateStoredProcedure(context.Background(), "proc", "body")
	assert.Error(t, err)
	_, err = a.ExecuteStoredProcedure(context.Background(), "proc")
	assert.Error(t, err)
}
