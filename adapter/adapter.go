// Package adapter defines the backend adapter contract every database
// (SQLite, Postgres, MySQL, MongoDB) implements: schema DDL, CRUD,
// condition-tree compilation, and row<->Value mapping.
package adapter

import (
	"context"

	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// Adapter is the contract every backend implements. Every method takes
// the table name explicitly; alias-scoping is the pool/dispatch layer's
// job, not the adapter's.
type Adapter interface {
	// Create inserts data (already id-assigned or stripped by the
	// dispatch core per the configured IDStrategy) and returns the
	// inserted row, at minimum its id field.
	Create(ctx context.Context, table string, data map[string]qvalue.Value, meta *schema.ModelMeta) (qvalue.Value, error)
	// CreateMany batches inserts in chunks of batchSize, returning one
	// result row per input in the same order.
	CreateMany(ctx context.Context, table string, rows []map[string]qvalue.Value, meta *schema.ModelMeta, batchSize int) ([]qvalue.Value, error)

	FindByID(ctx context.Context, table string, id string, meta *schema.ModelMeta) (qvalue.Value, bool, error)
	Find(ctx context.Context, table string, conditions []query.QueryCondition, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error)
	FindWithGroups(ctx context.Context, table string, group query.QueryConditionGroup, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error)

	Update(ctx context.Context, table string, conditions []query.QueryCondition, data map[string]qvalue.Value, meta *schema.ModelMeta) (int64, error)
	UpdateWithOperations(ctx context.Context, table string, conditions []query.QueryCondition, ops []query.UpdateOperation, meta *schema.ModelMeta) (int64, error)
	UpdateByID(ctx context.Context, table string, id string, data map[string]qvalue.Value, meta *schema.ModelMeta) (bool, error)

	Delete(ctx context.Context, table string, conditions []query.QueryCondition) (int64, error)
	DeleteByID(ctx context.Context, table string, id string) (bool, error)

	Count(ctx context.Context, table string, conditions []query.QueryCondition) (uint64, error)

	CreateTable(ctx context.Context, table string, meta *schema.ModelMeta) error
	CreateIndex(ctx context.Context, table, name string, fields []string, unique bool) error
	TableExists(ctx context.Context, table string) (bool, error)
	DropTable(ctx context.Context, table string) error
	GetServerVersion(ctx context.Context) (string, error)

	// CreateStoredProcedure / ExecuteStoredProcedure are part of the
	// §6 adapter contract (stored-procedure create/execute); Postgres
	// and MySQL implement them, SQLite and Mongo return a
	// quickdberr.KindOther error.
	CreateStoredProcedure(ctx context.Context, name, definition string) error
	ExecuteStoredProcedure(ctx context.Context, name string, args ...any) (qvalue.Value, error)

	// Health runs a lightweight connectivity probe.
	Health(ctx context.Context) error

	// Close releases any resources the adapter owns directly (most
	// connection lifecycle lives in the pool, not here).
	Close() error
}

// Config bundles what every adapter constructor needs from a validated
// DatabaseConfig plus the resolved alias name (duplicated here so log
// lines/errors can name it without threading alias through every call).
type Config struct {
	Alias string
	DB    *dbconfig.DatabaseConfig
}
