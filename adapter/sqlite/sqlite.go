// Package sqlite implements adapter.Adapter over database/sql with the
// mattn/go-sqlite3 driver. Single-writer semantics (MaxOpenConns=1) and the
// WAL/busy_timeout/synchronous pragma set are carried over from the
// teacher's gorm-based sqlite.go, translated to a bare database/sql DSN
// since quickdb talks to drivers directly rather than through an ORM.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/adapter/sqlgen"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/idgen"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// Adapter is the SQLite backend. One *sql.DB per alias, single connection,
// matching the teacher's "SQLite works best with limited concurrent
// connections" rationale.
type Adapter struct {
	cfg     adapter.Config
	db      *sql.DB
	dialect sqlgen.Dialect
}

// Open connects to cfg.DB's SQLite path, applies the pragma set, and
// constrains the pool to a single connection.
func Open(cfg adapter.Config) (*Adapter, error) {
	if cfg.DB.DBType != dbconfig.SQLite {
		return nil, quickdberr.Config("sqlite adapter given db_type %q", cfg.DB.DBType)
	}
	dsn := buildDSN(cfg.DB.SQLite)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, quickdberr.Connection(err, "open sqlite dsn for alias %q", cfg.Alias)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if cfg.DB.Pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.DB.Pool.MaxLifetime)
	}
	if cfg.DB.Pool.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(cfg.DB.Pool.IdleTimeout)
	}
	if err := db.Ping(); err != nil {
		return nil, quickdberr.Connection(err, "ping sqlite for alias %q", cfg.Alias)
	}
	if _, err := db.Exec("PRAGMA optimize"); err != nil {
		logger.Adapter.Warnw("sqlite PRAGMA optimize failed", "alias", cfg.Alias, "error", err)
	}
	return &Adapter{cfg: cfg, db: db, dialect: sqlgen.Dialect{Name: sqlgen.SQLite}}, nil
}

func buildDSN(conn *dbconfig.SQLiteConn) string {
	if conn.Path == "" {
		return "file::memory:?cache=shared"
	}
	params := []string{
		"_journal_mode=WAL",
		"_busy_timeout=5000",
		"_synchronous=NORMAL",
		"_temp_store=MEMORY",
		"_cache_size=-32000",
		"_foreign_keys=ON",
	}
	return conn.Path + "?" + strings.Join(params, "&")
}

func (a *Adapter) Close() error { return a.db.Close() }

func (a *Adapter) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) GetServerVersion(ctx context.Context) (string, error) {
	var v string
	if err := a.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
		return "", quickdberr.Query(err, "get sqlite version")
	}
	return v, nil
}

// --- DDL ---

func columnType(fd *schema.FieldDefinition) string {
	switch fd.Type.Kind {
	case schema.TypeInteger, schema.TypeBigInteger, schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeFloat, schema.TypeDouble, schema.TypeDecimal:
		return "REAL"
	case schema.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (a *Adapter) CreateTable(ctx context.Context, table string, meta *schema.ModelMeta) error {
	ident, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return err
	}
	var cols []string
	switch a.cfg.DB.IDStrategy.Kind {
	case dbconfig.IDAutoIncrement:
		cols = append(cols, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
	default:
		cols = append(cols, `"id" TEXT PRIMARY KEY`)
	}
	for _, name := range meta.FieldOrder {
		fd := meta.Fields[name]
		col, err := a.dialect.QuoteIdent(name)
		if err != nil {
			return err
		}
		def := col + " " + columnType(fd)
		if fd.Required {
			def += " NOT NULL"
		}
		if fd.Unique {
			def += " UNIQUE"
		}
		cols = append(cols, def)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident, strings.Join(cols, ", "))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return quickdberr.Query(err, "create table %q", table)
	}
	return nil
}

func (a *Adapter) CreateIndex(ctx context.Context, table, name string, fields []string, unique bool) error {
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return err
	}
	idxIdent, err := a.dialect.QuoteIdent(name)
	if err != nil {
		return err
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		q, err := a.dialect.QuoteIdent(f)
		if err != nil {
			return err
		}
		quoted[i] = q
	}
	kw := "INDEX"
	if unique {
		kw = "UNIQUE INDEX"
	}
	stmt := fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kw, idxIdent, tableIdent, strings.Join(quoted, ", "))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return quickdberr.Query(err, "create index %q on %q", name, table)
	}
	return nil
}

func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, quickdberr.Query(err, "check table_exists %q", table)
	}
	return n > 0, nil
}

func (a *Adapter) DropTable(ctx context.Context, table string) error {
	ident, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return quickdberr.Query(err, "drop table %q", table)
	}
	return nil
}

// --- CRUD ---

func (a *Adapter) assignID(data map[string]qvalue.Value) error {
	if a.cfg.DB.IDStrategy.Kind == dbconfig.IDAutoIncrement {
		delete(data, "id")
		return nil
	}
	if _, ok := data["id"]; ok {
		return nil
	}
	g, err := idgen.New(a.cfg.DB.IDStrategy)
	if err != nil {
		return err
	}
	id, err := g.Next()
	if err != nil {
		return err
	}
	data["id"] = qvalue.String(id)
	return nil
}

func (a *Adapter) Create(ctx context.Context, table string, data map[string]qvalue.Value, meta *schema.ModelMeta) (qvalue.Value, error) {
	if err := a.assignID(data); err != nil {
		return qvalue.Null(), err
	}
	data, err := sqlgen.DropNulls(data)
	if err != nil {
		return qvalue.Null(), err
	}
	cols, placeholders, params, err := a.insertParts(data)
	if err != nil {
		return qvalue.Null(), err
	}
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return qvalue.Null(), err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableIdent, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	res, err := a.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return qvalue.Null(), quickdberr.Query(err, "create row in %q", table)
	}
	if a.cfg.DB.IDStrategy.Kind == dbconfig.IDAutoIncrement {
		lastID, err := res.LastInsertId()
		if err != nil {
			return qvalue.Null(), quickdberr.Query(err, "read last_insert_id for %q", table)
		}
		data["id"] = qvalue.I64(lastID)
	}
	return qvalue.Map(mapToEntries(data)...), nil
}

func (a *Adapter) insertParts(data map[string]qvalue.Value) (cols, placeholders []string, params []any, err error) {
	idx := 1
	for k, v := range data {
		col, err := a.dialect.QuoteIdent(k)
		if err != nil {
			return nil, nil, nil, err
		}
		cols = append(cols, col)
		placeholders = append(placeholders, a.dialect.Placeholder(idx))
		p, err := (sqlgen.Compiler{Dialect: a.dialect}).ToSQLParam(v)
		if err != nil {
			return nil, nil, nil, err
		}
		params = append(params, p)
		idx++
	}
	return cols, placeholders, params, nil
}

func mapToEntries(m map[string]qvalue.Value) []qvalue.MapEntry {
	entries := make([]qvalue.MapEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, qvalue.MapEntry{Key: k, Value: v})
	}
	return entries
}

func (a *Adapter) CreateMany(ctx context.Context, table string, rows []map[string]qvalue.Value, meta *schema.ModelMeta, batchSize int) ([]qvalue.Value, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	out := make([]qvalue.Value, 0, len(rows))
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, quickdberr.Connection(err, "begin batch insert tx for %q", table)
		}
		for _, row := range rows[start:end] {
			if err := a.assignID(row); err != nil {
				tx.Rollback()
				return nil, err
			}
			row, err := sqlgen.DropNulls(row)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			cols, placeholders, params, err := a.insertParts(row)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			tableIdent, err := a.dialect.QuoteIdent(table)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableIdent, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
			res, err := tx.ExecContext(ctx, stmt, params...)
			if err != nil {
				tx.Rollback()
				return nil, quickdberr.Query(err, "batch insert into %q", table)
			}
			if a.cfg.DB.IDStrategy.Kind == dbconfig.IDAutoIncrement {
				lastID, _ := res.LastInsertId()
				row["id"] = qvalue.I64(lastID)
			}
			out = append(out, qvalue.Map(mapToEntries(row)...))
		}
		if err := tx.Commit(); err != nil {
			return nil, quickdberr.Query(err, "commit batch insert for %q", table)
		}
	}
	return out, nil
}

func (a *Adapter) fieldKind(meta *schema.ModelMeta) sqlgen.FieldKind {
	return func(field string) schema.FieldTypeKind {
		if meta == nil {
			return schema.TypeString
		}
		if fd, ok := meta.Fields[field]; ok {
			return fd.Type.Kind
		}
		return schema.TypeString
	}
}

func (a *Adapter) FindByID(ctx context.Context, table string, id string, meta *schema.ModelMeta) (qvalue.Value, bool, error) {
	rows, err := a.Find(ctx, table, []query.QueryCondition{{Field: "id", Operator: query.OpEq, Value: qvalue.String(id)}},
		query.Options{Pagination: &query.Pagination{Limit: 1}}, meta)
	if err != nil {
		return qvalue.Null(), false, err
	}
	if len(rows) == 0 {
		return qvalue.Null(), false, nil
	}
	return rows[0], true, nil
}

func (a *Adapter) Find(ctx context.Context, table string, conditions []query.QueryCondition, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	return a.FindWithGroups(ctx, table, query.FromConditions(conditions), opts, meta)
}

func (a *Adapter) FindWithGroups(ctx context.Context, table string, group query.QueryConditionGroup, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return nil, err
	}
	selectCols := "*"
	if len(opts.Fields) > 0 {
		quoted := make([]string, len(opts.Fields))
		for i, f := range opts.Fields {
			q, err := a.dialect.QuoteIdent(f)
			if err != nil {
				return nil, err
			}
			quoted[i] = q
		}
		selectCols = strings.Join(quoted, ", ")
	}

	compiler := sqlgen.Compiler{Dialect: a.dialect, Fields: a.fieldKind(meta)}
	where, params, _, err := compiler.Compile(group, 1)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s", selectCols, tableIdent)
	if where != "" {
		stmt += " WHERE " + where
	}
	if len(opts.Sort) > 0 {
		var parts []string
		for _, s := range opts.Sort {
			col, err := a.dialect.QuoteIdent(s.Field)
			if err != nil {
				return nil, err
			}
			dir := "ASC"
			if s.Dir == query.Desc {
				dir = "DESC"
			}
			parts = append(parts, col+" "+dir)
		}
		stmt += " ORDER BY " + strings.Join(parts, ", ")
	}
	if opts.Pagination != nil {
		if opts.Pagination.Limit > 0 {
			stmt += fmt.Sprintf(" LIMIT %d", opts.Pagination.Limit)
		}
		if opts.Pagination.Skip > 0 {
			stmt += fmt.Sprintf(" OFFSET %d", opts.Pagination.Skip)
		}
	}

	rows, err := a.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, quickdberr.Query(err, "find in %q", table)
	}
	defer rows.Close()
	return scanRows(rows, meta)
}

func scanRows(rows *sql.Rows, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, quickdberr.Query(err, "read columns")
	}
	var out []qvalue.Value
	for rows.Next() {
		dests := make([]any, len(cols))
		vals := make([]any, len(cols))
		for i := range dests {
			dests[i] = &vals[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, quickdberr.Query(err, "scan row")
		}
		row := sqlgen.RowToMap(cols, vals)
		if meta != nil {
			row = schema.ProcessDataFieldsFromMetadata(row, meta.Fields)
		}
		out = append(out, qvalue.Map(mapToEntries(row)...))
	}
	if err := rows.Err(); err != nil {
		return nil, quickdberr.Query(err, "iterate rows")
	}
	return out, nil
}

func (a *Adapter) Update(ctx context.Context, table string, conditions []query.QueryCondition, data map[string]qvalue.Value, meta *schema.ModelMeta) (int64, error) {
	data, err := sqlgen.DropNulls(data)
	if err != nil {
		return 0, err
	}
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	var sets []string
	var params []any
	idx := 1
	for k, v := range data {
		col, err := a.dialect.QuoteIdent(k)
		if err != nil {
			return 0, err
		}
		p, err := (sqlgen.Compiler{Dialect: a.dialect}).ToSQLParam(v)
		if err != nil {
			return 0, err
		}
		sets = append(sets, fmt.Sprintf("%s = %s", col, a.dialect.Placeholder(idx)))
		params = append(params, p)
		idx++
	}
	compiler := sqlgen.Compiler{Dialect: a.dialect, Fields: a.fieldKind(meta)}
	where, whereParams, _, err := compiler.Compile(query.FromConditions(conditions), idx)
	if err != nil {
		return 0, err
	}
	params = append(params, whereParams...)

	stmt := fmt.Sprintf("UPDATE %s SET %s", tableIdent, strings.Join(sets, ", "))
	if where != "" {
		stmt += " WHERE " + where
	}
	res, err := a.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, quickdberr.Query(err, "update %q", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, quickdberr.Query(err, "read rows_affected for update on %q", table)
	}
	return n, nil
}

func (a *Adapter) UpdateWithOperations(ctx context.Context, table string, conditions []query.QueryCondition, ops []query.UpdateOperation, meta *schema.ModelMeta) (int64, error) {
	ops, err := sqlgen.DropNullOps(ops)
	if err != nil {
		return 0, err
	}
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	var sets []string
	var params []any
	idx := 1
	for _, op := range ops {
		col, err := a.dialect.QuoteIdent(op.Field)
		if err != nil {
			return 0, err
		}
		p, err := (sqlgen.Compiler{Dialect: a.dialect}).ToSQLParam(op.Value)
		if err != nil {
			return 0, err
		}
		ph := a.dialect.Placeholder(idx)
		idx++
		switch op.Operator {
		case query.UpdateSet:
			sets = append(sets, fmt.Sprintf("%s = %s", col, ph))
		case query.UpdateIncrement:
			sets = append(sets, fmt.Sprintf("%s = %s + %s", col, col, ph))
		case query.UpdateDecrement:
			sets = append(sets, fmt.Sprintf("%s = %s - %s", col, col, ph))
		case query.UpdateMultiply:
			sets = append(sets, fmt.Sprintf("%s = %s * %s", col, col, ph))
		case query.UpdateDivide:
			sets = append(sets, fmt.Sprintf("%s = %s / %s", col, col, ph))
		case query.UpdatePercentIncrease:
			sets = append(sets, fmt.Sprintf("%s = %s * (1 + %s / 100.0)", col, col, ph))
		case query.UpdatePercentDecrease:
			sets = append(sets, fmt.Sprintf("%s = %s * (1 - %s / 100.0)", col, col, ph))
		default:
			return 0, quickdberr.Query(nil, "unsupported update operator %q", op.Operator)
		}
		params = append(params, p)
	}
	compiler := sqlgen.Compiler{Dialect: a.dialect, Fields: a.fieldKind(meta)}
	where, whereParams, _, err := compiler.Compile(query.FromConditions(conditions), idx)
	if err != nil {
		return 0, err
	}
	params = append(params, whereParams...)

	stmt := fmt.Sprintf("UPDATE %s SET %s", tableIdent, strings.Join(sets, ", "))
	if where != "" {
		stmt += " WHERE " + where
	}
	res, err := a.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, quickdberr.Query(err, "update_with_operations %q", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, quickdberr.Query(err, "read rows_affected for update_with_operations on %q", table)
	}
	return n, nil
}

func (a *Adapter) UpdateByID(ctx context.Context, table string, id string, data map[string]qvalue.Value, meta *schema.ModelMeta) (bool, error) {
	n, err := a.Update(ctx, table, []query.QueryCondition{{Field: "id", Operator: query.OpEq, Value: qvalue.String(id)}}, data, meta)
	return n > 0, err
}

func (a *Adapter) Delete(ctx context.Context, table string, conditions []query.QueryCondition) (int64, error) {
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	compiler := sqlgen.Compiler{Dialect: a.dialect}
	where, params, _, err := compiler.Compile(query.FromConditions(conditions), 1)
	if err != nil {
		return 0, err
	}
	stmt := "DELETE FROM " + tableIdent
	if where != "" {
		stmt += " WHERE " + where
	}
	res, err := a.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, quickdberr.Query(err, "delete from %q", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, quickdberr.Query(err, "read rows_affected for delete on %q", table)
	}
	return n, nil
}

func (a *Adapter) DeleteByID(ctx context.Context, table string, id string) (bool, error) {
	n, err := a.Delete(ctx, table, []query.QueryCondition{{Field: "id", Operator: query.OpEq, Value: qvalue.String(id)}})
	return n > 0, err
}

func (a *Adapter) Count(ctx context.Context, table string, conditions []query.QueryCondition) (uint64, error) {
	tableIdent, err := a.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	compiler := sqlgen.Compiler{Dialect: a.dialect}
	where, params, _, err := compiler.Compile(query.FromConditions(conditions), 1)
	if err != nil {
		return 0, err
	}
	stmt := "SELECT count(*) FROM " + tableIdent
	if where != "" {
		stmt += " WHERE " + where
	}
	var n int64
	if err := a.db.QueryRowContext(ctx, stmt, params...).Scan(&n); err != nil {
		return 0, quickdberr.Query(err, "count in %q", table)
	}
	return uint64(n), nil
}

// --- Stored procedures: SQLite has no server-side procedure support. ---

func (a *Adapter) CreateStoredProcedure(ctx context.Context, name, definition string) error {
	return quickdberr.Other(nil, "sqlite does not support stored procedures")
}

func (a *Adapter) ExecuteStoredProcedure(ctx context.Context, name string, args ...any) (qvalue.Value, error) {
	return qvalue.Null(), quickdberr.Other(nil, "sqlite does not support stored procedures")
}

var _ adapter.Adapter = (*Adapter)(nil)
