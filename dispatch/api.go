package dispatch

import (
	"context"

	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
)

// Create inserts data into table on alias (empty alias means the default),
// returning the inserted row with its generated/assigned id populated.
func (c *Core) Create(ctx context.Context, alias, table string, data map[string]qvalue.Value) (qvalue.Value, error) {
	v, _, err := c.submit(&request{kind: opCreate, ctx: ctx, alias: alias, table: table, data: data})
	if err != nil {
		return qvalue.Value{}, err
	}
	return v.(qvalue.Value), nil
}

// CreateMany batches inserts for rows, each assigned an id the same way
// Create assigns one, in chunks of batchSize.
func (c *Core) CreateMany(ctx context.Context, alias, table string, rows []map[string]qvalue.Value, batchSize int) ([]qvalue.Value, error) {
	v, _, err := c.submit(&request{kind: opCreateMany, ctx: ctx, alias: alias, table: table, rows: rows, batchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return v.([]qvalue.Value), nil
}

// Find runs conditions (an implicit AND) against table, applying opts.
func (c *Core) Find(ctx context.Context, alias, table string, conditions []query.QueryCondition, opts query.Options) ([]qvalue.Value, error) {
	v, _, err := c.submit(&request{kind: opFind, ctx: ctx, alias: alias, table: table, conditions: conditions, opts: opts})
	if err != nil {
		return nil, err
	}
	return v.([]qvalue.Value), nil
}

// FindWithGroups runs an explicit AND/OR condition tree against table.
func (c *Core) FindWithGroups(ctx context.Context, alias, table string, group query.QueryConditionGroup, opts query.Options) ([]qvalue.Value, error) {
	v, _, err := c.submit(&request{kind: opFindWithGroups, ctx: ctx, alias: alias, table: table, group: group, opts: opts})
	if err != nil {
		return nil, err
	}
	return v.([]qvalue.Value), nil
}

// FindByID fetches a single row by id; found is false when no row matches.
func (c *Core) FindByID(ctx context.Context, alias, table, id string) (row qvalue.Value, found bool, err error) {
	v, found, err := c.submit(&request{kind: opFindByID, ctx: ctx, alias: alias, table: table, id: id})
	if err != nil {
		return qvalue.Value{}, false, err
	}
	return v.(qvalue.Value), found, nil
}

// Count reports how many rows in table satisfy conditions.
func (c *Core) Count(ctx context.Context, alias, table string, conditions []query.QueryCondition) (uint64, error) {
	v, _, err := c.submit(&request{kind: opCount, ctx: ctx, alias: alias, table: table, conditions: conditions})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// Update applies data to every row matching conditions, returning the
// number of rows affected.
func (c *Core) Update(ctx context.Context, alias, table string, conditions []query.QueryCondition, data map[string]qvalue.Value) (int64, error) {
	v, _, err := c.submit(&request{kind: opUpdate, ctx: ctx, alias: alias, table: table, conditions: conditions, data: data})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// UpdateWithOperations applies field transforms (increment, multiply, ...)
// to every row matching conditions.
func (c *Core) UpdateWithOperations(ctx context.Context, alias, table string, conditions []query.QueryCondition, ops []query.UpdateOperation) (int64, error) {
	v, _, err := c.submit(&request{kind: opUpdateWithOperations, ctx: ctx, alias: alias, table: table, conditions: conditions, ops: ops})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// UpdateByID applies data to the single row identified by id.
func (c *Core) UpdateByID(ctx context.Context, alias, table, id string, data map[string]qvalue.Value) (bool, error) {
	_, found, err := c.submit(&request{kind: opUpdateByID, ctx: ctx, alias: alias, table: table, id: id, data: data})
	return found, err
}

// Delete removes every row matching conditions, returning the number of
// rows affected.
func (c *Core) Delete(ctx context.Context, alias, table string, conditions []query.QueryCondition) (int64, error) {
	v, _, err := c.submit(&request{kind: opDelete, ctx: ctx, alias: alias, table: table, conditions: conditions})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// DeleteByID removes the single row identified by id.
func (c *Core) DeleteByID(ctx context.Context, alias, table, id string) (bool, error) {
	_, found, err := c.submit(&request{kind: opDeleteByID, ctx: ctx, alias: alias, table: table, id: id})
	return found, err
}
