package cache

import (
	"context"
	"time"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// maxCacheableRows bounds query-result caching to keep memory in check,
// per the cached-adapter-wrapper rule ("skip caching if result size >
// 1000").
const maxCacheableRows = 1000

// CachedAdapter decorates an adapter.Adapter with the read/invalidation
// rules from the cached-adapter-wrapper section: record-by-id caching,
// query-signature caching, and per-mutation invalidation. It implements
// adapter.Adapter itself so dispatch/pool code is agnostic to whether
// caching is enabled for an alias.
type CachedAdapter struct {
	adapter.Adapter
	mgr     *Manager
	ttl     time.Duration
	version string
}

// NewCachedAdapter wraps inner with mgr. version seeds the cache-key
// version component of QueryKey, used for bulk invalidation (bump it to
// invalidate every previously cached Find query without walking the table
// index). GroupsKey entries carry no version and are not affected.
func NewCachedAdapter(inner adapter.Adapter, mgr *Manager, ttl time.Duration, version string) *CachedAdapter {
	if version == "" {
		version = "v1"
	}
	return &CachedAdapter{Adapter: inner, mgr: mgr, ttl: ttl, version: version}
}

func (c *CachedAdapter) FindByID(ctx context.Context, table string, id string, meta *schema.ModelMeta) (qvalue.Value, bool, error) {
	if v, ok := c.mgr.GetRecord(table, id); ok {
		return v, true, nil
	}
	v, found, err := c.Adapter.FindByID(ctx, table, id, meta)
	if err != nil {
		return v, found, err
	}
	if found {
		c.mgr.SetRecord(table, id, v, c.ttl)
	}
	return v, found, nil
}

func (c *CachedAdapter) Find(ctx context.Context, table string, conditions []query.QueryCondition, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	key := QueryKey(table, ConditionSignature(conditions), OptionSignature(opts), c.version)
	if rows, ok := c.mgr.GetQuery(key); ok {
		return rows, nil
	}
	rows, err := c.Adapter.Find(ctx, table, conditions, opts, meta)
	if err != nil {
		return rows, err
	}
	c.cacheQueryResult(table, key, rows)
	return rows, nil
}

func (c *CachedAdapter) FindWithGroups(ctx context.Context, table string, group query.QueryConditionGroup, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	key := GroupsKey(table, GroupSignature(group), OptionSignature(opts))
	if rows, ok := c.mgr.GetQuery(key); ok {
		return rows, nil
	}
	rows, err := c.Adapter.FindWithGroups(ctx, table, group, opts, meta)
	if err != nil {
		return rows, err
	}
	c.cacheQueryResult(table, key, rows)
	return rows, nil
}

func (c *CachedAdapter) cacheQueryResult(table, key string, rows []qvalue.Value) {
	if len(rows) > maxCacheableRows {
		logger.Cache.Debugw("query result exceeds cacheable size, skipping cache write", "table", table, "rows", len(rows))
		return
	}
	// Empty results are cached too, to suppress lookup storms against a
	// miss that will keep missing until the next write.
	c.mgr.SetQuery(table, key, rows, c.ttl)
}

func (c *CachedAdapter) Create(ctx context.Context, table string, data map[string]qvalue.Value, meta *schema.ModelMeta) (qvalue.Value, error) {
	v, err := c.Adapter.Create(ctx, table, data, meta)
	if err == nil {
		c.mgr.DeleteQueriesForTable(table)
	}
	return v, err
}

func (c *CachedAdapter) CreateMany(ctx context.Context, table string, rows []map[string]qvalue.Value, meta *schema.ModelMeta, batchSize int) ([]qvalue.Value, error) {
	out, err := c.Adapter.CreateMany(ctx, table, rows, meta, batchSize)
	if err == nil {
		c.mgr.DeleteQueriesForTable(table)
	}
	return out, err
}

func (c *CachedAdapter) Update(ctx context.Context, table string, conditions []query.QueryCondition, data map[string]qvalue.Value, meta *schema.ModelMeta) (int64, error) {
	n, err := c.Adapter.Update(ctx, table, conditions, data, meta)
	if err == nil {
		c.mgr.DeleteQueriesForTable(table)
	}
	return n, err
}

func (c *CachedAdapter) UpdateWithOperations(ctx context.Context, table string, conditions []query.QueryCondition, ops []query.UpdateOperation, meta *schema.ModelMeta) (int64, error) {
	n, err := c.Adapter.UpdateWithOperations(ctx, table, conditions, ops, meta)
	if err == nil {
		c.mgr.DeleteQueriesForTable(table)
	}
	return n, err
}

func (c *CachedAdapter) UpdateByID(ctx context.Context, table string, id string, data map[string]qvalue.Value, meta *schema.ModelMeta) (bool, error) {
	ok, err := c.Adapter.UpdateByID(ctx, table, id, data, meta)
	if err == nil {
		c.mgr.DeleteRecord(table, id)
		c.mgr.DeleteQueriesForTable(table)
	}
	return ok, err
}

func (c *CachedAdapter) Delete(ctx context.Context, table string, conditions []query.QueryCondition) (int64, error) {
	n, err := c.Adapter.Delete(ctx, table, conditions)
	if err == nil {
		c.mgr.DeleteTable(table)
	}
	return n, err
}

func (c *CachedAdapter) DeleteByID(ctx context.Context, table string, id string) (bool, error) {
	ok, err := c.Adapter.DeleteByID(ctx, table, id)
	if err == nil {
		c.mgr.DeleteRecord(table, id)
		c.mgr.DeleteQueriesForTable(table)
	}
	return ok, err
}

func (c *CachedAdapter) DropTable(ctx context.Context, table string) error {
	err := c.Adapter.DropTable(ctx, table)
	if err == nil {
		c.mgr.DeleteTable(table)
	}
	return err
}

var _ adapter.Adapter = (*CachedAdapter)(nil)
