// Package registry holds the process-wide model registry: a concurrent
// map of collection name to *schema.ModelMeta, plus per-(table,index)
// locks so concurrent ensure_table_and_indexes calls don't race on DDL.
package registry

import (
	"context"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/schema"
)

// TableProvisioner is the subset of an adapter the registry needs to
// ensure a table and its indexes exist. Implemented by adapter.Adapter.
type TableProvisioner interface {
	TableExists(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, table string, meta *schema.ModelMeta) error
	CreateIndex(ctx context.Context, table, name string, fields []string, unique bool) error
}

var (
	models = cmap.New[*schema.ModelMeta]()

	indexMu    sync.Mutex
	indexLocks = make(map[string]*sync.Mutex)
)

// RegisterModel registers meta under its collection name, overwriting any
// prior entry (last-writer-wins) and logging at debug level.
func RegisterModel(meta *schema.ModelMeta) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	if _, existed := models.Get(meta.CollectionName); existed {
		logger.Registry.Debugw("model re-registered, overwriting prior metadata", "collection", meta.CollectionName)
	} else {
		logger.Registry.Debugw("model registered", "collection", meta.CollectionName)
	}
	models.Set(meta.CollectionName, meta)
	return nil
}

// Lookup returns the registered metadata for collection, if any.
func Lookup(collection string) (*schema.ModelMeta, bool) {
	return models.Get(collection)
}

// MustLookup returns the registered metadata for collection or a
// quickdberr.Config error naming it unregistered.
func MustLookup(collection string) (*schema.ModelMeta, error) {
	meta, ok := models.Get(collection)
	if !ok {
		return nil, quickdberr.Config("collection %q is not registered", collection)
	}
	return meta, nil
}

// indexLock returns the mutex guarding concurrent creation of (table,
// index), creating it on first use.
func indexLock(table, index string) *sync.Mutex {
	key := table + ":" + index
	indexMu.Lock()
	defer indexMu.Unlock()
	m, ok := indexLocks[key]
	if !ok {
		m = &sync.Mutex{}
		indexLocks[key] = m
	}
	return m
}

// EnsureTableAndIndexes looks up collection's metadata, asks adapter
// whether the table exists, creates it if not, then iterates declared
// indexes. Each index creation is serialized per (table,index); a
// "duplicate/already exists" driver error is swallowed, any other error
// is logged and the next index still proceeds.
func EnsureTableAndIndexes(ctx context.Context, adapter TableProvisioner, collection string) error {
	meta, err := MustLookup(collection)
	if err != nil {
		return err
	}

	exists, err := adapter.TableExists(ctx, collection)
	if err != nil {
		return quickdberr.Query(err, "check table exists %q", collection)
	}
	if !exists {
		if err := adapter.CreateTable(ctx, collection, meta); err != nil {
			return quickdberr.Query(err, "create table %q", collection)
		}
	}

	for _, idx := range meta.Indexes {
		name := meta.IndexName(idx)
		lock := indexLock(collection, name)
		lock.Lock()
		err := adapter.CreateIndex(ctx, collection, name, idx.Fields, idx.Unique)
		lock.Unlock()
		if err != nil {
			if quickdberr.IsDuplicate(err) {
				continue
			}
			logger.Registry.Errorw("failed to create index", "table", collection, "index", name, "error", err)
		}
	}
	return nil
}

// Collections returns every currently registered collection name.
func Collections() []string {
	return models.Keys()
}
