// Package manager implements the pool manager: an alias→{pool, cache,
// id generator} registry, a default-alias selector, and the process-wide
// operations latch that refuses new databases once any read/write has
// run. Grounded on the teacher's database.DB/database.DBMap
// single-vs-multi-database split in database/database.go, generalized
// from "one primary plus named extras" to "arbitrary aliases, one
// default".
package manager

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/adapter/mongo"
	"github.com/forbearing/quickdb/adapter/mysql"
	"github.com/forbearing/quickdb/adapter/postgres"
	"github.com/forbearing/quickdb/adapter/sqlite"
	"github.com/forbearing/quickdb/cache"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/idgen"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/pool"
	"github.com/forbearing/quickdb/quickdberr"
)

// entry bundles everything AddDatabase builds for one alias.
type entry struct {
	pool    *pool.Pool
	cache   *cache.Manager // nil when caching is disabled for this alias
	idgen   *idgen.Generator
	dbType  dbconfig.DBType
}

// Manager is the process-wide pool manager. A single package-level
// instance (Default) is used by the dispatch core; tests may construct
// their own via New for isolation.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	defAlias string

	locked atomic.Bool
}

// New builds an empty Manager.
func New() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Default is the process-wide manager instance the dispatch/bridge
// packages operate against.
var Default = New()

// AddDatabase validates cfg, opens its adapter, wraps it in a cache layer
// when configured, and registers it under cfg.Alias. Refused once the
// global operations latch is set (the first successful read/write on the
// process), matching "add_database refuses when the latch is set".
func (m *Manager) AddDatabase(ctx context.Context, cfg *dbconfig.DatabaseConfig) error {
	if m.locked.Load() {
		return quickdberr.Config("cannot add database %q: global operations latch is set", cfg.Alias)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	_, exists := m.entries[cfg.Alias]
	m.mu.RUnlock()
	if exists {
		return quickdberr.Config("alias %q is already registered", cfg.Alias)
	}

	a, err := openAdapter(ctx, cfg)
	if err != nil {
		return err
	}

	gen, err := idgen.New(cfg.IDStrategy)
	if err != nil {
		a.Close()
		return err
	}

	var cacheMgr *cache.Manager
	if cfg.Cache != nil && cfg.Cache.Enabled {
		cacheMgr, err = cache.NewManager(cfg.Cache)
		if err != nil {
			a.Close()
			return err
		}
		a = cache.NewCachedAdapter(a, cacheMgr, cfg.Cache.TTL, "v1")
	}

	p := pool.New(cfg.Alias, a, cfg.Pool)

	m.mu.Lock()
	m.entries[cfg.Alias] = &entry{pool: p, cache: cacheMgr, idgen: gen, dbType: cfg.DBType}
	if m.defAlias == "" {
		m.defAlias = cfg.Alias
	}
	m.mu.Unlock()

	logger.Pool.Infow("database added", "alias", cfg.Alias, "db_type", cfg.DBType)
	return nil
}

func openAdapter(ctx context.Context, cfg *dbconfig.DatabaseConfig) (adapter.Adapter, error) {
	acfg := adapter.Config{Alias: cfg.Alias, DB: cfg}
	switch cfg.DBType {
	case dbconfig.SQLite:
		return sqlite.Open(acfg)
	case dbconfig.Postgres:
		return postgres.Open(acfg)
	case dbconfig.MySQL:
		return mysql.Open(acfg)
	case dbconfig.MongoDB:
		return mongo.Open(ctx, acfg)
	default:
		return nil, quickdberr.Config("unknown db_type %q", cfg.DBType)
	}
}

// RemoveDatabase tears down pool, cache, and id generator for alias, and
// re-selects a default from whatever aliases remain (arbitrary order,
// matching "re-selects a default").
func (m *Manager) RemoveDatabase(alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[alias]
	if !ok {
		return quickdberr.AliasNotFound(alias)
	}
	delete(m.entries, alias)

	if err := e.pool.Close(); err != nil {
		logger.Pool.Warnw("error closing pool during remove_database", "alias", alias, "error", err)
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			logger.Pool.Warnw("error closing cache during remove_database", "alias", alias, "error", err)
		}
	}

	if m.defAlias == alias {
		m.defAlias = ""
		for a := range m.entries {
			m.defAlias = a
			break
		}
	}
	return nil
}

// Resolve returns the pool for alias, or the default pool when alias is
// empty ("explicit -> default" resolution).
func (m *Manager) Resolve(alias string) (*pool.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if alias == "" {
		alias = m.defAlias
	}
	if alias == "" {
		return nil, quickdberr.AliasNotFound(alias)
	}
	e, ok := m.entries[alias]
	if !ok {
		return nil, quickdberr.AliasNotFound(alias)
	}
	m.markUsed()
	return e.pool, nil
}

// IDGenerator returns the id generator registered for alias (or default).
func (m *Manager) IDGenerator(alias string) (*idgen.Generator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if alias == "" {
		alias = m.defAlias
	}
	e, ok := m.entries[alias]
	if !ok {
		return nil, quickdberr.AliasNotFound(alias)
	}
	return e.idgen, nil
}

// DBType returns the configured backend type for alias (or default).
func (m *Manager) DBType(alias string) (dbconfig.DBType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if alias == "" {
		alias = m.defAlias
	}
	e, ok := m.entries[alias]
	if !ok {
		return "", quickdberr.AliasNotFound(alias)
	}
	return e.dbType, nil
}

// markUsed sets the global operations latch on first read/write, must be
// called with m.mu held (at least RLock).
func (m *Manager) markUsed() {
	m.locked.CompareAndSwap(false, true)
}

// DefaultAlias returns the currently selected default alias, or "" if
// none is registered.
func (m *Manager) DefaultAlias() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defAlias
}

// Locked reports whether the global operations latch has been set.
func (m *Manager) Locked() bool { return m.locked.Load() }

// AliasStats bundles pool and cache stats for one alias, per the
// supplemented "stats snapshot" feature.
type AliasStats struct {
	Pool  pool.Stats
	Cache *cache.Stats // nil when caching is disabled
}

// Stats returns a snapshot for alias (or default).
func (m *Manager) Stats(alias string) (AliasStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if alias == "" {
		alias = m.defAlias
	}
	e, ok := m.entries[alias]
	if !ok {
		return AliasStats{}, quickdberr.AliasNotFound(alias)
	}
	s := AliasStats{Pool: e.pool.Stats()}
	if e.cache != nil {
		cs := e.cache.Stats()
		s.Cache = &cs
	}
	return s, nil
}

// HealthCheck pings alias's (or default's) pool.
func (m *Manager) HealthCheck(ctx context.Context, alias string) error {
	p, err := m.resolveNoMark(alias)
	if err != nil {
		return err
	}
	return p.Health(ctx)
}

// resolveNoMark is Resolve without tripping the global operations latch,
// since a health check is not itself a logical read/write against stored
// data.
func (m *Manager) resolveNoMark(alias string) (*pool.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if alias == "" {
		alias = m.defAlias
	}
	e, ok := m.entries[alias]
	if !ok {
		return nil, quickdberr.AliasNotFound(alias)
	}
	return e.pool, nil
}

// Shutdown tears down every registered alias's pool and cache. Individual
// close failures are logged, not returned, so one misbehaving alias
// doesn't block releasing the rest (the multi-alias generalization of
// remove_database).
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for alias, e := range m.entries {
		if err := e.pool.Close(); err != nil {
			logger.Pool.Warnw("error closing pool during shutdown", "alias", alias, "error", err)
		}
		if e.cache != nil {
			if err := e.cache.Close(); err != nil {
				logger.Pool.Warnw("error closing cache during shutdown", "alias", alias, "error", err)
			}
		}
	}
	m.entries = make(map[string]*entry)
	m.defAlias = ""
}

// Aliases returns every currently registered alias name.
func (m *Manager) Aliases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.entries))
	for a := range m.entries {
		out = append(out, a)
	}
	return out
}
