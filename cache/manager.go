// Package cache implements the two-tier cache manager described in the
// cache manager internals section: a bounded L1 in-memory tier (LRU, LFU,
// or FIFO eviction) plus an optional L2 on-disk tier, wrapped by
// CachedAdapter to give any adapter.Adapter record/query caching with
// deterministic key derivation and table-scoped invalidation.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/qvalue"
)

// Manager owns one alias's cache tiers, stats, and the table→keys index
// that makes invalidation O(keys-per-table) instead of a full scan.
type Manager struct {
	l1  evictor
	l2  *l2Store
	ttl time.Duration

	stats statsTracker

	tableIdxMu sync.Mutex
	tableIdx   map[string]map[string]struct{}

	sweepDone chan struct{}
	sweepWg   sync.WaitGroup
}

// NewManager builds a Manager from cfg, opening the L2 store when
// cfg.L2Enabled. Pass a nil cfg to get cache.Enabled == false behavior at
// the call site; NewManager itself always builds a usable L1 tier.
func NewManager(cfg *dbconfig.CacheConfig) (*Manager, error) {
	if cfg == nil {
		cfg = &dbconfig.CacheConfig{Policy: "lru", Capacity: 10000, TTL: 5 * time.Minute}
	}
	m := &Manager{
		l1:        newEvictor(cfg.Policy, cfg.Capacity),
		ttl:       cfg.TTL,
		tableIdx:  make(map[string]map[string]struct{}),
		sweepDone: make(chan struct{}),
	}
	if cfg.L2Enabled {
		l2, err := openL2Store(cfg.L2Path, cfg.L2CompressionCodec, cfg.L2CompressionMinKB)
		if err != nil {
			return nil, err
		}
		m.l2 = l2
	}
	m.sweepWg.Add(1)
	go m.sweepLoop()
	return m, nil
}

// sweepLoop actively expires L1 entries past their TTL every 30s, the
// "periodic sweep" the cache manager internals section requires in
// addition to lazy (on-read) expiry.
func (m *Manager) sweepLoop() {
	defer m.sweepWg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			for _, key := range m.l1.keys() {
				if p, ok := m.l1.get(key); ok && p.expired(now) {
					m.l1.delete(key)
					m.unindex(key)
				}
			}
		case <-m.sweepDone:
			return
		}
	}
}

func (m *Manager) tableOf(key string) string {
	// Keys are "rat_quickdb:{table}:...".
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func (m *Manager) index(key string) {
	table := m.tableOf(key)
	if table == "" {
		return
	}
	m.tableIdxMu.Lock()
	defer m.tableIdxMu.Unlock()
	set, ok := m.tableIdx[table]
	if !ok {
		set = make(map[string]struct{})
		m.tableIdx[table] = set
	}
	set[key] = struct{}{}
}

func (m *Manager) unindex(key string) {
	table := m.tableOf(key)
	if table == "" {
		return
	}
	m.tableIdxMu.Lock()
	defer m.tableIdxMu.Unlock()
	if set, ok := m.tableIdx[table]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(m.tableIdx, table)
		}
	}
}

func (m *Manager) keysForTable(table string) []string {
	m.tableIdxMu.Lock()
	defer m.tableIdxMu.Unlock()
	set, ok := m.tableIdx[table]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func (m *Manager) effectiveTTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return m.ttl
}

// GetRecord looks up a cached record by its derived key.
func (m *Manager) GetRecord(table, id string) (qvalue.Value, bool) {
	start := time.Now()
	key := RecordKey(table, id)
	defer func() { m.stats.recordLatency(time.Since(start)) }()

	if p, ok := m.l1.get(key); ok {
		if p.expired(time.Now()) {
			m.l1.delete(key)
			m.unindex(key)
		} else {
			m.stats.recordHit()
			return p.value.(qvalue.Value), true
		}
	}
	if m.l2 != nil {
		if raw, ok, err := m.l2.get(key); err == nil && ok {
			v, err := DecodeRecord(raw)
			if err == nil {
				m.stats.recordHit()
				m.l1.set(key, payload{value: v, expiresAt: time.Now().Add(m.ttl)})
				m.index(key)
				return v, true
			}
			logger.Cache.Warnw("L2 record decode failed, treating as miss", "key", key, "error", err)
		}
	}
	m.stats.recordMiss()
	return qvalue.Value{}, false
}

// SetRecord caches v under table/id with ttl (0 uses the manager default).
func (m *Manager) SetRecord(table, id string, v qvalue.Value, ttl time.Duration) {
	key := RecordKey(table, id)
	expiresAt := time.Now().Add(m.effectiveTTL(ttl))
	m.l1.set(key, payload{value: v, expiresAt: expiresAt})
	m.index(key)
	m.stats.recordWrite()
	if m.l2 != nil {
		if raw, err := EncodeRecord(v); err == nil {
			m.l2.set(table, key, raw, expiresAt)
		} else {
			logger.Cache.Warnw("L2 record encode failed, caching in L1 only", "key", key, "error", err)
		}
	}
}

// GetQuery looks up a cached query result by its already-derived key
// (the caller — CachedAdapter — owns signature derivation).
func (m *Manager) GetQuery(key string) ([]qvalue.Value, bool) {
	start := time.Now()
	defer func() { m.stats.recordLatency(time.Since(start)) }()

	if p, ok := m.l1.get(key); ok {
		if p.expired(time.Now()) {
			m.l1.delete(key)
			m.unindex(key)
		} else {
			m.stats.recordHit()
			return p.value.([]qvalue.Value), true
		}
	}
	if m.l2 != nil {
		if raw, ok, err := m.l2.get(key); err == nil && ok {
			rows, err := DecodeRows(raw)
			if err == nil {
				m.stats.recordHit()
				m.l1.set(key, payload{value: rows, expiresAt: time.Now().Add(m.ttl)})
				m.index(key)
				return rows, true
			}
			logger.Cache.Warnw("L2 query decode failed, treating as miss", "key", key, "error", err)
		}
	}
	m.stats.recordMiss()
	return nil, false
}

// SetQuery caches rows under key. Callers (CachedAdapter) are responsible
// for the "skip caching if result size > 1000" rule; Manager itself
// caches whatever it's given, including an empty slice (suppresses
// lookup storms per the cached-adapter-wrapper section).
func (m *Manager) SetQuery(table, key string, rows []qvalue.Value, ttl time.Duration) {
	expiresAt := time.Now().Add(m.effectiveTTL(ttl))
	m.l1.set(key, payload{value: rows, expiresAt: expiresAt})
	m.index(key)
	m.stats.recordWrite()
	if m.l2 != nil {
		if raw, err := EncodeRows(rows); err == nil {
			m.l2.set(table, key, raw, expiresAt)
		} else {
			logger.Cache.Warnw("L2 query encode failed, caching in L1 only", "key", key, "error", err)
		}
	}
}

// DeleteRecord evicts one record's cache entry.
func (m *Manager) DeleteRecord(table, id string) {
	key := RecordKey(table, id)
	m.l1.delete(key)
	m.unindex(key)
	m.stats.recordDelete()
	if m.l2 != nil {
		m.l2.delete(key)
	}
}

// DeleteQueriesForTable evicts every query/groups cache entry for table,
// preserving record entries (the "create"/"update" invalidation rule).
func (m *Manager) DeleteQueriesForTable(table string) {
	prefix := TablePrefix(table) + "query:"
	groupsPrefix := TablePrefix(table) + "groups:"
	for _, key := range m.keysForTable(table) {
		if strings.HasPrefix(key, prefix) || strings.HasPrefix(key, groupsPrefix) {
			m.l1.delete(key)
			m.unindex(key)
			m.stats.recordDelete()
		}
	}
	// L2 has no per-subprefix delete; queries also carry a short TTL so a
	// stale L2 entry only risks a brief staleness window there, never an
	// unbounded one — acceptable per the cache's "last resort miss" policy.
}

// DeleteTable evicts every cache entry (record and query) under table,
// the "drop_table" / "delete" invalidation rule.
func (m *Manager) DeleteTable(table string) {
	for _, key := range m.keysForTable(table) {
		m.l1.delete(key)
		m.stats.recordDelete()
	}
	m.tableIdxMu.Lock()
	delete(m.tableIdx, table)
	m.tableIdxMu.Unlock()
	if m.l2 != nil {
		m.l2.deleteTable(table)
	}
}

// DeleteByPattern evicts every L1 key matching a `*`/`?` glob pattern.
func (m *Manager) DeleteByPattern(pattern string) {
	for _, key := range m.l1.keys() {
		if MatchPattern(pattern, key) {
			m.l1.delete(key)
			m.unindex(key)
			m.stats.recordDelete()
		}
	}
}

// Clear evicts every cache entry across both tiers.
func (m *Manager) Clear() {
	m.l1.purge()
	m.tableIdxMu.Lock()
	m.tableIdx = make(map[string]map[string]struct{})
	m.tableIdxMu.Unlock()
	if m.l2 != nil {
		m.l2.clear()
	}
}

// Stats returns a snapshot of hit/miss/write/delete counters and hit rate.
func (m *Manager) Stats() Stats {
	return m.stats.snapshot(m.l1.len())
}

// Close stops the background sweep loop and, if enabled, the L2 store.
func (m *Manager) Close() error {
	close(m.sweepDone)
	m.sweepWg.Wait()
	if m.l2 != nil {
		return m.l2.close()
	}
	return nil
}
