package dbconfig

import (
	"github.com/creasty/defaults"

	"github.com/forbearing/quickdb/config"
)

// DefaultPoolConfig returns a PoolConfig seeded from config.App.Pool, the
// fallback every alias gets unless it overrides individual fields. When
// config.App.Pool has not been populated (MaxOpenConns is 0), the
// config.Pool tag defaults are used instead.
func DefaultPoolConfig() PoolConfig {
	p := config.App.Pool
	if p.MaxOpenConns <= 0 {
		_ = defaults.Set(&p)
	}
	return PoolConfig{
		MinConns:           1,
		MaxConns:           p.MaxOpenConns,
		ConnTimeout:        p.AcquireTimeout,
		IdleTimeout:        p.ConnMaxIdleTime,
		MaxLifetime:        p.ConnMaxLifetime,
		MaxRetries:         3,
		RetryInterval:      100_000_000, // 100ms, in time.Duration's ns units
		KeepaliveInterval:  30_000_000_000,
		HealthCheckTimeout: p.AcquireTimeout,
		BatchSize:          p.BatchSize,
	}
}

// DefaultCacheConfig returns a CacheConfig seeded from config.App.Cache.
func DefaultCacheConfig() *CacheConfig {
	c := config.App.Cache
	return &CacheConfig{
		Enabled:            c.Enabled,
		Policy:             c.Policy,
		Capacity:           c.Capacity,
		TTL:                c.TTL,
		L2Enabled:          c.L2Enabled,
		L2Path:             c.L2Path,
		L2CompressionCodec: c.L2CompressionCodec,
		L2CompressionMinKB: c.L2CompressionMinKB,
	}
}

// New builds a DatabaseConfig for alias/dbType with pool and cache
// defaulted from config.App, ready for the caller to set the connection
// variant and id strategy before calling Validate.
func New(alias string, dbType DBType) *DatabaseConfig {
	return &DatabaseConfig{
		Alias:  alias,
		DBType: dbType,
		Pool:   DefaultPoolConfig(),
		Cache:  DefaultCacheConfig(),
	}
}
