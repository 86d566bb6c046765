// Package dbconfig defines the per-database configuration surface:
// DatabaseConfig and its nested builders, which enforce that every field
// is set explicitly and that the connection variant matches DBType before
// manager.AddDatabase will accept it.
package dbconfig

import (
	"time"

	"github.com/forbearing/quickdb/quickdberr"
)

// DBType names a supported backend.
type DBType string

const (
	SQLite   DBType = "sqlite"
	Postgres DBType = "postgres"
	MySQL    DBType = "mysql"
	MongoDB  DBType = "mongodb"
)

// IDStrategyKind names an id-generation strategy.
type IDStrategyKind string

const (
	IDAutoIncrement IDStrategyKind = "auto_increment"
	IDUuid          IDStrategyKind = "uuid"
	IDSnowflake     IDStrategyKind = "snowflake"
	IDObjectId      IDStrategyKind = "object_id"
	IDCustom        IDStrategyKind = "custom"
)

// IDStrategy selects how new records on an alias are assigned an id.
type IDStrategy struct {
	Kind         IDStrategyKind
	MachineID    int64 // Snowflake, 0..31
	DatacenterID int64 // Snowflake, 0..31
	CustomName   string
}

// SQLiteConn is the connection-variant for DBType SQLite.
type SQLiteConn struct {
	Path string
}

// HostConn is the connection-variant shared by Postgres/MySQL/Mongo.
type HostConn struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// DirectConnection, Mongo-only: bypass topology discovery and talk to
	// exactly the given host. Its interaction with a replica-set's TLS/ZSTD
	// settings is an open question.
	DirectConnection bool
}

// PoolConfig configures the connection pool owning an alias.
type PoolConfig struct {
	MinConns           int
	MaxConns           int
	ConnTimeout        time.Duration
	IdleTimeout        time.Duration
	MaxLifetime        time.Duration
	MaxRetries         int
	RetryInterval      time.Duration
	KeepaliveInterval  time.Duration
	HealthCheckTimeout time.Duration
	BatchSize          int
}

// TLSConfig is the optional TLS surface for network backends.
type TLSConfig struct {
	Enabled          bool
	CACert           string
	ClientCert       string
	ClientKey        string
	VerifyServerCert bool
	VerifyHostname   bool
	MinTLSVersion    string
	CipherSuites     []string
}

// ZstdConfig is the optional Mongo wire-compression surface.
type ZstdConfig struct {
	Enabled        bool
	Level          int // 1..22
	ThresholdBytes int
}

// CacheConfig is the optional per-alias cache configuration; when nil or
// not Enabled, manager.AddDatabase builds no cache for the alias. New
// fills it from config.App.Cache.
type CacheConfig struct {
	Enabled  bool
	Policy   string // "lru" | "lfu" | "fifo"
	Capacity int
	TTL      time.Duration

	L2Enabled          bool
	L2Path             string
	L2CompressionCodec string // "lz4" | "zstd" | ""
	L2CompressionMinKB int
}

// DatabaseConfig is the full configuration for one alias, built via
// New and validated by Validate before manager.AddDatabase
// accepts it.
type DatabaseConfig struct {
	Alias      string
	DBType     DBType
	SQLite     *SQLiteConn
	Host       *HostConn
	Pool       PoolConfig
	IDStrategy IDStrategy
	Cache      *CacheConfig
	TLS        *TLSConfig
	Zstd       *ZstdConfig
}

// Validate enforces that every required field is set and that the
// populated connection variant matches DBType, per the builder contract
// in the spec ("construction fails if the connection variant does not
// match db_type").
func (c *DatabaseConfig) Validate() error {
	if c.Alias == "" {
		return quickdberr.Config("alias must be set")
	}
	switch c.DBType {
	case SQLite:
		if c.SQLite == nil || c.SQLite.Path == "" {
			return quickdberr.Config("db_type sqlite requires a SQLiteConn with Path set")
		}
		if c.Host != nil {
			return quickdberr.Config("db_type sqlite must not set a HostConn")
		}
	case Postgres, MySQL, MongoDB:
		if c.Host == nil || c.Host.Database == "" {
			return quickdberr.Config("db_type %s requires a HostConn with Database set", c.DBType)
		}
		if c.SQLite != nil {
			return quickdberr.Config("db_type %s must not set a SQLiteConn", c.DBType)
		}
	default:
		return quickdberr.Config("unknown db_type %q", c.DBType)
	}

	switch c.IDStrategy.Kind {
	case IDAutoIncrement, IDUuid, IDObjectId:
	case IDSnowflake:
		if c.IDStrategy.MachineID < 0 || c.IDStrategy.MachineID > 31 {
			return quickdberr.Config("snowflake machine_id must be in [0,31]")
		}
		if c.IDStrategy.DatacenterID < 0 || c.IDStrategy.DatacenterID > 31 {
			return quickdberr.Config("snowflake datacenter_id must be in [0,31]")
		}
	case IDCustom:
		if c.IDStrategy.CustomName == "" {
			return quickdberr.Config("id_strategy custom requires a CustomName")
		}
	default:
		return quickdberr.Config("unknown id_strategy %q", c.IDStrategy.Kind)
	}

	if c.Pool.MaxConns <= 0 {
		return quickdberr.Config("pool.max_conns must be > 0")
	}
	if c.Pool.MinConns < 0 || c.Pool.MinConns > c.Pool.MaxConns {
		return quickdberr.Config("pool.min_conns must be in [0, max_conns]")
	}
	return nil
}
