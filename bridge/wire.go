package bridge

import (
	"encoding/json"
	"time"

	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/schema"
)

// wireCondition is one QueryCondition over the wire.
type wireCondition struct {
	Field    string          `json:"field"`
	Operator query.Operator  `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
}

func decodeConditions(in []wireCondition) ([]query.QueryCondition, error) {
	out := make([]query.QueryCondition, len(in))
	for i, c := range in {
		v, err := decodeValue(c.Value)
		if err != nil {
			return nil, err
		}
		out[i] = query.QueryCondition{Field: c.Field, Operator: c.Operator, Value: v}
	}
	return out, nil
}

// wireSort is one Sort entry over the wire.
type wireSort struct {
	Field string             `json:"field"`
	Dir   query.SortDirection `json:"dir"`
}

// wireOptions is query.Options over the wire.
type wireOptions struct {
	Sort       []wireSort `json:"sort,omitempty"`
	Skip       int        `json:"skip,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Fields     []string   `json:"fields,omitempty"`
	HasPage    bool       `json:"has_page,omitempty"`
}

func (o wireOptions) toOptions(conditions []query.QueryCondition) query.Options {
	sorts := make([]query.Sort, len(o.Sort))
	for i, s := range o.Sort {
		sorts[i] = query.Sort{Field: s.Field, Dir: s.Dir}
	}
	opts := query.Options{Conditions: conditions, Sort: sorts, Fields: o.Fields}
	if o.HasPage || o.Limit > 0 || o.Skip > 0 {
		opts.Pagination = &query.Pagination{Skip: o.Skip, Limit: o.Limit}
	}
	return opts
}

// request is the common envelope every bridge action body decodes into;
// unused fields for a given action are simply left at their zero value.
type request struct {
	Alias      string            `json:"alias,omitempty"`
	Table      string            `json:"table,omitempty"`
	ID         string            `json:"id,omitempty"`
	Data       map[string]json.RawMessage `json:"data,omitempty"`
	Conditions []wireCondition   `json:"conditions,omitempty"`
	Options    wireOptions       `json:"options,omitempty"`

	// register_model
	Fields  map[string]wireFieldSpec `json:"fields,omitempty"`
	Indexes []wireIndexSpec          `json:"indexes,omitempty"`

	// add_database
	Database *wireDatabaseConfig `json:"database,omitempty"`
}

// response is the {success, data, error} envelope §6 specifies.
type response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func errResponse(err error) ([]byte, error) {
	return json.Marshal(response{Success: false, Error: err.Error()})
}

func okResponse(data any) ([]byte, error) {
	b, err := json.Marshal(response{Success: true, Data: data})
	if err != nil {
		return nil, quickdberr.Serialization(err, "encode bridge response")
	}
	return b, nil
}

// wireFieldSpec is one FieldDefinition over the wire, recursing into
// ItemType/Fields the way schema.FieldType does for array/object fields.
type wireFieldSpec struct {
	Kind     schema.FieldTypeKind `json:"kind"`
	Required bool                 `json:"required,omitempty"`
	Unique   bool                 `json:"unique,omitempty"`
	Indexed  bool                 `json:"indexed,omitempty"`

	MaxLen int    `json:"max_len,omitempty"`
	MinLen int    `json:"min_len,omitempty"`
	Regex  string `json:"regex,omitempty"`

	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	Offset int `json:"offset,omitempty"`

	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	ItemType *wireFieldSpec `json:"item_type,omitempty"`
	ArrayMin int            `json:"array_min,omitempty"`
	ArrayMax int            `json:"array_max,omitempty"`

	Fields map[string]wireFieldSpec `json:"fields,omitempty"`

	Collection string `json:"collection,omitempty"`

	SQLiteCompat bool `json:"sqlite_compat,omitempty"`
}

func (s wireFieldSpec) toFieldType() schema.FieldType {
	ft := schema.FieldType{
		Kind:       s.Kind,
		MaxLen:     s.MaxLen,
		MinLen:     s.MinLen,
		Regex:      s.Regex,
		Min:        s.Min,
		Max:        s.Max,
		Offset:     s.Offset,
		Precision:  s.Precision,
		Scale:      s.Scale,
		ArrayMin:   s.ArrayMin,
		ArrayMax:   s.ArrayMax,
		Collection: s.Collection,
	}
	if s.ItemType != nil {
		item := s.ItemType.toFieldType()
		ft.ItemType = &item
	}
	if len(s.Fields) > 0 {
		ft.Fields = make(map[string]*schema.FieldDefinition, len(s.Fields))
		for name, sub := range s.Fields {
			ft.Fields[name] = sub.toFieldDefinition()
		}
	}
	return ft
}

func (s wireFieldSpec) toFieldDefinition() *schema.FieldDefinition {
	return &schema.FieldDefinition{
		Type:         s.toFieldType(),
		Required:     s.Required,
		Unique:       s.Unique,
		Indexed:      s.Indexed,
		SQLiteCompat: s.SQLiteCompat,
	}
}

// wireIndexSpec is one IndexDefinition over the wire.
type wireIndexSpec struct {
	Name   string   `json:"name,omitempty"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`
}

// wireDatabaseConfig is dbconfig.DatabaseConfig over the wire, for
// add_database.
type wireDatabaseConfig struct {
	Alias  string        `json:"alias"`
	DBType dbconfig.DBType `json:"db_type"`

	SQLitePath string `json:"sqlite_path,omitempty"`

	Host             string `json:"host,omitempty"`
	Port             int    `json:"port,omitempty"`
	Database         string `json:"database,omitempty"`
	User             string `json:"user,omitempty"`
	Password         string `json:"password,omitempty"`
	DirectConnection bool   `json:"direct_connection,omitempty"`

	MaxConns          int           `json:"max_conns,omitempty"`
	MinConns          int           `json:"min_conns,omitempty"`
	MaxRetries        int           `json:"max_retries,omitempty"`
	RetryInterval     time.Duration `json:"retry_interval,omitempty"`
	KeepaliveInterval time.Duration `json:"keepalive_interval,omitempty"`

	IDStrategyKind dbconfig.IDStrategyKind `json:"id_strategy"`
	MachineID      int64                   `json:"machine_id,omitempty"`
	DatacenterID   int64                   `json:"datacenter_id,omitempty"`
	CustomName     string                  `json:"custom_name,omitempty"`

	CacheEnabled bool          `json:"cache_enabled,omitempty"`
	CachePolicy  string        `json:"cache_policy,omitempty"`
	CacheCap     int           `json:"cache_capacity,omitempty"`
	CacheTTL     time.Duration `json:"cache_ttl,omitempty"`
}

func (w *wireDatabaseConfig) toDatabaseConfig() *dbconfig.DatabaseConfig {
	cfg := &dbconfig.DatabaseConfig{
		Alias:  w.Alias,
		DBType: w.DBType,
		Pool: dbconfig.PoolConfig{
			MaxConns:          w.MaxConns,
			MinConns:          w.MinConns,
			MaxRetries:        w.MaxRetries,
			RetryInterval:     w.RetryInterval,
			KeepaliveInterval: w.KeepaliveInterval,
		},
		IDStrategy: dbconfig.IDStrategy{
			Kind:         w.IDStrategyKind,
			MachineID:    w.MachineID,
			DatacenterID: w.DatacenterID,
			CustomName:   w.CustomName,
		},
	}
	if cfg.Pool.MaxConns <= 0 {
		cfg.Pool.MaxConns = 10
	}
	if w.DBType == dbconfig.SQLite {
		cfg.SQLite = &dbconfig.SQLiteConn{Path: w.SQLitePath}
	} else {
		cfg.Host = &dbconfig.HostConn{
			Host: w.Host, Port: w.Port, Database: w.Database,
			User: w.User, Password: w.Password, DirectConnection: w.DirectConnection,
		}
	}
	if w.CacheEnabled {
		cfg.Cache = &dbconfig.CacheConfig{
			Enabled: true, Policy: w.CachePolicy, Capacity: w.CacheCap, TTL: w.CacheTTL,
		}
	}
	return cfg
}
