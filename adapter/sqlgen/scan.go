package sqlgen

import (
	"time"

	"github.com/forbearing/quickdb/qvalue"
)

// ValueFromColumn converts one database/sql scan result into a Value.
// The SQLite, MySQL and Postgres adapters route their scan results through
// this. It handles nil, int64, float64, bool, []byte, string and
// time.Time; any other Go type maps to Null. The Mongo adapter builds
// Values from its BSON types instead.
func ValueFromColumn(raw any) qvalue.Value {
	switch v := raw.(type) {
	case nil:
		return qvalue.Null()
	case int64:
		return qvalue.I64(v)
	case float64:
		return qvalue.F64(v)
	case bool:
		return qvalue.Bool(v)
	case []byte:
		return qvalue.String(string(v))
	case string:
		return qvalue.String(v)
	case time.Time:
		return qvalue.DateTimeUTC(v)
	default:
		return qvalue.Null()
	}
}

// RowToMap zips column names with their Scan results into a Value map,
// the shape the SQLite and MySQL adapters hand to
// schema.ProcessDataFieldsFromMetadata.
func RowToMap(cols []string, vals []any) map[string]qvalue.Value {
	out := make(map[string]qvalue.Value, len(cols))
	for i, c := range cols {
		out[c] = ValueFromColumn(vals[i])
	}
	return out
}
