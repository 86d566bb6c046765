package schema

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/forbearing/quickdb/qvalue"
)

// ProcessDataFieldsFromMetadata post-processes a row returned from a SQL
// backend: strings that look like JSON become Array/Object values,
// integers bound to boolean fields coerce to Bool, and DateTimeWithTz
// fields apply their declared offset to a UTC instant. Backends with
// native JSON/array columns (Postgres jsonb, Mongo BSON) should not route
// their rows through this: it exists specifically to undo the
// string-encoding SQLite/MySQL use for structured columns.
func ProcessDataFieldsFromMetadata(row map[string]qvalue.Value, fields map[string]*FieldDefinition) map[string]qvalue.Value {
	out := make(map[string]qvalue.Value, len(row))
	for k, v := range row {
		fd, ok := fields[k]
		if !ok {
			out[k] = v
			continue
		}
		out[k] = coerce(v, fd)
	}
	return out
}

func coerce(v qvalue.Value, fd *FieldDefinition) qvalue.Value {
	if v.IsNull() {
		return v
	}
	switch fd.Type.Kind {
	case TypeArray, TypeObject, TypeJson:
		if s, ok := v.AsString(); ok {
			trimmed := strings.TrimSpace(s)
			if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
				var raw any
				if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
					return qvalue.FromJSONValue(raw)
				}
			}
		}
		return v
	case TypeBoolean:
		if fd.SQLiteCompat {
			if i, ok := v.AsI64(); ok {
				return qvalue.Bool(i != 0)
			}
		}
		return v
	case TypeDateTimeWithTz:
		if t, ok := v.AsTime(); ok {
			loc := time.FixedZone("", fd.Type.Offset)
			return qvalue.DateTimeOffset(t.In(loc))
		}
		return v
	default:
		return v
	}
}
