package qvalue

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/forbearing/quickdb/quickdberr"
)

// ToJSONValue renders v into a plain `any` suitable for json.Marshal, such
// that containers never embed a type tag: nested scalars appear as bare
// JSON scalars (bytes become a base64 string, datetimes an RFC 3339
// string, uuids their canonical string form) so a later FromJSONValue can
// reload without a double tag layer.
func ToJSONValue(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindI64:
		return v.i64
	case KindU64:
		return v.u64
	case KindF64:
		return v.f64
	case KindString:
		return v.str
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.bytes)
	case KindDateTimeUTC:
		return v.t.UTC().Format(time.RFC3339Nano)
	case KindDateTimeOffset:
		return v.t.Format(time.RFC3339Nano)
	case KindUUID:
		return v.u.String()
	case KindJSON:
		return v.json
	case KindMap:
		out := make(map[string]any, len(v.m))
		for _, e := range v.m {
			out[e.Key] = ToJSONValue(e.Value)
		}
		return out
	case KindSeq:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = ToJSONValue(e)
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON lets Value satisfy json.Marshaler directly.
func (v Value) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(ToJSONValue(v))
	if err != nil {
		return nil, quickdberr.Serialization(err, "marshal value")
	}
	return b, nil
}

// FromJSONValue builds a Value from an already-decoded JSON value (the
// output of json.Unmarshal into an `any`), attempting type promotion for
// strings that look like UUIDs or RFC 3339 datetimes. On failure to
// promote, the original string is kept as KindString.
func FromJSONValue(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return fromJSONString(x)
	case float64:
		return fromJSONNumber(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return I64(i)
		}
		f, _ := x.Float64()
		return F64(f)
	case map[string]any:
		entries := make([]MapEntry, 0, len(x))
		for k, v := range x {
			entries = append(entries, MapEntry{Key: k, Value: FromJSONValue(v)})
		}
		return Map(entries...)
	case []any:
		items := make([]Value, len(x))
		for i, v := range x {
			items[i] = FromJSONValue(v)
		}
		return Seq(items...)
	default:
		return JSON(raw)
	}
}

func fromJSONNumber(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<63 {
		return I64(int64(f))
	}
	return F64(f)
}

func fromJSONString(s string) Value {
	if u, err := uuid.Parse(s); err == nil {
		return UUID(u)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		if _, offset := t.Zone(); offset == 0 {
			return DateTimeUTC(t)
		}
		return DateTimeOffset(t)
	}
	// Lenient probe for datetime-shaped strings dateparse can recognize
	// but that aren't strict RFC 3339 (e.g. missing timezone colon).
	if looksLikeDateTime(s) {
		if t, err := dateparse.ParseAny(s); err == nil {
			return DateTimeUTC(t.UTC())
		}
	}
	return String(s)
}

// looksLikeDateTime is a cheap pre-filter so plain strings (names, enum
// values) don't pay dateparse's full parse cost.
func looksLikeDateTime(s string) bool {
	if len(s) < 8 || len(s) > 40 {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6
}

// UnmarshalJSON lets *Value satisfy json.Unmarshaler, promoting scalars
// the way FromJSONValue does.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return quickdberr.Serialization(err, "unmarshal value")
	}
	*v = FromJSONValue(raw)
	return nil
}
