package cache

import (
	"encoding/base64"
	"encoding/json"

	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
)

// taggedField is one field of a cached record: its Kind tag plus its
// untagged JSON rendering. Tagging lives one level deep (the record's
// direct fields) only — nested map/seq/json values inside a field stay
// untagged, per the "never embed tags inside containers" invariant.
type taggedField struct {
	Kind qvalue.Kind     `json:"k"`
	Val  json.RawMessage `json:"v"`
}

// EncodeRecord serializes a record (a KindMap Value representing one row)
// tagged per field, so DecodeRecord can reload it without re-inferring
// scalar types the way a plain JSON round trip would (avoiding a string
// that merely looks like a UUID or timestamp being reloaded as one).
func EncodeRecord(v qvalue.Value) ([]byte, error) {
	entries, ok := v.AsMap()
	if !ok {
		return nil, quickdberr.Serialization(nil, "EncodeRecord requires a KindMap value, got %s", v.Kind())
	}
	tagged := make(map[string]taggedField, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(qvalue.ToJSONValue(e.Value))
		if err != nil {
			return nil, quickdberr.Serialization(err, "encode cached record field %q", e.Key)
		}
		tagged[e.Key] = taggedField{Kind: e.Value.Kind(), Val: raw}
		order = append(order, e.Key)
	}
	return json.Marshal(struct {
		Order  []string               `json:"order"`
		Fields map[string]taggedField `json:"fields"`
	}{Order: order, Fields: tagged})
}

// DecodeRecord reverses EncodeRecord, reconstructing each field at its
// original Kind.
func DecodeRecord(data []byte) (qvalue.Value, error) {
	var wire struct {
		Order  []string               `json:"order"`
		Fields map[string]taggedField `json:"fields"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return qvalue.Value{}, quickdberr.Serialization(err, "decode cached record")
	}
	entries := make([]qvalue.MapEntry, 0, len(wire.Order))
	for _, key := range wire.Order {
		tf := wire.Fields[key]
		var raw any
		if err := json.Unmarshal(tf.Val, &raw); err != nil {
			return qvalue.Value{}, quickdberr.Serialization(err, "decode cached record field %q", key)
		}
		entries = append(entries, qvalue.MapEntry{Key: key, Value: retagValue(tf.Kind, raw)})
	}
	return qvalue.Map(entries...), nil
}

// retagValue rebuilds a Value of the given kind from its untagged JSON
// rendering. Container kinds (map/seq/json) fall back to FromJSONValue's
// inference since only the top-level tag is preserved.
func retagValue(kind qvalue.Kind, raw any) qvalue.Value {
	switch kind {
	case qvalue.KindNull:
		return qvalue.Null()
	case qvalue.KindBool:
		b, _ := raw.(bool)
		return qvalue.Bool(b)
	case qvalue.KindI64, qvalue.KindU64, qvalue.KindF64:
		// FromJSONValue already folds whole-valued floats back to I64;
		// U64 is not distinguishable on the wire so it decodes as I64,
		// matching the "coerce to signed" open-question resolution.
		return qvalue.FromJSONValue(raw)
	case qvalue.KindString:
		s, _ := raw.(string)
		return qvalue.String(s)
	case qvalue.KindBytes:
		s, _ := raw.(string)
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return qvalue.String(s)
		}
		return qvalue.Bytes(b)
	case qvalue.KindDateTimeUTC, qvalue.KindDateTimeOffset, qvalue.KindUUID:
		s, _ := raw.(string)
		return qvalue.FromJSONValue(s)
	default:
		return qvalue.FromJSONValue(raw)
	}
}

// EncodeRows serializes a query result as a plain, untagged JSON array:
// reloading re-infers scalar types the way FromJSONValue always does,
// matching the spec's "query results serialize as plain JSON arrays"
// rule.
func EncodeRows(rows []qvalue.Value) ([]byte, error) {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = qvalue.ToJSONValue(r)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, quickdberr.Serialization(err, "encode cached query rows")
	}
	return b, nil
}

// DecodeRows reverses EncodeRows.
func DecodeRows(data []byte) ([]qvalue.Value, error) {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, quickdberr.Serialization(err, "decode cached query rows")
	}
	rows := make([]qvalue.Value, len(raw))
	for i, r := range raw {
		rows[i] = qvalue.FromJSONValue(r)
	}
	return rows, nil
}
