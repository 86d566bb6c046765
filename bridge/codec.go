package bridge

import (
	"encoding/base64"
	"encoding/json"

	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
)

// taggedValue is the wire rendition of a single qvalue.Value: a Kind tag
// alongside its untagged JSON rendering. Tagging lives one level deep
// only — nested map/seq values inside Val stay untagged, per §6's "nested
// arrays/objects use untagged scalars" and the same invariant
// cache/codec.go's taggedField already applies to cached records.
type taggedValue struct {
	Kind qvalue.Kind `json:"kind"`
	Val  any         `json:"val"`
}

// encodeValue renders v as a taggedValue JSON blob.
func encodeValue(v qvalue.Value) (json.RawMessage, error) {
	b, err := json.Marshal(taggedValue{Kind: v.Kind(), Val: qvalue.ToJSONValue(v)})
	if err != nil {
		return nil, quickdberr.Serialization(err, "encode bridge tagged value")
	}
	return b, nil
}

// decodeValue reconstructs a qvalue.Value from a taggedValue JSON blob.
// An empty/absent raw decodes to Null, so omitted optional fields don't
// need special-casing by callers.
func decodeValue(raw json.RawMessage) (qvalue.Value, error) {
	if len(raw) == 0 {
		return qvalue.Null(), nil
	}
	var tv struct {
		Kind qvalue.Kind     `json:"kind"`
		Val  json.RawMessage `json:"val"`
	}
	if err := json.Unmarshal(raw, &tv); err != nil {
		return qvalue.Value{}, quickdberr.Serialization(err, "decode bridge tagged value")
	}
	var x any
	if len(tv.Val) > 0 {
		if err := json.Unmarshal(tv.Val, &x); err != nil {
			return qvalue.Value{}, quickdberr.Serialization(err, "decode bridge tagged value payload")
		}
	}
	return retag(tv.Kind, x), nil
}

// retag rebuilds a Value of the given kind from its untagged JSON
// rendering. Container kinds (map/seq/json) fall back to FromJSONValue's
// inference since only the top-level tag is preserved, matching
// cache/codec.go's retagValue.
func retag(kind qvalue.Kind, raw any) qvalue.Value {
	switch kind {
	case qvalue.KindNull:
		return qvalue.Null()
	case qvalue.KindBool:
		b, _ := raw.(bool)
		return qvalue.Bool(b)
	case qvalue.KindI64, qvalue.KindU64, qvalue.KindF64:
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

// encodeDataMap renders a field->Value row as tagged JSON, the shape
// create/update payloads carry under "data" and responses carry for a
// single record.
func encodeDataMap(data map[string]qvalue.Value) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		raw, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	return out, nil
}

func decodeDataMap(data map[string]json.RawMessage) (map[string]qvalue.Value, error) {
	out := make(map[string]qvalue.Value, len(data))
	for k, raw := range data {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// rowToTagged converts a qvalue.Value row (KindMap) to a tagged field map
// for the response envelope, erroring if row isn't a map.
func rowToTagged(row qvalue.Value) (map[string]json.RawMessage, error) {
	entries, ok := row.AsMap()
	if !ok {
		return nil, quickdberr.Serialization(nil, "expected a record row, got kind %v", row.Kind())
	}
	data := make(map[string]qvalue.Value, len(entries))
	for _, e := range entries {
		data[e.Key] = e.Value
	}
	return encodeDataMap(data)
}

// rowsToTagged converts a slice of record rows to their tagged form.
func rowsToTagged(rows []qvalue.Value) ([]map[string]json.RawMessage, error) {
	out := make([]map[string]json.RawMessage, len(rows))
	for i, r := range rows {
		tagged, err := rowToTagged(r)
		if err != nil {
			return nil, err
		}
		out[i] = tagged
	}
	return out, nil
}
