package mongo

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/forbearing/quickdb/qvalue"
)

// toBSONValue renders v as a native bson-friendly value: unlike the JSON
// codec, Mongo keeps time.Time, []byte, and UUID-as-string as first-class
// BSON types rather than flattening them to strings, since mongo-driver
// marshals them natively.
func toBSONValue(v qvalue.Value) any {
	switch v.Kind() {
	case qvalue.KindNull:
		return nil
	case qvalue.KindBool:
		b, _ := v.AsBool()
		return b
	case qvalue.KindI64:
		i, _ := v.AsI64()
		return i
	case qvalue.KindU64:
		u, _ := v.AsU64()
		return int64(u)
	case qvalue.KindF64:
		f, _ := v.AsF64()
		return f
	case qvalue.KindString:
		s, _ := v.AsString()
		return s
	case qvalue.KindBytes:
		b, _ := v.AsBytes()
		return b
	case qvalue.KindDateTimeUTC, qvalue.KindDateTimeOffset:
		t, _ := v.AsTime()
		return t
	case qvalue.KindUUID:
		u, _ := v.AsUUID()
		return u.String()
	case qvalue.KindJSON:
		j, _ := v.AsJSON()
		return j
	case qvalue.KindMap:
		entries, _ := v.AsMap()
		doc := bson.M{}
		for _, e := range entries {
			doc[e.Key] = toBSONValue(e.Value)
		}
		return doc
	case qvalue.KindSeq:
		items, _ := v.AsSeq()
		arr := make(bson.A, len(items))
		for i, item := range items {
			arr[i] = toBSONValue(item)
		}
		return arr
	default:
		return nil
	}
}

// fromBSONValue reconstructs a Value from a decoded BSON document field,
// promoting the handful of native types the Go BSON library hands back
// (bson.M/bson.D/bson.A/bson.ObjectID/bson.DateTime/...).
func fromBSONValue(raw any) qvalue.Value {
	switch x := raw.(type) {
	case nil:
		return qvalue.Null()
	case bool:
		return qvalue.Bool(x)
	case int32:
		return qvalue.I64(int64(x))
	case int64:
		return qvalue.I64(x)
	case float64:
		return qvalue.F64(x)
	case string:
		return qvalue.String(x)
	case []byte:
		return qvalue.Bytes(x)
	case bson.Binary:
		return qvalue.Bytes(x.Data)
	case bson.DateTime:
		return qvalue.DateTimeUTC(x.Time())
	case bson.ObjectID:
		return qvalue.String(x.Hex())
	case bson.M:
		entries := make([]qvalue.MapEntry, 0, len(x))
		for k, v := range x {
			entries = append(entries, qvalue.MapEntry{Key: k, Value: fromBSONValue(v)})
		}
		return qvalue.Map(entries...)
	case bson.D:
		entries := make([]qvalue.MapEntry, 0, len(x))
		for _, e := range x {
			entries = append(entries, qvalue.MapEntry{Key: e.Key, Value: fromBSONValue(e.Value)})
		}
		return qvalue.Map(entries...)
	case bson.A:
		items := make([]qvalue.Value, len(x))
		for i, v := range x {
			items[i] = fromBSONValue(v)
		}
		return qvalue.Seq(items...)
	default:
		return qvalue.JSON(x)
	}
}

func docToMap(doc bson.M) map[string]qvalue.Value {
	out := make(map[string]qvalue.Value, len(doc))
	for k, v := range doc {
		out[k] = fromBSONValue(v)
	}
	return out
}

func mapToEntries(m map[string]qvalue.Value) []qvalue.MapEntry {
	entries := make([]qvalue.MapEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, qvalue.MapEntry{Key: k, Value: v})
	}
	return entries
}
