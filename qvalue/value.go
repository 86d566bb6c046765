// Package qvalue implements Value, the tagged-union runtime value that
// flows between callers, adapters, and the cache. It is the idiomatic-Go
// rendition of a sum type: a struct carrying a Kind tag plus exactly one
// populated field, with typed accessors and a JSON codec that never embeds
// the tag inside a container (array/object) on the wire.
package qvalue

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindU64
	KindF64
	KindString
	KindBytes
	KindDateTimeOffset // datetime with a preserved UTC offset
	KindDateTimeUTC
	KindUUID
	KindJSON // an already-decoded JSON-ish value (map[string]any / []any / scalar)
	KindMap  // ordered map<string,Value>
	KindSeq  // sequence<Value>
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDateTimeOffset:
		return "datetime_offset"
	case KindDateTimeUTC:
		return "datetime_utc"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	case KindMap:
		return "map"
	case KindSeq:
		return "seq"
	default:
		return "unknown"
	}
}

// MapEntry is one key/value pair of an ordered Value map. Order is
// preserved so cache signatures and JSON output are deterministic.
type MapEntry struct {
	Key   string
	Value Value
}

// Value is the tagged union described in the data model: exactly one of
// the typed fields below is meaningful, selected by Kind.
type Value struct {
	kind Kind

	b     bool
	i64   int64
	u64   uint64
	f64   float64
	str   string
	bytes []byte
	t     time.Time
	// offset is the originally-observed UTC offset in seconds, preserved
	// only for KindDateTimeOffset so re-serialization keeps the caller's
	// offset instead of normalizing to "Z".
	offset int
	u      uuid.UUID
	json   any
	m      []MapEntry
	seq    []Value
}

func (v Value) Kind() Kind { return v.kind }

func Null() Value { return Value{kind: KindNull} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func I64(i int64) Value { return Value{kind: KindI64, i64: i} }
func U64(u uint64) Value { return Value{kind: KindU64, u64: u} }
func F64(f float64) Value { return Value{kind: KindF64, f64: f} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: append([]byte(nil), b...)} }

// DateTimeUTC builds a datetime value with no preserved offset (always
// rendered with a "Z" suffix).
func DateTimeUTC(t time.Time) Value { return Value{kind: KindDateTimeUTC, t: t.UTC()} }

// DateTimeOffset builds a datetime value that remembers t's original
// offset so ToJSONValue re-emits the same offset instead of normalizing
// to UTC.
func DateTimeOffset(t time.Time) Value {
	_, offset := t.Zone()
	return Value{kind: KindDateTimeOffset, t: t, offset: offset}
}

func UUID(u uuid.UUID) Value { return Value{kind: KindUUID, u: u} }

// JSON wraps an already-decoded JSON value (map[string]any, []any, or a
// scalar) that should pass through to the wire untagged, verbatim.
func JSON(v any) Value { return Value{kind: KindJSON, json: v} }

// Map builds an ordered map value, preserving the given entry order.
func Map(entries ...MapEntry) Value { return Value{kind: KindMap, m: entries} }

// Seq builds a sequence value.
func Seq(items ...Value) Value { return Value{kind: KindSeq, seq: items} }

func (v Value) AsBool() (bool, bool)          { return v.b, v.kind == KindBool }
func (v Value) AsI64() (int64, bool)          { return v.i64, v.kind == KindI64 }
func (v Value) AsU64() (uint64, bool)         { return v.u64, v.kind == KindU64 }
func (v Value) AsF64() (float64, bool)        { return v.f64, v.kind == KindF64 }
func (v Value) AsString() (string, bool)      { return v.str, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool)       { return v.bytes, v.kind == KindBytes }
func (v Value) AsUUID() (uuid.UUID, bool)     { return v.u, v.kind == KindUUID }
func (v Value) AsMap() ([]MapEntry, bool)     { return v.m, v.kind == KindMap }
func (v Value) AsSeq() ([]Value, bool)        { return v.seq, v.kind == KindSeq }
func (v Value) AsJSON() (any, bool)           { return v.json, v.kind == KindJSON }
func (v Value) IsNull() bool                  { return v.kind == KindNull }

// AsTime returns the underlying time.Time for either datetime kind.
func (v Value) AsTime() (time.Time, bool) {
	if v.kind == KindDateTimeUTC || v.kind == KindDateTimeOffset {
		return v.t, true
	}
	return time.Time{}, false
}

// MapGet looks up a key in a KindMap value, preserving None semantics.
func (v Value) MapGet(key string) (Value, bool) {
	for _, e := range v.m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Equal implements structural equality. Datetimes compare on their
// instant, not their textual offset, per the data-model invariant.
func (v Value) Equal(other Value) bool {
	if v.kind == KindDateTimeOffset || v.kind == KindDateTimeUTC ||
		other.kind == KindDateTimeOffset || other.kind == KindDateTimeUTC {
		vt, vok := v.AsTime()
		ot, ook := other.AsTime()
		if vok && ook {
			return vt.Equal(ot)
		}
		return false
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindI64:
		return v.i64 == other.i64
	case KindU64:
		return v.u64 == other.u64
	case KindF64:
		return v.f64 == other.f64
	case KindString:
		return v.str == other.str
	case KindBytes:
		if len(v.bytes) != len(other.bytes) {
			return false
		}
		for i := range v.bytes {
			if v.bytes[i] != other.bytes[i] {
				return false
			}
		}
		return true
	case KindUUID:
		return v.u == other.u
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for i := range v.m {
			if v.m[i].Key != other.m[i].Key || !v.m[i].Value.Equal(other.m[i].Value) {
				return false
			}
		}
		return true
	case KindSeq:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindJSON:
		return deepEqualJSON(v.json, other.json)
	}
	return false
}

func deepEqualJSON(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !deepEqualJSON(v, bv[k]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqualJSON(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
