package mongo

import (
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/forbearing/quickdb/adapter/sqlgen"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// compileFilter lowers a condition tree to a BSON filter document. A
// single-child group unwraps to its child's filter directly rather than a
// needless one-element $and/$or, matching the compilation rule's "single
// group unwraps" clause. meta resolves a condition's field to its declared
// kind, used to distinguish array-membership from substring tests; it may
// be nil when no metadata is available (callers that never see a field
// kind fall back to value-shape sniffing).
func compileFilter(group query.QueryConditionGroup, meta *schema.ModelMeta) (bson.M, error) {
	if group.IsEmpty() {
		return bson.M{}, nil
	}
	if group.IsLeaf() {
		return compileCondition(*group.Condition, meta)
	}
	if len(group.Children) == 1 {
		return compileFilter(group.Children[0], meta)
	}

	op := "$and"
	if group.GroupOp == query.GroupOr {
		op = "$or"
	}
	clauses := make(bson.A, 0, len(group.Children))
	for _, child := range group.Children {
		f, err := compileFilter(child, meta)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, f)
	}
	return bson.M{op: clauses}, nil
}

// fieldKind resolves field's declared kind from meta, returning false when
// meta is nil or the field is undeclared.
func fieldKind(meta *schema.ModelMeta, field string) (schema.FieldTypeKind, bool) {
	if meta == nil {
		return "", false
	}
	def, ok := meta.Fields[field]
	if !ok {
		return "", false
	}
	return def.Type.Kind, true
}

func compileCondition(cond query.QueryCondition, meta *schema.ModelMeta) (bson.M, error) {
	if err := sqlgen.ValidateIdentifierNoSQL(cond.Field); err != nil {
		return nil, err
	}
	val := toBSONValue(cond.Value)

	switch cond.Operator {
	case query.OpEq:
		return bson.M{cond.Field: val}, nil
	case query.OpNe:
		return bson.M{cond.Field: bson.M{"$ne": val}}, nil
	case query.OpGt:
		return bson.M{cond.Field: bson.M{"$gt": val}}, nil
	case query.OpGte:
		return bson.M{cond.Field: bson.M{"$gte": val}}, nil
	case query.OpLt:
		return bson.M{cond.Field: bson.M{"$lt": val}}, nil
	case query.OpLte:
		return bson.M{cond.Field: bson.M{"$lte": val}}, nil
	case query.OpIn:
		return bson.M{cond.Field: bson.M{"$in": toBSONArray(cond.Value)}}, nil
	case query.OpNotIn:
		return bson.M{cond.Field: bson.M{"$nin": toBSONArray(cond.Value)}}, nil
	case query.OpContains:
		// Array fields test membership; everything else falls back to a
		// case-sensitive substring regex.
		if kind, ok := fieldKind(meta, cond.Field); ok && kind == schema.TypeArray {
			return bson.M{cond.Field: bson.M{"$in": toBSONArray(cond.Value)}}, nil
		}
		if s, ok := cond.Value.AsString(); ok {
			return bson.M{cond.Field: bson.M{"$regex": regexp.QuoteMeta(s)}}, nil
		}
		return bson.M{cond.Field: val}, nil
	case query.OpJsonContains:
		return compileJSONContains(cond.Field, cond.Value)
	case query.OpStartsWith:
		s, _ := cond.Value.AsString()
		return bson.M{cond.Field: bson.M{"$regex": "^" + regexp.QuoteMeta(s)}}, nil
	case query.OpEndsWith:
		s, _ := cond.Value.AsString()
		return bson.M{cond.Field: bson.M{"$regex": regexp.QuoteMeta(s) + "$"}}, nil
	case query.OpRegex:
		s, _ := cond.Value.AsString()
		return bson.M{cond.Field: bson.M{"$regex": s, "$options": "i"}}, nil
	case query.OpExists:
		return bson.M{cond.Field: bson.M{"$exists": true}}, nil
	case query.OpIsNull:
		return bson.M{cond.Field: nil}, nil
	case query.OpIsNotNull:
		return bson.M{cond.Field: bson.M{"$ne": nil}}, nil
	default:
		return nil, quickdberr.Query(nil, "unsupported operator %q", cond.Operator)
	}
}

// compileJSONContains flattens v's map entries into dotted-path equality
// terms under field, ANDed together, so a partial JSON document matches any
// superset. Non-map values fall back to a plain equality test against the
// whole field.
func compileJSONContains(field string, v qvalue.Value) (bson.M, error) {
	entries, ok := v.AsMap()
	if !ok {
		return bson.M{field: toBSONValue(v)}, nil
	}
	// Sort for deterministic clause order; map iteration order isn't.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	clauses := make(bson.A, 0, len(entries))
	for _, e := range entries {
		clauses = append(clauses, bson.M{field + "." + e.Key: toBSONValue(e.Value)})
	}
	if len(clauses) == 0 {
		return bson.M{}, nil
	}
	return bson.M{"$and": clauses}, nil
}

func toBSONArray(v qvalue.Value) bson.A {
	items, ok := v.AsSeq()
	if !ok {
		return bson.A{toBSONValue(v)}
	}
	arr := make(bson.A, len(items))
	for i, item := range items {
		arr[i] = toBSONValue(item)
	}
	return arr
}
