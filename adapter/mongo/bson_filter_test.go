package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

func TestToBSONValueRoundTripsScalars(t *testing.T) {
	assert.Equal(t, int64(7), toBSONValue(qvalue.I64(7)))
	assert.Equal(t, "gizmo", toBSONValue(qvalue.String("gizmo")))
	assert.Equal(t, true, toBSONValue(qvalue.Bool(true)))
	assert.Nil(t, toBSONValue(qvalue.Null()))
}

func TestToBSONValueRendersNestedMapAndSeq(t *testing.T) {
	v := qvalue.Map(
		qvalue.MapEntry{Key: "a", Value: qvalue.I64(1)},
		qvalue.MapEntry{Key: "b", Value: qvalue.Seq(qvalue.String("x"), qvalue.String("y"))},
	)
	doc, ok := toBSONValue(v).(bson.M)
	require.True(t, ok)
	assert.Equal(t, int64(1), doc["a"])
	arr, ok := doc["b"].(bson.A)
	require.True(t, ok)
	assert.Equal(t, bson.A{"x", "y"}, arr)
}

func TestFromBSONValuePromotesDriverTypes(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	v := fromBSONValue(bson.DateTime(now.UnixMilli()))
	got, ok := v.AsTime()
	require.True(t, ok)
	assert.True(t, got.Equal(now))

	oid := bson.NewObjectID()
	idVal := fromBSONValue(oid)
	s, ok := idVal.AsString()
	require.True(t, ok)
	assert.Equal(t, oid.Hex(), s)
}

func TestDocToMapRoundTrip(t *testing.T) {
	doc := bson.M{"name": "gizmo", "count": int32(3)}
	m := docToMap(doc)
	name, ok := m["name"].AsString()
	require.True(t, ok)
	assert.Equal(t, "gizmo", name)
	count, ok := m["count"].AsI64()
	require.True(t, ok)
	assert.EqualValues(t, 3, count)
}

func TestCompileFilterSingleChildUnwraps(t *testing.T) {
	group := query.And(
		query.Leaf(query.QueryCondition{Field: "name", Operator: query.OpEq, Value: qvalue.String("gizmo")}),
	)
	filter, err := compileFilter(group, nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"name": "gizmo"}, filter)
}

func TestCompileFilterAndOfTwoConditions(t *testing.T) {
	group := query.And(
		query.Leaf(query.QueryCondition{Field: "name", Operator: query.OpEq, Value: qvalue.String("gizmo")}),
		query.Leaf(query.QueryCondition{Field: "count", Operator: query.OpGt, Value: qvalue.I64(1)}),
	)
	filter, err := compileFilter(group, nil)
	require.NoError(t, err)
	and, ok := filter["$and"].(bson.A)
	require.True(t, ok)
	assert.Len(t, and, 2)
}

func TestCompileConditionIn(t *testing.T) {
	filter, err := compileCondition(query.QueryCondition{
		Field:    "tag",
		Operator: query.OpIn,
		Value:    qvalue.Seq(qvalue.String("a"), qvalue.String("b")),
	}, nil)
	require.NoError(t, err)
	inner, ok := filter["tag"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.A{"a", "b"}, inner["$in"])
}

func TestCompileConditionStartsWithEscapesRegex(t *testing.T) {
	filter, err := compileCondition(query.QueryCondition{
		Field:    "name",
		Operator: query.OpStartsWith,
		Value:    qvalue.String("a.b"),
	}, nil)
	require.NoError(t, err)
	inner, ok := filter["name"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "^a\\.b", inner["$regex"])
}

func TestCompileConditionRegexIsCaseInsensitive(t *testing.T) {
	filter, err := compileCondition(query.QueryCondition{
		Field:    "name",
		Operator: query.OpRegex,
		Value:    qvalue.String("^Gizmo"),
	}, nil)
	require.NoError(t, err)
	inner, ok := filter["name"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "i", inner["$options"])
}

func TestCompileConditionContainsOnArrayFieldUsesIn(t *testing.T) {
	meta := schema.NewModelMeta("widgets")
	meta.AddField("tags", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeArray}})
	filter, err := compileCondition(query.QueryCondition{
		Field:    "tags",
		Operator: query.OpContains,
		Value:    qvalue.String("blue"),
	}, meta)
	require.NoError(t, err)
	inner, ok := filter["tags"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.A{"blue"}, inner["$in"])
}

func TestCompileConditionContainsOnStringFieldUsesRegex(t *testing.T) {
	meta := schema.NewModelMeta("widgets")
	meta.AddField("name", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	filter, err := compileCondition(query.QueryCondition{
		Field:    "name",
		Operator: query.OpContains,
		Value:    qvalue.String("giz"),
	}, meta)
	require.NoError(t, err)
	inner, ok := filter["name"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "giz", inner["$regex"])
}

func TestCompileConditionJsonContainsFlattensDottedPaths(t *testing.T) {
	v := qvalue.Map(
		qvalue.MapEntry{Key: "city", Value: qvalue.String("NYC")},
		qvalue.MapEntry{Key: "zip", Value: qvalue.String("10001")},
	)
	filter, err := compileCondition(query.QueryCondition{
		Field:    "address",
		Operator: query.OpJsonContains,
		Value:    v,
	}, nil)
	require.NoError(t, err)
	and, ok := filter["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, bson.M{"address.city": "NYC"}, and[0])
	assert.Equal(t, bson.M{"address.zip": "10001"}, and[1])
}
