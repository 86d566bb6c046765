package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

func ptr(f float64) *float64 { return &f }

func TestFieldDefinitionValidate(t *testing.T) {
	age := &schema.FieldDefinition{
		Type:     schema.FieldType{Kind: schema.TypeInteger, Min: ptr(0), Max: ptr(200)},
		Required: true,
	}

	assert.NoError(t, age.Validate("age", qvalue.I64(36)))
	assert.Error(t, age.Validate("age", qvalue.I64(-1)))
	assert.Error(t, age.Validate("age", qvalue.I64(201)))
	assert.Error(t, age.Validate("age", qvalue.Null()))

	name := &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString, MaxLen: 64}}
	assert.NoError(t, name.Validate("name", qvalue.String("Ada")))
	assert.Error(t, name.Validate("name", qvalue.I64(1)))
}

func TestModelMetaIndexValidation(t *testing.T) {
	m := schema.NewModelMeta("users")
	m.AddField("id", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeInteger}})
	m.AddField("name", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	m.AddIndex(schema.IndexDefinition{Fields: []string{"name"}, Unique: true})
	require.NoError(t, m.Validate())

	m.AddIndex(schema.IndexDefinition{Fields: []string{"missing"}})
	assert.Error(t, m.Validate())
}

func TestProcessDataFieldsFromMetadataArrayCoercion(t *testing.T) {
	fields := map[string]*schema.FieldDefinition{
		"tags": {Type: schema.FieldType{Kind: schema.TypeArray, ItemType: &schema.FieldType{Kind: schema.TypeString}}},
		"active": {Type: schema.FieldType{Kind: schema.TypeBoolean}, SQLiteCompat: true},
	}
	row := map[string]qvalue.Value{
		"tags":   qvalue.String(`["a","b"]`),
		"active": qvalue.I64(1),
	}
	out := schema.ProcessDataFieldsFromMetadata(row, fields)

	items, ok := out["tags"].AsSeq()
	require.True(t, ok)
	require.Len(t, items, 2)
	s0, _ := items[0].AsString()
	assert.Equal(t, "a", s0)

	b, ok := out["active"].AsBool()
	require.True(t, ok)
	assert.True(t, b)
}
