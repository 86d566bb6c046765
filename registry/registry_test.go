package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/registry"
	"github.com/forbearing/quickdb/schema"
)

type fakeProvisioner struct {
	exists       bool
	createTableErr error
	createIndexErr error
	createTableCalls int
	createIndexCalls int
}

func (f *fakeProvisioner) TableExists(ctx context.Context, table string) (bool, error) {
	return f.exists, nil
}

func (f *fakeProvisioner) CreateTable(ctx context.Context, table string, meta *schema.ModelMeta) error {
	f.createTableCalls++
	return f.createTableErr
}

func (f *fakeProvisioner) CreateIndex(ctx context.Context, table, name string, fields []string, unique bool) error {
	f.createIndexCalls++
	return f.createIndexErr
}

func TestRegisterModelAndLookup(t *testing.T) {
	meta := schema.NewModelMeta("registry_widgets")
	meta.AddField("name", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	require.NoError(t, registry.RegisterModel(meta))

	got, ok := registry.Lookup("registry_widgets")
	require.True(t, ok)
	assert.Equal(t, "registry_widgets", got.CollectionName)
}

func TestMustLookupUnregisteredFails(t *testing.T) {
	_, err := registry.MustLookup("registry_never_registered")
	assert.Error(t, err)
}

func TestRegisterModelOverwritesPriorEntry(t *testing.T) {
	first := schema.NewModelMeta("registry_overwrite")
	first.AddField("a", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	require.NoError(t, registry.RegisterModel(first))

	second := schema.NewModelMeta("registry_overwrite")
	second.AddField("b", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	require.NoError(t, registry.RegisterModel(second))

	got, ok := registry.Lookup("registry_overwrite")
	require.True(t, ok)
	_, hasA := got.Fields["a"]
	_, hasB := got.Fields["b"]
	assert.False(t, hasA)
	assert.True(t, hasB)
}

func TestEnsureTableAndIndexesCreatesMissingTable(t *testing.T) {
	meta := schema.NewModelMeta("registry_ensure_table")
	meta.AddField("name", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	require.NoError(t, registry.RegisterModel(meta))

	f := &fakeProvisioner{exists: false}
	require.NoError(t, registry.EnsureTableAndIndexes(context.Background(), f, "registry_ensure_table"))
	assert.Equal(t, 1, f.createTableCalls)
}

func TestEnsureTableAndIndexesSkipsExistingTable(t *testing.T) {
	meta := schema.NewModelMeta("registry_skip_table")
	require.NoError(t, registry.RegisterModel(meta))

	f := &fakeProvisioner{exists: true}
	require.NoError(t, registry.EnsureTableAndIndexes(context.Background(), f, "registry_skip_table"))
	assert.Equal(t, 0, f.createTableCalls)
}

func TestEnsureTableAndIndexesCreatesDeclaredIndexes(t *testing.T) {
	meta := schema.NewModelMeta("registry_with_index")
	meta.AddField("email", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	meta.AddIndex(schema.IndexDefinition{Fields: []string{"email"}, Unique: true})
	require.NoError(t, registry.RegisterModel(meta))

	f := &fakeProvisioner{exists: true}
	require.NoError(t, registry.EnsureTableAndIndexes(context.Background(), f, "registry_with_index"))
	assert.Equal(t, 1, f.createIndexCalls)
}

func TestEnsureTableAndIndexesSwallowsDuplicateIndexError(t *testing.T) {
	meta := schema.NewModelMeta("registry_dup_index")
	meta.AddField("email", &schema.FieldDefinition{Type: schema.FieldType{Kind: schema.TypeString}})
	meta.AddIndex(schema.IndexDefinition{Fields: []string{"email"}, Unique: true})
	require.NoError(t, registry.RegisterModel(meta))

	f := &fakeProvisioner{exists: true, createIndexErr: errors.New("index already exists")}
	err := registry.EnsureTableAndIndexes(context.Background(), f, "registry_dup_index")
	assert.NoError(t, err)
}

func TestEnsureTableAndIndexesUnregisteredCollectionFails(t *testing.T) {
	f := &fakeProvisioner{}
	err := registry.EnsureTableAndIndexes(context.Background(), f, "registry_never_registered_either")
	assert.Error(t, err)
}

func TestCollectionsIncludesRegistered(t *testing.T) {
	meta := schema.NewModelMeta("registry_collections_probe")
	require.NoError(t, registry.RegisterModel(meta))
	assert.Contains(t, registry.Collections(), "registry_collections_probe")
}
