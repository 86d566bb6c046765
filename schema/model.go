package schema

import (
	"strings"

	"github.com/forbearing/quickdb/quickdberr"
)

// IndexDefinition describes one declared index on a ModelMeta.
type IndexDefinition struct {
	Name   string
	Fields []string
	Unique bool
}

// ModelMeta is the registered, field-typed metadata for one collection.
type ModelMeta struct {
	CollectionName string
	DatabaseAlias  string // optional; empty means "use the caller-resolved alias"
	Fields         map[string]*FieldDefinition
	FieldOrder     []string // insertion order, for deterministic DDL/validation
	Indexes        []IndexDefinition
	Description    string
}

// NewModelMeta builds an empty ModelMeta for collection.
func NewModelMeta(collection string) *ModelMeta {
	return &ModelMeta{
		CollectionName: collection,
		Fields:         make(map[string]*FieldDefinition),
	}
}

// AddField registers a field, preserving insertion order.
func (m *ModelMeta) AddField(name string, def *FieldDefinition) *ModelMeta {
	if _, exists := m.Fields[name]; !exists {
		m.FieldOrder = append(m.FieldOrder, name)
	}
	m.Fields[name] = def
	return m
}

// AddIndex registers a declared index.
func (m *ModelMeta) AddIndex(idx IndexDefinition) *ModelMeta {
	m.Indexes = append(m.Indexes, idx)
	return m
}

// Validate checks the uniqueness invariants: field names are already
// unique by construction (map keys); index names must be unique and every
// index field must exist in Fields.
func (m *ModelMeta) Validate() error {
	seenIndexNames := make(map[string]bool)
	for _, idx := range m.Indexes {
		name := idx.Name
		if name == "" {
			name = "idx_" + m.CollectionName + "_" + strings.Join(idx.Fields, "_")
		}
		if seenIndexNames[name] {
			return quickdberr.Config("duplicate index name %q on collection %q", name, m.CollectionName)
		}
		seenIndexNames[name] = true
		for _, f := range idx.Fields {
			if _, ok := m.Fields[f]; !ok {
				return quickdberr.Config("index %q references unknown field %q", name, f)
			}
		}
	}
	return nil
}

// IndexName returns idx's effective name, deriving one from its fields if
// none was given explicitly.
func (m *ModelMeta) IndexName(idx IndexDefinition) string {
	if idx.Name != "" {
		return idx.Name
	}
	return "idx_" + m.CollectionName + "_" + strings.Join(idx.Fields, "_")
}
