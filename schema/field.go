// Package schema implements the model metadata layer: field types,
// field definitions with validation, and the per-collection ModelMeta the
// registry keeps process-wide.
package schema

import (
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
)

// FieldTypeKind names one of the field-type variants from the data model.
type FieldTypeKind string

const (
	TypeString        FieldTypeKind = "string"
	TypeInteger        FieldTypeKind = "integer"
	TypeBigInteger     FieldTypeKind = "big_integer"
	TypeFloat          FieldTypeKind = "float"
	TypeDouble         FieldTypeKind = "double"
	TypeText           FieldTypeKind = "text"
	TypeBoolean        FieldTypeKind = "boolean"
	TypeDateTime       FieldTypeKind = "datetime"
	TypeDateTimeWithTz FieldTypeKind = "datetime_tz"
	TypeDate           FieldTypeKind = "date"
	TypeTime           FieldTypeKind = "time"
	TypeUuid           FieldTypeKind = "uuid"
	TypeJson           FieldTypeKind = "json"
	TypeBinary         FieldTypeKind = "binary"
	TypeDecimal        FieldTypeKind = "decimal"
	TypeArray          FieldTypeKind = "array"
	TypeObject         FieldTypeKind = "object"
	TypeReference      FieldTypeKind = "reference"
)

// FieldType carries the variant-specific parameters alongside the Kind tag,
// the idiomatic-Go rendition of the data model's parameterized variants.
type FieldType struct {
	Kind FieldTypeKind

	// String
	MaxLen int
	MinLen int
	Regex  string
	regex  *regexp.Regexp

	// Integer / Float
	Min *float64
	Max *float64

	// DateTimeWithTz
	Offset int // seconds east of UTC

	// Decimal
	Precision int
	Scale     int

	// Array
	ItemType *FieldType
	ArrayMin int
	ArrayMax int

	// Object
	Fields map[string]*FieldDefinition

	// Reference
	Collection string
}

func (ft *FieldType) compiledRegex() (*regexp.Regexp, error) {
	if ft.Regex == "" {
		return nil, nil
	}
	if ft.regex != nil {
		return ft.regex, nil
	}
	re, err := regexp.Compile(ft.Regex)
	if err != nil {
		return nil, err
	}
	ft.regex = re
	return re, nil
}

// FieldDefinition is one field of a ModelMeta.
type FieldDefinition struct {
	Type         FieldType
	Required     bool
	DefaultValue *qvalue.Value
	Unique       bool
	Indexed      bool
	Description  string
	ValidatorName string
	// SQLiteCompat signals the field stores booleans as SQLite integers
	// (0/1) rather than a native boolean column.
	SQLiteCompat bool
}

// Validate checks value against the field definition: required, type
// match, range/length/regex, and recurses into array items / object
// sub-fields. Returns a *quickdberr.Error (KindValidation) carrying the
// field name, or nil.
func (fd *FieldDefinition) Validate(fieldName string, value qvalue.Value) error {
	if value.IsNull() {
		if fd.Required {
			return quickdberr.Validation(fieldName, "field is required")
		}
		return nil
	}
	return fd.Type.validate(fieldName, value)
}

func (ft *FieldType) validate(fieldName string, value qvalue.Value) error {
	switch ft.Kind {
	case TypeString, TypeText:
		s, ok := value.AsString()
		if !ok {
			return quickdberr.Validation(fieldName, "expected a string")
		}
		if ft.MaxLen > 0 && len(s) > ft.MaxLen {
			return quickdberr.Validation(fieldName, "exceeds max length")
		}
		if ft.MinLen > 0 && len(s) < ft.MinLen {
			return quickdberr.Validation(fieldName, "below min length")
		}
		if re, err := ft.compiledRegex(); err == nil && re != nil && !re.MatchString(s) {
			return quickdberr.Validation(fieldName, "does not match pattern")
		}
		return nil

	case TypeInteger, TypeBigInteger:
		var n float64
		switch {
		case value.Kind() == qvalue.KindI64:
			i, _ := value.AsI64()
			n = float64(i)
		case value.Kind() == qvalue.KindU64:
			u, _ := value.AsU64()
			n = float64(u)
		default:
			return quickdberr.Validation(fieldName, "expected an integer")
		}
		return ft.validateRange(fieldName, n)

	case TypeFloat, TypeDouble, TypeDecimal:
		f, ok := value.AsF64()
		if !ok {
			if i, iok := value.AsI64(); iok {
				f = float64(i)
			} else {
				return quickdberr.Validation(fieldName, "expected a number")
			}
		}
		return ft.validateRange(fieldName, f)

	case TypeBoolean:
		if _, ok := value.AsBool(); !ok {
			return quickdberr.Validation(fieldName, "expected a boolean")
		}
		return nil

	case TypeDateTime, TypeDateTimeWithTz, TypeDate, TypeTime:
		if _, ok := value.AsTime(); !ok {
			return quickdberr.Validation(fieldName, "expected a datetime")
		}
		return nil

	case TypeUuid:
		if _, ok := value.AsUUID(); ok {
			return nil
		}
		if s, ok := value.AsString(); ok {
			if _, err := uuid.Parse(s); err == nil {
				return nil
			}
		}
		return quickdberr.Validation(fieldName, "expected a uuid")

	case TypeJson, TypeObject:
		if entries, ok := value.AsMap(); ok {
			if ft.Kind == TypeObject {
				for _, e := range entries {
					sub, ok := ft.Fields[e.Key]
					if !ok {
						continue
					}
					if err := sub.Validate(fieldName+"."+e.Key, e.Value); err != nil {
						return err
					}
				}
			}
			return nil
		}
		if _, ok := value.AsJSON(); ok {
			return nil
		}
		return quickdberr.Validation(fieldName, "expected an object")

	case TypeBinary:
		if _, ok := value.AsBytes(); !ok {
			return quickdberr.Validation(fieldName, "expected binary data")
		}
		return nil

	case TypeArray:
		items, ok := value.AsSeq()
		if !ok {
			return quickdberr.Validation(fieldName, "expected an array")
		}
		if ft.ArrayMin > 0 && len(items) < ft.ArrayMin {
			return quickdberr.Validation(fieldName, "below min items")
		}
		if ft.ArrayMax > 0 && len(items) > ft.ArrayMax {
			return quickdberr.Validation(fieldName, "exceeds max items")
		}
		if ft.ItemType != nil {
			for i, item := range items {
				if err := ft.ItemType.validate(fieldName, item); err != nil {
					return quickdberr.Validation(fieldName, err.Error()+" at index "+strconv.Itoa(i))
				}
			}
		}
		return nil

	case TypeReference:
		// A reference is validated as an opaque id value; presence alone
		// (required/null check) is enforced by the caller.
		return nil

	default:
		return nil
	}
}

func (ft *FieldType) validateRange(fieldName string, n float64) error {
	if ft.Min != nil && n < *ft.Min {
		return quickdberr.Validation(fieldName, "below minimum")
	}
	if ft.Max != nil && n > *ft.Max {
		return quickdberr.Validation(fieldName, "above maximum")
	}
	return nil
}

