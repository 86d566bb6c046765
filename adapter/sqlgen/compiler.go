package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// FieldKind resolves a field's declared type, used by operators whose SQL
// depends on whether the column is a plain scalar, a JSON/Array column,
// or a UUID column. Unknown fields are treated as TypeString.
type FieldKind func(field string) schema.FieldTypeKind

// Compiler compiles QueryConditionGroup trees into backend SQL for one
// Dialect, resolving field kinds via Fields.
type Compiler struct {
	Dialect Dialect
	Fields  FieldKind
}

// Compile renders group's clause starting at placeholder index startIdx
// (1-based), returning the clause, bound params, and the next free index.
func (c Compiler) Compile(group query.QueryConditionGroup, startIdx int) (string, []any, int, error) {
	if group.IsEmpty() {
		return "", nil, startIdx, nil
	}
	if group.IsLeaf() {
		return c.compileCondition(*group.Condition, startIdx)
	}

	joiner := " AND "
	if group.GroupOp == query.GroupOr {
		joiner = " OR "
	}

	var clauses []string
	var params []any
	idx := startIdx
	for _, child := range group.Children {
		clause, p, next, err := c.Compile(child, idx)
		if err != nil {
			return "", nil, idx, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		params = append(params, p...)
		idx = next
	}
	if len(clauses) == 0 {
		return "", nil, idx, nil
	}
	if len(clauses) == 1 {
		return clauses[0], params, idx, nil
	}
	return "(" + strings.Join(clauses, joiner) + ")", params, idx, nil
}

func (c Compiler) kindOf(field string) schema.FieldTypeKind {
	if c.Fields == nil {
		return schema.TypeString
	}
	return c.Fields(field)
}

func (c Compiler) compileCondition(cond query.QueryCondition, idx int) (string, []any, int, error) {
	col, err := c.Dialect.QuoteIdent(cond.Field)
	if err != nil {
		return "", nil, idx, err
	}
	kind := c.kindOf(cond.Field)

	switch cond.Operator {
	case query.OpEq, query.OpNe:
		op := map[query.Operator]string{query.OpEq: "=", query.OpNe: "!="}[cond.Operator]
		param, err := c.toSQLParam(cond.Value, kind)
		if err != nil {
			return "", nil, idx, err
		}
		return fmt.Sprintf("%s %s %s", col, op, c.Dialect.Placeholder(idx)), []any{param}, idx + 1, nil

	case query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		op := map[query.Operator]string{
			query.OpGt: ">", query.OpGte: ">=",
			query.OpLt: "<", query.OpLte: "<=",
		}[cond.Operator]
		coerced := cond.Value
		if c.Fields != nil {
			coerced, err = coerceForRange(cond.Value, kind)
			if err != nil {
				return "", nil, idx, err
			}
		}
		param, err := c.toSQLParam(coerced, kind)
		if err != nil {
			return "", nil, idx, err
		}
		return fmt.Sprintf("%s %s %s", col, op, c.Dialect.Placeholder(idx)), []any{param}, idx + 1, nil

	case query.OpStartsWith:
		s, _ := cond.Value.AsString()
		return fmt.Sprintf("%s LIKE %s", col, c.Dialect.Placeholder(idx)), []any{s + "%"}, idx + 1, nil

	case query.OpEndsWith:
		s, _ := cond.Value.AsString()
		return fmt.Sprintf("%s LIKE %s", col, c.Dialect.Placeholder(idx)), []any{"%" + s}, idx + 1, nil

	case query.OpContains:
		return c.compileContains(col, cond.Field, cond.Value, kind, idx)

	case query.OpJsonContains:
		return c.compileJSONContains(col, cond.Value, idx)

	case query.OpIn:
		return c.compileInNotIn(col, cond.Field, cond.Value, kind, idx, false)

	case query.OpNotIn:
		return c.compileInNotIn(col, cond.Field, cond.Value, kind, idx, true)

	case query.OpRegex:
		s, _ := cond.Value.AsString()
		if c.Dialect.Name == SQLite {
			// SQLite has no built-in REGEXP function and adapter/sqlite
			// registers none, so this fails at execution time unless the
			// connection provides one.
			return fmt.Sprintf("%s REGEXP %s", col, c.Dialect.Placeholder(idx)), []any{s}, idx + 1, nil
		}
		return fmt.Sprintf("%s REGEXP %s", col, c.Dialect.Placeholder(idx)), []any{s}, idx + 1, nil

	case query.OpExists, query.OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", col), nil, idx, nil

	case query.OpIsNull:
		return fmt.Sprintf("%s IS NULL", col), nil, idx, nil

	default:
		return "", nil, idx, quickdberr.Query(nil, "unsupported operator %q", cond.Operator)
	}
}

func (c Compiler) compileContains(col, field string, v qvalue.Value, kind schema.FieldTypeKind, idx int) (string, []any, int, error) {
	if kind != schema.TypeArray && kind != schema.TypeJson {
		s, _ := v.AsString()
		return fmt.Sprintf("%s LIKE %s", col, c.Dialect.Placeholder(idx)), []any{"%" + s + "%"}, idx + 1, nil
	}
	switch c.Dialect.Name {
	case Postgres:
		lit, err := jsonScalarLiteral(v)
		if err != nil {
			return "", nil, idx, err
		}
		return fmt.Sprintf("%s @> %s::jsonb", col, c.Dialect.Placeholder(idx)), []any{lit}, idx + 1, nil
	case MySQL:
		lit, err := jsonScalarLiteral(v)
		if err != nil {
			return "", nil, idx, err
		}
		return fmt.Sprintf("JSON_CONTAINS(%s, %s)", col, c.Dialect.Placeholder(idx)), []any{lit}, idx + 1, nil
	case SQLite:
		return "", nil, idx, quickdberr.Query(nil, "field %q: JSON containment is unsupported on sqlite", field)
	default:
		return "", nil, idx, quickdberr.Config("unknown dialect")
	}
}

func (c Compiler) compileJSONContains(col string, v qvalue.Value, idx int) (string, []any, int, error) {
	switch c.Dialect.Name {
	case Postgres:
		if s, ok := v.AsString(); ok {
			return fmt.Sprintf("%s::text ILIKE %s", col, c.Dialect.Placeholder(idx)), []any{"%" + s + "%"}, idx + 1, nil
		}
		lit, err := jsonScalarLiteral(v)
		if err != nil {
			return "", nil, idx, err
		}
		return fmt.Sprintf("%s @> %s::jsonb", col, c.Dialect.Placeholder(idx)), []any{lit}, idx + 1, nil
	case MySQL:
		lit, err := jsonScalarLiteral(v)
		if err != nil {
			return "", nil, idx, err
		}
		return fmt.Sprintf("JSON_CONTAINS(%s, %s)", col, c.Dialect.Placeholder(idx)), []any{lit}, idx + 1, nil
	case SQLite:
		return "", nil, idx, quickdberr.Query(nil, "json_contains is unsupported on sqlite")
	default:
		return "", nil, idx, quickdberr.Config("unknown dialect")
	}
}

func (c Compiler) compileInNotIn(col, field string, v qvalue.Value, kind schema.FieldTypeKind, idx int, not bool) (string, []any, int, error) {
	items, ok := v.AsSeq()
	if !ok {
		items = []qvalue.Value{v}
	}

	if kind != schema.TypeArray {
		placeholders := make([]string, len(items))
		params := make([]any, len(items))
		for i, item := range items {
			p, err := c.toSQLParam(item, schema.TypeString)
			if err != nil {
				return "", nil, idx, err
			}
			placeholders[i] = c.Dialect.Placeholder(idx)
			params[i] = p
			idx++
		}
		op := "IN"
		if not {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, op, strings.Join(placeholders, ", ")), params, idx, nil
	}

	// Array-column membership test.
	if not {
		if c.Dialect.Name == SQLite || c.Dialect.Name == MySQL {
			return "", nil, idx, quickdberr.Query(nil, "field %q: NOT IN is unsupported on array columns for %s", field, c.Dialect.Name)
		}
	}
	var clauses []string
	var params []any
	for _, item := range items {
		switch c.Dialect.Name {
		case Postgres:
			lit, err := jsonScalarLiteral(item)
			if err != nil {
				return "", nil, idx, err
			}
			clauses = append(clauses, fmt.Sprintf("%s @> %s::jsonb", col, c.Dialect.Placeholder(idx)))
			params = append(params, lit)
			idx++
		case MySQL:
			lit, err := jsonScalarLiteral(item)
			if err != nil {
				return "", nil, idx, err
			}
			clauses = append(clauses, fmt.Sprintf("JSON_CONTAINS(%s, %s)", col, c.Dialect.Placeholder(idx)))
			params = append(params, lit)
			idx++
		case SQLite:
			s, _ := item.AsString()
			clauses = append(clauses, fmt.Sprintf("%s LIKE %s", col, c.Dialect.Placeholder(idx)))
			params = append(params, `%"`+s+`"%`)
			idx++
		}
	}
	joined := "(" + strings.Join(clauses, " OR ") + ")"
	if not {
		joined = "NOT " + joined
	}
	return joined, params, idx, nil
}

// ToSQLParam converts v into a database/sql-bindable native value without
// regard to a target column's declared kind; callers that know the column
// kind (e.g. to bind a native Postgres UUID) should use the internal
// kind-aware path that backs condition compilation instead.
func (c Compiler) ToSQLParam(v qvalue.Value) (any, error) {
	return c.toSQLParam(v, schema.TypeString)
}

// toSQLParam converts a Value into a database/sql-bindable native value.
// Unsigned 64-bit values are coerced to signed, matching the open
// question's documented resolution: target columns are signed, so
// quickdb always binds int64 and relies on callers not exceeding
// math.MaxInt64 in practice.
func (c Compiler) toSQLParam(v qvalue.Value, kind schema.FieldTypeKind) (any, error) {
	switch v.Kind() {
	case qvalue.KindNull:
		return nil, nil
	case qvalue.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case qvalue.KindI64:
		i, _ := v.AsI64()
		return i, nil
	case qvalue.KindU64:
		u, _ := v.AsU64()
		return int64(u), nil
	case qvalue.KindF64:
		f, _ := v.AsF64()
		return f, nil
	case qvalue.KindString:
		s, _ := v.AsString()
		return s, nil
	case qvalue.KindBytes:
		b, _ := v.AsBytes()
		return b, nil
	case qvalue.KindDateTimeUTC, qvalue.KindDateTimeOffset:
		t, _ := v.AsTime()
		return t, nil
	case qvalue.KindUUID:
		u, _ := v.AsUUID()
		if c.Dialect.Name == Postgres && kind == schema.TypeUuid {
			return u, nil
		}
		return u.String(), nil
	case qvalue.KindJSON, qvalue.KindMap, qvalue.KindSeq:
		return jsonScalarLiteral(v)
	default:
		return nil, quickdberr.Serialization(nil, "cannot bind value of kind %s", v.Kind())
	}
}

// coerceForRange prepares v for a Gt/Gte/Lt/Lte comparison against a column
// of kind: DateTime/DateTimeWithTz accept a datetime Value, or a string in
// RFC3339 or "2006-01-02 15:04:05" form coerced to a UTC instant;
// Integer/BigInteger accept an integer Value or a decimal integer string
// (a float is rejected, not truncated); Float/Double accept any numeric
// Value or a numeric string and coerce it to F64. Any other field kind
// cannot be range-compared and is a hard error, so a caller never silently
// binds a value the column can't meaningfully order. Compile applies it
// only when the Compiler has Fields; without field metadata the value is
// bound as given.
func coerceForRange(v qvalue.Value, kind schema.FieldTypeKind) (qvalue.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch kind {
	case schema.TypeDateTime, schema.TypeDateTimeWithTz:
		switch v.Kind() {
		case qvalue.KindDateTimeUTC, qvalue.KindDateTimeOffset:
			return v, nil
		case qvalue.KindString:
			s, _ := v.AsString()
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return qvalue.DateTimeUTC(t), nil
			}
			if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
				return qvalue.DateTimeUTC(t), nil
			}
			return qvalue.Value{}, quickdberr.Query(nil, "cannot parse %q as a datetime (expected RFC3339 or \"2006-01-02 15:04:05\")", s)
		default:
			return qvalue.Value{}, quickdberr.Query(nil, "datetime field does not accept a %s value", v.Kind())
		}

	case schema.TypeInteger, schema.TypeBigInteger:
		switch v.Kind() {
		case qvalue.KindI64, qvalue.KindU64:
			return v, nil
		case qvalue.KindString:
			s, _ := v.AsString()
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return qvalue.Value{}, quickdberr.Query(err, "integer field cannot parse %q as an integer", s)
			}
			return qvalue.I64(i), nil
		default:
			return qvalue.Value{}, quickdberr.Query(nil, "integer field does not accept a %s value", v.Kind())
		}

	case schema.TypeFloat, schema.TypeDouble:
		switch v.Kind() {
		case qvalue.KindF64:
			return v, nil
		case qvalue.KindI64:
			i, _ := v.AsI64()
			return qvalue.F64(float64(i)), nil
		case qvalue.KindU64:
			u, _ := v.AsU64()
			return qvalue.F64(float64(u)), nil
		case qvalue.KindString:
			s, _ := v.AsString()
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return qvalue.Value{}, quickdberr.Query(err, "float field cannot parse %q as a number", s)
			}
			return qvalue.F64(f), nil
		default:
			return qvalue.Value{}, quickdberr.Query(nil, "float field does not accept a %s value", v.Kind())
		}

	default:
		return qvalue.Value{}, quickdberr.Query(nil, "field type %q does not support range operators (gt/gte/lt/lte)", kind)
	}
}

func jsonScalarLiteral(v qvalue.Value) (string, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ValidateIdentifier exposes identifier validation for callers (e.g.
// CreateTable/CreateIndex) that need to check a name without compiling a
// condition around it.
func ValidateIdentifier(d Dialect, name string) error {
	_, err := d.QuoteIdent(name)
	return err
}

// ValidateIdentifierNoSQL rejects NoSQL (Mongo) field names starting with
// "$" or containing ".", the identifier-safety rule's NoSQL branch.
func ValidateIdentifierNoSQL(name string) error {
	if name == "" {
		return quickdberr.Validation(name, "identifier must not be empty")
	}
	if strings.HasPrefix(name, "$") {
		return quickdberr.Validation(name, "identifier must not start with '$'")
	}
	if strings.Contains(name, ".") {
		return quickdberr.Validation(name, "identifier must not contain '.'")
	}
	return nil
}
