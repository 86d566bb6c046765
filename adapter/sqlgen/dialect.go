// Package sqlgen implements the shared condition-tree -> SQL compiler used
// by the SQLite, Postgres, and MySQL adapters. Each backend supplies a
// Dialect describing its identifier quoting, placeholder style, and the
// handful of operators whose SQL genuinely differs per backend (Contains
// on JSON/Array columns, In/NotIn on Array columns, UUID binding).
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/forbearing/quickdb/quickdberr"
)

// Name is a backend flavor tag, used by Dialect methods that branch on it.
type Name string

const (
	SQLite   Name = "sqlite"
	Postgres Name = "postgres"
	MySQL    Name = "mysql"
)

// reservedKeywords is the fixed list of SQL-reserved words identifiers may
// not use unquoted; quickdb rejects them outright rather than relying on
// quoting alone to disambiguate, per the identifier-safety rule.
var reservedKeywords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
	"from": true, "where": true, "table": true, "drop": true,
	"create": true, "alter": true, "join": true, "union": true,
	"order": true, "group": true, "having": true, "into": true,
	"values": true, "set": true, "and": true, "or": true, "not": true,
	"null": true, "primary": true, "key": true, "foreign": true,
	"index": true, "default": true, "check": true, "grant": true,
}

// Dialect captures the per-backend knobs the shared compiler needs.
type Dialect struct {
	Name Name
}

// QuoteIdent validates and quotes a SQL identifier. It rejects empty,
// overlong (>128 byte, a generous cross-backend bound), or reserved-word
// identifiers.
func (d Dialect) QuoteIdent(name string) (string, error) {
	if name == "" {
		return "", quickdberr.Validation(name, "identifier must not be empty")
	}
	if len(name) > 128 {
		return "", quickdberr.Validation(name, "identifier exceeds 128 bytes")
	}
	if reservedKeywords[strings.ToLower(name)] {
		return "", quickdberr.Validation(name, "identifier is a reserved SQL keyword")
	}
	switch d.Name {
	case Postgres, SQLite:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`", nil
	default:
		return "", quickdberr.Config("unknown SQL dialect %q", d.Name)
	}
}

// Placeholder renders the Nth (1-based) bound-parameter placeholder.
func (d Dialect) Placeholder(n int) string {
	if d.Name == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
