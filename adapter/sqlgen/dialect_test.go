package sqlgen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forbearing/quickdb/adapter/sqlgen"
)

func TestQuoteIdentPerDialect(t *testing.T) {
	pg := sqlgen.Dialect{Name: sqlgen.Postgres}
	ident, err := pg.QuoteIdent("users")
	assert.NoError(t, err)
	assert.Equal(t, `"users"`, ident)

	mysql := sqlgen.Dialect{Name: sqlgen.MySQL}
	ident, err = mysql.QuoteIdent("users")
	assert.NoError(t, err)
	assert.Equal(t, "`users`", ident)
}

func TestQuoteIdentRejectsEmptyAndOverlong(t *testing.T) {
	d := sqlgen.Dialect{Name: sqlgen.SQLite}
	_, err := d.QuoteIdent("")
	assert.Error(t, err)
	_, err = d.QuoteIdent(strings.Repeat("a", 129))
	assert.Error(t, err)
}

func TestPlaceholderStyles(t *testing.T) {
	assert.Equal(t, "$3", sqlgen.Dialect{Name: sqlgen.Postgres}.Placeholder(3))
	assert.Equal(t, "?", sqlgen.Dialect{Name: sqlgen.SQLite}.Placeholder(3))
	assert.Equal(t, "?", sqlgen.Dialect{Name: sqlgen.MySQL}.Placeholder(3))
}
