package dbconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/dbconfig"
)

func TestValidateRejectsMismatchedConnectionVariant(t *testing.T) {
	cfg := dbconfig.New("default", dbconfig.Postgres)
	cfg.SQLite = &dbconfig.SQLiteConn{Path: "/tmp/x.db"}
	cfg.IDStrategy = dbconfig.IDStrategy{Kind: dbconfig.IDUuid}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HostConn")
}

func TestValidateRejectsOutOfRangeSnowflake(t *testing.T) {
	cfg := dbconfig.New("default", dbconfig.SQLite)
	cfg.SQLite = &dbconfig.SQLiteConn{Path: "/tmp/x.db"}
	cfg.IDStrategy = dbconfig.IDStrategy{Kind: dbconfig.IDSnowflake, MachineID: 99, DatacenterID: 1}
	require.Error(t, cfg.Validate())
}

func TestValidateAccepts(t *testing.T) {
	cfg := dbconfig.New("default", dbconfig.SQLite)
	cfg.SQLite = &dbconfig.SQLiteConn{Path: "/tmp/x.db"}
	cfg.IDStrategy = dbconfig.IDStrategy{Kind: dbconfig.IDAutoIncrement}
	assert.NoError(t, cfg.Validate())
}
