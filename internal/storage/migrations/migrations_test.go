package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedFilesInOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_forecasts.sql", pg[0].name)
	assert.Contains(t, pg[0].sql, "CREATE TABLE IF NOT EXISTS forecasts")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	assert.Equal(t, "001_validation_runs.sql", ch[0].name)
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- comment; with semicolon
CREATE TABLE a (x UInt8) ENGINE = Memory;

CREATE TABLE b (y UInt8)
ENGINE = Memory;
`
	stmts := splitStatements(sql)

	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.Contains(t, stmts[1], "ENGINE = Memory")
}

func TestSplitStatements_EmbeddedClickhouseSchema(t *testing.T) {
	files, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)

	for _, f := range files {
		require.NoError(t, validateNoSemicolonInStrings(f.sql), f.name)
		for _, stmt := range splitStatements(f.sql) {
			assert.False(t, strings.Contains(stmt, ";"), "statement still contains a semicolon: %s", stmt)
		}
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'a''b'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`INSERT INTO t VALUES ('a;b');`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/forecast_guard")
	require.NoError(t, err)
	assert.Equal(t, "forecast_guard", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
