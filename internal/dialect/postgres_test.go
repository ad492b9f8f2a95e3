package dialect_test

import (
	"testing"

	"db-vault/internal/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDialect(t *testing.T) {
	for _, driver := range []string{"", "postgres", "supabase"} {
		d, err := dialect.GetDialect(driver)
		require.NoError(t, err)
		assert.IsType(t, &dialect.PostgresDialect{}, d)
	}

	_, err := dialect.GetDialect("mysql")
	assert.Error(t, err)
}

func TestPostgresDialect_Statements(t *testing.T) {
	d := &dialect.PostgresDialect{}
	assert.Equal(t, "SET session_replication_role = replica;", d.RelaxIntegrity())
	assert.Equal(t, "SET session_replication_role = DEFAULT;", d.RestoreIntegrity())
	assert.Equal(t, `SELECT * FROM "public"."users"`, d.SelectAllQuery("", "users"))
	assert.Equal(t, `SELECT * FROM "auth"."we""ird"`, d.SelectAllQuery("auth", `we"ird`))
}
