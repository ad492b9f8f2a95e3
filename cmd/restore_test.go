package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBackup = `{
  "backup_metadata": {"backup_time": "2025-09-24T16:56:34", "total_tables_discovered": 1},
  "database_schema": {"discovery_time": "", "total_tables": 1, "tables": []},
  "tables": [{
    "table_name": "users",
    "schema_info": {
      "table_name": "users",
      "columns": [
        {"name": "id", "data_type": "uuid", "options": ["updatable"]},
        {"name": "email", "data_type": "text", "options": ["nullable"]}
      ],
      "primary_keys": ["id"],
      "foreign_keys": []
    },
    "rows_backed_up": 1,
    "expected_rows": 1,
    "data": [{"id": "u1", "email": null}]
  }]
}`

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

func TestRestoreCommand_WritesScript(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "backup.json")
	out := filepath.Join(dir, "restore.sql")
	require.NoError(t, os.WriteFile(in, []byte(sampleBackup), 0o644))

	require.NoError(t, runRoot(t, "restore", in, "--output", out, "--target-database", "main", "--order", "input"))

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- Target database: main")
	assert.Contains(t, string(body), "-- Source backup: 2025-09-24T16:56:34")
	assert.Contains(t, string(body), "INSERT INTO users (id, email) VALUES ('u1', NULL);")
}

func TestRestoreCommand_RejectsInvalidInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "backup.json")
	require.NoError(t, os.WriteFile(in, []byte(sampleBackup), 0o644))

	err := runRoot(t, "restore", in, "--output", filepath.Join(dir, "x.sql"), "--target-database", "staging", "--order", "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target database")

	err = runRoot(t, "restore", filepath.Join(dir, "missing.json"), "--target-database", "backup", "--order", "input")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(in, []byte(`{"backup_metadata": {}, "tables": []}`), 0o644))
	err = runRoot(t, "restore", in, "--target-database", "backup", "--order", "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_schema")
}
