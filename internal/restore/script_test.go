package restore_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"db-vault/internal/dialect"
	"db-vault/internal/restore"
	"db-vault/internal/snapshot"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(t *testing.T, kv ...any) *snapshot.Row {
	t.Helper()
	r := snapshot.NewRow()
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, r.Set(kv[i].(string), kv[i+1]))
	}
	return r
}

func usersTable(t *testing.T) snapshot.TableSnapshot {
	return snapshot.TableSnapshot{
		Name: "users",
		SchemaInfo: snapshot.TableSchema{
			Name: "users",
			Columns: []snapshot.ColumnSpec{
				{Name: "id", DataType: "uuid", Options: []string{"updatable"}},
				{Name: "email", DataType: "text", Options: []string{"nullable", "updatable"}},
			},
			PrimaryKeys: []string{"id"},
		},
		Data: []*snapshot.Row{
			row(t, "id", "u1", "email", nil),
			row(t, "id", "u2", "email", "a@b.com"),
		},
	}
}

func named(names ...string) []snapshot.TableSnapshot {
	tables := make([]snapshot.TableSnapshot, len(names))
	for i, n := range names {
		tables[i] = snapshot.TableSnapshot{Name: n, SchemaInfo: snapshot.TableSchema{Name: n}}
	}
	return tables
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func fixedGenerator(opts restore.Options, log logrus.FieldLogger) *restore.Generator {
	g := restore.NewGenerator(&dialect.PostgresDialect{}, opts, log)
	g.Now = func() time.Time { return time.Date(2025, 9, 24, 16, 56, 34, 0, time.UTC) }
	return g
}

func TestGenerate_EndToEndUsers(t *testing.T) {
	doc := &snapshot.Document{
		Metadata: snapshot.Metadata{BackupTime: "2025-09-24T16:56:34"},
		Tables:   []snapshot.TableSnapshot{usersTable(t)},
	}

	script := fixedGenerator(restore.Options{}, nil).Generate(doc)
	flat := flatten(script)

	assert.Contains(t, flat, "CREATE TABLE users ( id UUID NOT NULL, email TEXT );")
	assert.Contains(t, script, "ALTER TABLE users ADD PRIMARY KEY (id);")
	assert.Contains(t, script, "INSERT INTO users (id, email) VALUES ('u1', NULL);")
	assert.Contains(t, script, "INSERT INTO users (id, email) VALUES ('u2', 'a@b.com');")
	assert.Contains(t, script, "-- Target database: backup")
	assert.Contains(t, script, "-- Total rows: 2")
	assert.Contains(t, script, "-- Generated: 2025-09-24T16:56:34Z")
}

func TestGenerate_SectionOrder(t *testing.T) {
	users := usersTable(t)
	users.SchemaInfo.Columns[1].Check = "email LIKE '%@%'"
	orders := snapshot.TableSnapshot{
		Name: "orders",
		SchemaInfo: snapshot.TableSchema{
			Name:        "orders",
			Columns:     []snapshot.ColumnSpec{{Name: "user_id", DataType: "uuid"}},
			ForeignKeys: []snapshot.ForeignKeySpec{{Name: "orders_user_fk", Source: "public.orders.user_id", Target: "public.users.id"}},
		},
	}
	doc := &snapshot.Document{Tables: []snapshot.TableSnapshot{users, orders}}

	script := fixedGenerator(restore.Options{}, nil).Generate(doc)

	markers := []string{
		"-- SUPABASE RESTORE SCRIPT",
		"SET session_replication_role = replica;",
		"DROP TABLE IF EXISTS orders CASCADE;",
		"CREATE TABLE users (",
		"ALTER TABLE users ADD PRIMARY KEY (id);",
		"INSERT INTO users",
		"ALTER TABLE orders ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) REFERENCES users(id);",
		"ALTER TABLE users ADD CONSTRAINT check_users_email CHECK (email LIKE '%@%');",
		"SET session_replication_role = DEFAULT;",
		"-- RESTORE COMPLETE",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(script, m)
		require.NotEqual(t, -1, idx, m)
		assert.Greater(t, idx, last, m)
		last = idx
	}
	assert.Contains(t, script, "-- Source backup: Unknown")
}

func TestGenerate_IdempotentExceptTimestamp(t *testing.T) {
	doc := &snapshot.Document{Tables: []snapshot.TableSnapshot{usersTable(t)}}

	g := restore.NewGenerator(&dialect.PostgresDialect{}, restore.Options{TargetDatabase: "main"}, nil)
	first := g.Generate(doc)
	second := g.Generate(doc)

	strip := func(s string) string {
		var keep []string
		for _, line := range strings.Split(s, "\n") {
			if !strings.HasPrefix(line, "-- Generated: ") {
				keep = append(keep, line)
			}
		}
		return strings.Join(keep, "\n")
	}
	assert.Equal(t, strip(first), strip(second))

	fixed := fixedGenerator(restore.Options{}, nil)
	assert.Equal(t, fixed.Generate(doc), fixed.Generate(doc))
}

func TestGenerate_DependencyOrder(t *testing.T) {
	orders := snapshot.TableSnapshot{
		Name: "orders",
		SchemaInfo: snapshot.TableSchema{
			Name:        "orders",
			ForeignKeys: []snapshot.ForeignKeySpec{{Name: "fk", Source: "public.orders.user_id", Target: "public.users.id"}},
		},
	}
	users := snapshot.TableSnapshot{Name: "users", SchemaInfo: snapshot.TableSchema{Name: "users"}}
	doc := &snapshot.Document{Tables: []snapshot.TableSnapshot{orders, users}}

	input := fixedGenerator(restore.Options{}, nil).Generate(doc)
	assert.Less(t, strings.Index(input, "DROP TABLE IF EXISTS users"), strings.Index(input, "DROP TABLE IF EXISTS orders"))

	sorted := fixedGenerator(restore.Options{Order: restore.OrderDependency}, nil).Generate(doc)
	assert.Less(t, strings.Index(sorted, "DROP TABLE IF EXISTS orders"), strings.Index(sorted, "DROP TABLE IF EXISTS users"))
	assert.Less(t, strings.Index(sorted, "CREATE TABLE users"), strings.Index(sorted, "CREATE TABLE orders"))
}

func TestGenerate_UsesStatisticsWhenPresent(t *testing.T) {
	doc := &snapshot.Document{
		Metadata: snapshot.Metadata{Statistics: &snapshot.Statistics{TotalRows: 418}},
		Tables:   []snapshot.TableSnapshot{usersTable(t)},
	}
	assert.Contains(t, fixedGenerator(restore.Options{}, nil).Generate(doc), "-- Total rows: 418")
}

func TestGenerate_WarnsOnCaptureErrors(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	tbl := named("broken")[0]
	tbl.BackupError = "permission denied"
	doc := &snapshot.Document{Tables: []snapshot.TableSnapshot{tbl}}

	script := fixedGenerator(restore.Options{}, log).Generate(doc)
	assert.Contains(t, script, "-- No data for table: broken")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "broken", hook.LastEntry().Data["table"])
}

func TestWriteScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "restore.sql")
	require.NoError(t, restore.WriteScript(path, "SELECT 1;\n"))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\n", string(body))
}

func TestWriteScript_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := restore.WriteScript(filepath.Join(blocker, "restore.sql"), "SELECT 1;")
	var werr *restore.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, filepath.Join(blocker, "restore.sql"), werr.Path)
}

func TestDefaultOutputPath(t *testing.T) {
	now := time.Date(2025, 9, 24, 16, 56, 34, 0, time.UTC)
	assert.Equal(t, "restore_2025-09-24_16-56-34.sql", restore.DefaultOutputPath(now))
}

func TestGenerate_DependencyOrderKeepsRepeatedTables(t *testing.T) {
	tables := named("a", "a", "b")
	tables[0].SchemaInfo.ForeignKeys = []snapshot.ForeignKeySpec{{Name: "fk", Source: "public.a.b_id", Target: "public.b.id"}}
	tables[1].SchemaInfo.ForeignKeys = tables[0].SchemaInfo.ForeignKeys
	tables[2].SchemaInfo.ForeignKeys = []snapshot.ForeignKeySpec{{Name: "fk", Source: "public.b.a_id", Target: "public.a.id"}}

	out := fixedGenerator(restore.Options{Order: restore.OrderDependency}, nil).Generate(&snapshot.Document{Tables: tables})
	assert.Equal(t, 3, strings.Count(out, "DROP TABLE IF EXISTS"))
	assert.Equal(t, 2, strings.Count(out, "CREATE TABLE a ("))
	assert.Equal(t, 1, strings.Count(out, "CREATE TABLE b ("))
}
