package extract_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"db-vault/internal/extract"
	"db-vault/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor = time.Date(2025, 9, 24, 0, 0, 0, 0, time.UTC)

func usersSchema() snapshot.TableSchema {
	return snapshot.TableSchema{
		Name: "users",
		Columns: []snapshot.ColumnSpec{
			{Name: "id", DataType: "integer"},
			{Name: "usr_email", DataType: "text", Options: []string{"unique"}},
			{Name: "role", DataType: "text", Check: "role = ANY (ARRAY['admin'::text, 'formateur'::text])"},
			{Name: "is_active", DataType: "boolean"},
			{Name: "created_at", DataType: "timestamp with time zone"},
		},
		PrimaryKeys: []string{"id"},
	}
}

func sessionsSchema() snapshot.TableSchema {
	return snapshot.TableSchema{
		Name: "sessions",
		Columns: []snapshot.ColumnSpec{
			{Name: "id", DataType: "uuid"},
			{Name: "user_id", DataType: "integer"},
		},
		PrimaryKeys: []string{"id"},
		ForeignKeys: []snapshot.ForeignKeySpec{{Name: "sessions_user_fk", Source: "public.sessions.user_id", Target: "public.users.id"}},
	}
}

func encode(t *testing.T, rows []*snapshot.Row) string {
	t.Helper()
	b, err := json.Marshal(rows)
	require.NoError(t, err)
	return string(b)
}

func TestSampleSource_Deterministic(t *testing.T) {
	a := extract.NewSampleSource(5, 42, anchor)
	b := extract.NewSampleSource(5, 42, anchor)

	ra, err := a.Rows(context.Background(), usersSchema())
	require.NoError(t, err)
	rb, err := b.Rows(context.Background(), usersSchema())
	require.NoError(t, err)

	assert.Equal(t, encode(t, ra), encode(t, rb))
}

func TestSampleSource_ColumnsAndValues(t *testing.T) {
	src := extract.NewSampleSource(4, 7, anchor)
	rows, err := src.Rows(context.Background(), usersSchema())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	seen := map[string]bool{}
	for i, r := range rows {
		assert.Equal(t, []string{"id", "usr_email", "role", "is_active", "created_at"}, r.Columns())

		id, _ := r.Value("id")
		assert.Equal(t, json.Number(jsonInt(i+1)), id)

		email, _ := r.Value("usr_email")
		assert.Contains(t, email, "@")
		assert.False(t, seen[email.(string)], "unique column repeated")
		seen[email.(string)] = true

		role, _ := r.Value("role")
		assert.Contains(t, []any{"admin", "formateur"}, role)

		active, _ := r.Value("is_active")
		assert.IsType(t, true, active)

		at, _ := r.Value("created_at")
		parsed, err := time.Parse(time.RFC3339, at.(string))
		require.NoError(t, err)
		assert.False(t, parsed.After(anchor))
	}
}

func TestSampleSource_ForeignKeysReuseParentValues(t *testing.T) {
	src := extract.NewSampleSource(3, 1, anchor)
	_, err := src.Rows(context.Background(), usersSchema())
	require.NoError(t, err)

	sessions, err := src.Rows(context.Background(), sessionsSchema())
	require.NoError(t, err)
	for _, r := range sessions {
		uid, _ := r.Value("user_id")
		assert.Contains(t, []any{json.Number("1"), json.Number("2"), json.Number("3")}, uid)
	}
}

func TestSampleSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extract.NewSampleSource(1, 1, anchor).Rows(ctx, usersSchema())
	assert.ErrorIs(t, err, context.Canceled)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestSampleSource_NegativeCountYieldsNoRows(t *testing.T) {
	rows, err := extract.NewSampleSource(-1, 1, anchor).Rows(context.Background(), usersSchema())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
