package extract

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"db-vault/internal/dialect"
	"db-vault/internal/snapshot"
)

// RowSource yields the rows of one table. Implementations need not be safe for
// concurrent use; Run calls them one table at a time.
type RowSource interface {
	Rows(ctx context.Context, table snapshot.TableSchema) ([]*snapshot.Row, error)
}

// DBSource reads rows from a live database with a plain SELECT *.
type DBSource struct {
	db      *sql.DB
	dialect dialect.Dialect
}

func NewDBSource(db *sql.DB, d dialect.Dialect) *DBSource {
	return &DBSource{db: db, dialect: d}
}

func (s *DBSource) Rows(ctx context.Context, t snapshot.TableSchema) ([]*snapshot.Row, error) {
	query := s.dialect.SelectAllQuery(s.dialect.GetSchemaName(t.Schema), t.Name)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", t.Name, err)
	}

	var out []*snapshot.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", t.Name, err)
		}

		row := snapshot.NewRow()
		for i, col := range cols {
			if err := row.Set(col, normalize(values[i])); err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of %s: %w", t.Name, err)
	}
	return out, nil
}

// normalize turns driver values into JSON-friendly ones. json/jsonb columns arrive
// as bytes and are kept as nested JSON; other byte values become text.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		if len(val) > 0 && (val[0] == '{' || val[0] == '[') && json.Valid(val) {
			return json.RawMessage(append([]byte(nil), val...))
		}
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
