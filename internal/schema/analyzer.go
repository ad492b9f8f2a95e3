package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-vault/internal/dialect"
	"db-vault/internal/snapshot"

	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------
// Schema Analysis Logic
// ---------------------------------------------------------------------

// Analyze introspects one schema and returns its tables in dependency order,
// described the way the hosting platform reports them.
func Analyze(ctx context.Context, db *sql.DB, d dialect.Dialect, schemaName string, log logrus.FieldLogger) ([]snapshot.TableSchema, error) {
	target := d.GetSchemaName(schemaName)

	// Tables are collected by pointer and keyed by name for the later passes.
	tableMap := make(map[string]*snapshot.TableSchema)
	var order []string

	// --- Step 1: Fetch Tables ---
	rows, err := db.QueryContext(ctx, d.GetTablesQuery(), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var rls bool
		var estimate int64
		if err := rows.Scan(&name, &rls, &estimate); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tableMap[name] = &snapshot.TableSchema{
			Name:        name,
			Schema:      target,
			RLSEnabled:  rls,
			RowCount:    int(estimate),
			Columns:     []snapshot.ColumnSpec{},
			PrimaryKeys: []string{},
			ForeignKeys: []snapshot.ForeignKeySpec{},
		}
		order = append(order, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	// --- Step 2: Fetch Columns ---
	colRows, err := db.QueryContext(ctx, d.GetColumnsQuery(), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var tName, cName, dType, udt, isNull, isUpdatable, colDefault sql.NullString
		var isUnique bool
		if err := colRows.Scan(&tName, &cName, &dType, &udt, &isNull, &isUpdatable, &colDefault, &isUnique); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid {
			continue // Skip invalid rows
		}

		t, ok := tableMap[tName.String]
		if !ok {
			continue // views and partitions
		}

		var options []string
		if isNull.String == "YES" {
			options = append(options, "nullable")
		}
		if isUpdatable.String == "YES" {
			options = append(options, "updatable")
		}
		if isUnique {
			options = append(options, "unique")
		}

		t.Columns = append(t.Columns, snapshot.ColumnSpec{
			Name:         cName.String,
			DataType:     dType.String,
			Format:       udt.String,
			Options:      options,
			DefaultValue: colDefault.String,
		})
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	// --- Step 3: Fetch Primary Keys ---
	pkRows, err := db.QueryContext(ctx, d.GetPrimaryKeysQuery(), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var tName, cName string
		if err := pkRows.Scan(&tName, &cName); err != nil {
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		if t, ok := tableMap[tName]; ok {
			t.PrimaryKeys = append(t.PrimaryKeys, cName)
		}
	}
	if err := pkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary keys: %w", err)
	}

	// --- Step 4: Fetch Foreign Keys ---
	fkRows, err := db.QueryContext(ctx, d.GetForeignKeysQuery(), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var tName, cConst, cName, rSchema, rTable, rCol sql.NullString
		if err := fkRows.Scan(&tName, &cConst, &cName, &rSchema, &rTable, &rCol); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		t, ok := tableMap[tName.String]
		if !ok || !rTable.Valid {
			continue
		}
		// References outside the schema (auth.users on Supabase) are kept; the
		// restore side decides what to do with them.
		t.ForeignKeys = append(t.ForeignKeys, snapshot.ForeignKeySpec{
			Name:   cConst.String,
			Source: strings.Join([]string{target, tName.String, cName.String}, "."),
			Target: strings.Join([]string{rSchema.String, rTable.String, rCol.String}, "."),
		})
	}
	if err := fkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}

	// --- Step 5: Fetch CHECK constraints ---
	chkRows, err := db.QueryContext(ctx, d.GetCheckConstraintsQuery(), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query check constraints: %w", err)
	}
	defer chkRows.Close()

	for chkRows.Next() {
		var tName, cName, colName, def string
		var keyCount int
		if err := chkRows.Scan(&tName, &cName, &keyCount, &colName, &def); err != nil {
			return nil, fmt.Errorf("failed to scan check constraint: %w", err)
		}
		t, ok := tableMap[tName]
		if !ok {
			continue
		}
		if keyCount != 1 {
			log.WithFields(logrus.Fields{"table": tName, "constraint": cName}).
				Warn("Ignoring CHECK constraint that does not target exactly one column")
			continue
		}
		for i := range t.Columns {
			if t.Columns[i].Name == colName {
				t.Columns[i].Check = CheckExpression(def)
				break
			}
		}
	}
	if err := chkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check constraints: %w", err)
	}

	tables := make([]snapshot.TableSchema, 0, len(order))
	for _, name := range order {
		tables = append(tables, *tableMap[name])
	}
	return SortTablesByFKCount(tables, log), nil
}

// CheckExpression strips the CHECK keyword and redundant outer parentheses
// from a pg_get_constraintdef result, e.g. "CHECK ((qty > 0))" becomes "qty > 0".
func CheckExpression(def string) string {
	expr := strings.TrimSpace(def)
	expr = strings.TrimSuffix(expr, " NOT VALID")
	expr = strings.TrimPrefix(expr, "CHECK ")
	for wrappedInParens(expr) {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	return expr
}

// wrappedInParens reports whether the opening paren at index 0 closes at the last byte.
func wrappedInParens(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
