package dialect

import "fmt"

type PostgresDialect struct{}

func (d *PostgresDialect) GetTablesQuery() string {
	// reltuples is the planner estimate; -1 means never analyzed.
	return `SELECT c.relname, c.relrowsecurity, GREATEST(c.reltuples, 0)::bigint
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relkind IN ('r', 'p') AND NOT c.relispartition
ORDER BY c.relname`
}

func (d *PostgresDialect) GetColumnsQuery() string {
	// data_type keeps the platform tags ("ARRAY", "USER-DEFINED", "timestamp with time zone"),
	// udt_name is stored as the column format.
	return `SELECT
    c.table_name,
    c.column_name,
    c.data_type,
    c.udt_name,
    c.is_nullable,
    c.is_updatable,
    c.column_default,
    EXISTS (SELECT 1 FROM information_schema.table_constraints tc
     JOIN information_schema.key_column_usage kcu
       ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
     WHERE tc.constraint_type = 'UNIQUE'
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name) AS is_unique
FROM information_schema.columns c
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetPrimaryKeysQuery() string {
	return `SELECT kcu.table_name, kcu.column_name FROM information_schema.key_column_usage kcu JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema WHERE kcu.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY' ORDER BY kcu.table_name, kcu.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery() string {
	return `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name, ccu.table_schema AS referenced_schema, ccu.table_name AS referenced_table_name, ccu.column_name AS referenced_column_name FROM information_schema.key_column_usage kcu JOIN information_schema.constraint_column_usage ccu ON kcu.constraint_name = ccu.constraint_name AND kcu.table_schema = ccu.constraint_schema JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema WHERE kcu.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY' ORDER BY kcu.table_name, kcu.constraint_name`
}

func (d *PostgresDialect) GetCheckConstraintsQuery() string {
	// Column is only resolved for single-column checks; conkey length tells the analyzer which is which.
	return `SELECT rel.relname, con.conname, COALESCE(array_length(con.conkey, 1), 0), COALESCE(att.attname, ''), pg_get_constraintdef(con.oid)
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = rel.relnamespace
LEFT JOIN pg_catalog.pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = con.conkey[1]
WHERE con.contype = 'c' AND n.nspname = $1
ORDER BY rel.relname, con.conname`
}

func (d *PostgresDialect) SelectAllQuery(schema, table string) string {
	return fmt.Sprintf("SELECT * FROM %s.%s", QuoteIdent(d.GetSchemaName(schema)), QuoteIdent(table))
}

// RelaxIntegrity disables trigger-based FK enforcement for the session so rows
// can load before the rows they reference.
func (d *PostgresDialect) RelaxIntegrity() string {
	return "SET session_replication_role = replica;"
}

func (d *PostgresDialect) RestoreIntegrity() string {
	return "SET session_replication_role = DEFAULT;"
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}

func (d *PostgresDialect) DatabaseType() string {
	return "Supabase PostgreSQL"
}
