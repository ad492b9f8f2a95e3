package dialect

// Dialect abstracts the database-specific SQL used for discovery, extraction
// and restore script generation.
type Dialect interface {
	// Metadata Queries (Schema Introspection), all parameterised by schema name.
	GetTablesQuery() string
	GetColumnsQuery() string
	GetPrimaryKeysQuery() string
	GetForeignKeysQuery() string
	GetCheckConstraintsQuery() string

	// Extraction
	SelectAllQuery(schema, table string) string

	// Restore script hooks, bracketing DROP..CHECK.
	RelaxIntegrity() string
	RestoreIntegrity() string

	// Helpers
	GetSchemaName(input string) string
	DatabaseType() string
}
