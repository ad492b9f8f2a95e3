package snapshot

import "slices"

// Document is the complete backup as written by `backup` and read by `restore`.
type Document struct {
	Metadata Metadata        `json:"backup_metadata"`
	Schema   Discovery       `json:"database_schema"`
	Tables   []TableSnapshot `json:"tables"`
}

type Metadata struct {
	BackupID              string      `json:"backup_id,omitempty"`
	BackupTime            string      `json:"backup_time"`
	BackupType            string      `json:"backup_type,omitempty"`
	SourceDatabase        string      `json:"source_database,omitempty"`
	BackupMethod          string      `json:"backup_method,omitempty"`
	SchemaDiscoveryTime   string      `json:"schema_discovery_time,omitempty"`
	TotalTablesDiscovered int         `json:"total_tables_discovered"`
	Statistics            *Statistics `json:"statistics,omitempty"`
}

type Statistics struct {
	TotalTables        int     `json:"total_tables"`
	TotalRows          int     `json:"total_rows"`
	EstimatedSizeBytes int64   `json:"estimated_size_bytes"`
	EstimatedSizeMB    float64 `json:"estimated_size_mb"`
}

// Discovery is the schema-only description of a database (the database_schema section).
type Discovery struct {
	DiscoveryTime   string        `json:"discovery_time"`
	DiscoveryMethod string        `json:"discovery_method,omitempty"`
	DatabaseType    string        `json:"database_type,omitempty"`
	TotalTables     int           `json:"total_tables"`
	Tables          []TableSchema `json:"tables"`
}

type TableSchema struct {
	Name        string           `json:"table_name"`
	Schema      string           `json:"schema,omitempty"`
	RLSEnabled  bool             `json:"rls_enabled"`
	RowCount    int              `json:"row_count"`
	Columns     []ColumnSpec     `json:"columns"`
	PrimaryKeys []string         `json:"primary_keys"`
	ForeignKeys []ForeignKeySpec `json:"foreign_keys"`
}

type ColumnSpec struct {
	Name         string   `json:"name"`
	DataType     string   `json:"data_type"`
	Format       string   `json:"format,omitempty"`
	Options      []string `json:"options"`
	DefaultValue string   `json:"default_value,omitempty"`
	Check        string   `json:"check,omitempty"`
}

// Nullable reports whether the platform marked the column as accepting NULL.
func (c ColumnSpec) Nullable() bool {
	return slices.Contains(c.Options, "nullable")
}

// ForeignKeySpec references are dotted "schema.table.column" paths.
type ForeignKeySpec struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// TableSnapshot is one table's captured state: its schema plus the extracted rows.
type TableSnapshot struct {
	Name            string      `json:"table_name"`
	SchemaInfo      TableSchema `json:"schema_info"`
	BackupTimestamp string      `json:"backup_timestamp,omitempty"`
	RowsBackedUp    int         `json:"rows_backed_up"`
	ExpectedRows    int         `json:"expected_rows"`
	BackupError     string      `json:"backup_error,omitempty"`
	Data            []*Row      `json:"data"`
}

// Dependencies returns the tables this table references through its foreign keys,
// excluding self references.
func (t TableSchema) Dependencies() []string {
	var deps []string
	for _, fk := range t.ForeignKeys {
		parts := SplitRef(fk.Target)
		if len(parts) < 3 {
			continue
		}
		ref := parts[len(parts)-2]
		if ref == t.Name || slices.Contains(deps, ref) {
			continue
		}
		deps = append(deps, ref)
	}
	return deps
}

func (t TableSchema) TableName() string { return t.Name }

func (t TableSnapshot) TableName() string { return t.Name }

func (t TableSnapshot) Dependencies() []string { return t.SchemaInfo.Dependencies() }
