package restore

import "strings"

// typeMapping translates platform type tags into PostgreSQL keywords.
// Length and precision are not carried; VARCHAR stays unbounded.
var typeMapping = map[string]string{
	"uuid":                        "UUID",
	"text":                        "TEXT",
	"date":                        "DATE",
	"timestamp without time zone": "TIMESTAMP",
	"timestamp with time zone":    "TIMESTAMPTZ",
	"boolean":                     "BOOLEAN",
	"integer":                     "INTEGER",
	"bigint":                      "BIGINT",
	"character varying":           "VARCHAR",
	"jsonb":                       "JSONB",
	"ARRAY":                       "TEXT[]", // element type is not captured
}

// MapDataType returns the SQL type for a column's type tag. Unknown tags are
// returned upper-cased rather than rejected.
func MapDataType(tag string) string {
	if tag == "" {
		tag = "text"
	}
	if t, ok := typeMapping[tag]; ok {
		return t
	}
	return strings.ToUpper(tag)
}
