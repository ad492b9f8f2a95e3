package dialect

import "strings"

// QuoteIdent double-quotes an identifier for use in generated queries.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// DefaultGetSchemaName falls back to public when no schema was configured.
func DefaultGetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
