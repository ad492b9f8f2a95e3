package restore

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"db-vault/internal/snapshot"

	"github.com/sirupsen/logrus"
)

const banner = "-- ====================================================="

// sectionBuilder renders one section of the restore script from the table sequence.
type sectionBuilder func(tables []snapshot.TableSnapshot, log logrus.FieldLogger) string

// Defaults that are SQL expressions rather than literals.
var expressionDefaults = []string{"now()", "gen_random_uuid()", "CURRENT_DATE", "CURRENT_TIMESTAMP"}

func section(title string, body []string) string {
	lines := append([]string{banner, "-- " + title, banner, ""}, body...)
	return strings.Join(lines, "\n")
}

// BuildDrop drops tables in reverse input order. This only approximates
// dependency order; forward references and cycles rely on CASCADE.
func BuildDrop(tables []snapshot.TableSnapshot, _ logrus.FieldLogger) string {
	var body []string
	for i := len(tables) - 1; i >= 0; i-- {
		body = append(body, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", tables[i].Name))
	}
	return section("DROP EXISTING TABLES", append(body, ""))
}

func BuildCreate(tables []snapshot.TableSnapshot, _ logrus.FieldLogger) string {
	var body []string
	for _, t := range tables {
		body = append(body, "-- Table: "+t.Name, CreateTable(t), "")
	}
	return section("CREATE TABLES", body)
}

// CreateTable renders the CREATE TABLE statement for one table, without constraints.
func CreateTable(t snapshot.TableSnapshot) string {
	defs := make([]string, 0, len(t.SchemaInfo.Columns))
	for _, col := range t.SchemaInfo.Columns {
		defs = append(defs, "    "+ColumnDefinition(col))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", t.Name, strings.Join(defs, ",\n"))
}

func ColumnDefinition(col snapshot.ColumnSpec) string {
	def := col.Name + " " + MapDataType(col.DataType)
	if !col.Nullable() {
		def += " NOT NULL"
	}
	if d := DefaultClause(col.DefaultValue); d != "" {
		def += " DEFAULT " + d
	}
	return def
}

// DefaultClause decides whether a captured default is emitted verbatim or quoted.
// It is a heuristic, not a SQL parser: casts and arithmetic end up quoted.
func DefaultClause(raw string) string {
	switch {
	case raw == "" || raw == "null":
		return ""
	case strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'"):
		return raw
	case slices.Contains(expressionDefaults, raw):
		return raw
	case isDigits(raw) || raw == "true" || raw == "false":
		return raw
	default:
		return "'" + raw + "'"
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func BuildPrimaryKeys(tables []snapshot.TableSnapshot, _ logrus.FieldLogger) string {
	var body []string
	for _, t := range tables {
		if pks := t.SchemaInfo.PrimaryKeys; len(pks) > 0 {
			body = append(body, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", t.Name, strings.Join(pks, ", ")))
		}
	}
	return section("PRIMARY KEYS", append(body, ""))
}

// BuildForeignKeys emits FK constraints. References that do not resolve to
// schema.table.column are skipped.
func BuildForeignKeys(tables []snapshot.TableSnapshot, log logrus.FieldLogger) string {
	log = orDiscard(log)
	var body []string
	for _, t := range tables {
		for _, fk := range t.SchemaInfo.ForeignKeys {
			name := fk.Name
			if name == "" {
				name = "fk_" + t.Name
			}
			source := snapshot.SplitRef(fk.Source)
			target := snapshot.SplitRef(fk.Target)
			if fk.Source == "" || fk.Target == "" || len(source) < 3 || len(target) < 3 {
				log.WithFields(logrus.Fields{
					"table":      t.Name,
					"constraint": name,
					"source":     fk.Source,
					"target":     fk.Target,
				}).Warn("Skipping foreign key with malformed reference")
				continue
			}
			body = append(body, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s);",
				t.Name, name, source[len(source)-1], target[len(target)-2], target[len(target)-1]))
		}
	}
	return section("FOREIGN KEYS", append(body, ""))
}

// BuildInserts emits one INSERT per captured row. The first row's keys fix the
// column list; keys missing from later rows insert NULL.
func BuildInserts(tables []snapshot.TableSnapshot, log logrus.FieldLogger) string {
	log = orDiscard(log)
	var body []string
	total := 0
	for _, t := range tables {
		if len(t.Data) == 0 {
			body = append(body, "-- No data for table: "+t.Name, "")
			continue
		}

		cols := t.Data[0].Columns()
		if len(cols) == 0 {
			log.WithField("table", t.Name).Warn("First row has no columns, skipping table data")
			body = append(body, fmt.Sprintf("-- Skipped %d rows for table: %s (no columns in first row)", len(t.Data), t.Name), "")
			continue
		}

		body = append(body, fmt.Sprintf("-- Data for table: %s (%d rows)", t.Name, len(t.Data)))
		colList := strings.Join(cols, ", ")
		for _, row := range t.Data {
			values := make([]string, len(cols))
			for i, col := range cols {
				v, _ := row.Value(col)
				values[i] = FormatValue(v)
			}
			body = append(body, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);", t.Name, colList, strings.Join(values, ", ")))
			total++
		}
		body = append(body, "")
	}
	body = append(body, fmt.Sprintf("-- Total rows inserted: %d", total), "")
	return section("INSERT DATA", body)
}

// BuildChecks re-adds column CHECK constraints. Expressions are passed through unvalidated.
func BuildChecks(tables []snapshot.TableSnapshot, _ logrus.FieldLogger) string {
	var body []string
	for _, t := range tables {
		for _, col := range t.SchemaInfo.Columns {
			if col.Check == "" {
				continue
			}
			body = append(body, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT check_%s_%s CHECK (%s);",
				t.Name, t.Name, col.Name, col.Check))
		}
	}
	if len(body) == 0 {
		body = append(body, "-- No CHECK constraints to add")
	}
	return section("CHECK CONSTRAINTS", append(body, ""))
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
