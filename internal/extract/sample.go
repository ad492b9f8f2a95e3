package extract

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"db-vault/internal/snapshot"

	"github.com/brianvoe/gofakeit/v6"
)

// Quoted literals inside a CHECK such as "role = ANY (ARRAY['admin'::text, 'user'::text])".
var checkLiteral = regexp.MustCompile(`'((?:[^']|'')*)'`)

// SampleSource fabricates plausible rows from the discovered schema, for dry runs
// without a live database. Output depends only on the seed, the anchor time and
// the order in which tables are requested.
type SampleSource struct {
	rowsPerTable int
	faker        *gofakeit.Faker
	anchor       time.Time

	// generated values by "table.column", reused for foreign keys
	pool map[string][]any
}

// NewSampleSource returns a source that yields rowsPerTable rows per table.
// A negative count yields no rows. A zero seed draws from crypto/rand and is
// not reproducible.
func NewSampleSource(rowsPerTable int, seed int64, anchor time.Time) *SampleSource {
	rowsPerTable = max(rowsPerTable, 0)
	if anchor.IsZero() {
		anchor = time.Now()
	}
	return &SampleSource{
		rowsPerTable: rowsPerTable,
		faker:        gofakeit.New(seed),
		anchor:       anchor.UTC(),
		pool:         make(map[string][]any),
	}
}

func (s *SampleSource) Rows(ctx context.Context, t snapshot.TableSchema) ([]*snapshot.Row, error) {
	rows := make([]*snapshot.Row, 0, s.rowsPerTable)
	for i := 0; i < s.rowsPerTable; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := snapshot.NewRow()
		for _, col := range t.Columns {
			v := s.value(t, col, i)
			if err := row.Set(col.Name, v); err != nil {
				return nil, fmt.Errorf("failed to build sample row for %s: %w", t.Name, err)
			}
			key := t.Name + "." + col.Name
			s.pool[key] = append(s.pool[key], v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SampleSource) value(t snapshot.TableSchema, col snapshot.ColumnSpec, index int) any {
	// FK columns reuse values already generated for the referenced table.
	if ref, ok := referencedColumn(t, col.Name); ok {
		if vals := s.pool[ref]; len(vals) > 0 {
			return vals[index%len(vals)]
		}
		if col.Nullable() {
			return nil
		}
	}

	if literals := checkLiterals(col.Check); len(literals) > 0 {
		return literals[s.faker.Number(0, len(literals)-1)]
	}

	isPK := slices.Contains(t.PrimaryKeys, col.Name)
	if col.Nullable() && !isPK && s.faker.Number(1, 10) == 1 {
		return nil
	}

	dataType := strings.ToLower(col.DataType)
	meaning := columnMeaning(col.Name)

	switch {
	case dataType == "uuid":
		return s.faker.UUID()
	case strings.Contains(dataType, "bool"):
		return s.faker.Bool()
	case strings.Contains(dataType, "timestamp"):
		return s.date().Format(time.RFC3339)
	case dataType == "date":
		return s.date().Format("2006-01-02")
	case strings.HasPrefix(dataType, "time"):
		return s.date().Format("15:04:05")
	case strings.Contains(dataType, "int"):
		if isPK {
			return index + 1
		}
		if strings.Contains(dataType, "smallint") {
			return s.faker.Number(1, 30000)
		}
		if strings.Contains(meaning, "yesno") {
			return s.faker.Number(0, 1)
		}
		return s.faker.Number(1, 50000)
	case strings.Contains(dataType, "numeric") || strings.Contains(dataType, "double") ||
		strings.Contains(dataType, "real") || strings.Contains(dataType, "decimal"):
		return s.faker.Price(0.99, 99.99)
	case strings.Contains(dataType, "json"):
		return map[string]any{"key": s.faker.Word(), "value": s.faker.Number(1, 100)}
	case dataType == "array":
		return []string{s.faker.Word(), s.faker.Word()}
	}

	text := s.text(meaning)
	if slices.Contains(col.Options, "unique") || isPK {
		text = fmt.Sprintf("%d-%s", index+1, text)
	}
	return text
}

// text picks a fake string from the column's expanded name.
func (s *SampleSource) text(meaning string) string {
	f := s.faker
	switch {
	case strings.Contains(meaning, "email"):
		return f.Email()
	case strings.Contains(meaning, "phone"):
		return f.Phone()
	case strings.Contains(meaning, "first"):
		return f.FirstName()
	case strings.Contains(meaning, "last"):
		return f.LastName()
	case strings.Contains(meaning, "name"):
		return f.Name()
	case strings.Contains(meaning, "address") || strings.Contains(meaning, "street"):
		return f.Street()
	case strings.Contains(meaning, "city"):
		return f.City()
	case strings.Contains(meaning, "country"):
		return f.Country()
	case strings.Contains(meaning, "zipcode"):
		return f.Zip()
	case strings.Contains(meaning, "url") || strings.Contains(meaning, "image"):
		return f.URL()
	case strings.Contains(meaning, "password") || strings.Contains(meaning, "token"):
		return f.Password(true, true, true, false, false, 24)
	case strings.Contains(meaning, "ip"):
		return f.IPv4Address()
	case strings.Contains(meaning, "title") || strings.Contains(meaning, "subject"):
		return f.Sentence(3)
	case strings.Contains(meaning, "description") || strings.Contains(meaning, "message") ||
		strings.Contains(meaning, "text") || strings.Contains(meaning, "comment") ||
		strings.Contains(meaning, "content"):
		return f.Sentence(10)
	default:
		return f.Word()
	}
}

func (s *SampleSource) date() time.Time {
	return s.faker.DateRange(s.anchor.AddDate(-1, 0, 0), s.anchor).UTC()
}

// referencedColumn returns "table.column" for the FK target of col, if any.
func referencedColumn(t snapshot.TableSchema, col string) (string, bool) {
	for _, fk := range t.ForeignKeys {
		source := snapshot.SplitRef(fk.Source)
		target := snapshot.SplitRef(fk.Target)
		if len(source) < 1 || len(target) < 2 || source[len(source)-1] != col {
			continue
		}
		return target[len(target)-2] + "." + target[len(target)-1], true
	}
	return "", false
}

// checkLiterals lists the quoted literals of an enumeration-style CHECK
// (= ANY (ARRAY[...]) or IN (...)). Other expressions yield nothing.
func checkLiterals(check string) []string {
	if check == "" {
		return nil
	}
	upper := strings.ToUpper(check)
	if !strings.Contains(upper, "ANY") && !strings.Contains(upper, " IN ") {
		return nil
	}
	var out []string
	for _, m := range checkLiteral.FindAllStringSubmatch(check, -1) {
		out = append(out, strings.ReplaceAll(m[1], "''", "'"))
	}
	return out
}
