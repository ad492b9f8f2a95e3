package restore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"db-vault/internal/dialect"
	"db-vault/internal/schema"
	"db-vault/internal/snapshot"

	"github.com/sirupsen/logrus"
)

const (
	OrderInput      = "input"
	OrderDependency = "dependency"
)

// Options control script generation. None of them change the SQL semantics
// except Order, which reorders tables before any section is built.
type Options struct {
	// TargetDatabase is an informational label written into the header.
	TargetDatabase string
	// Order is OrderInput (default) or OrderDependency.
	Order string
}

// Generator turns a backup document into a SQL restore script.
type Generator struct {
	dialect dialect.Dialect
	log     logrus.FieldLogger
	opts    Options

	// Now stamps the header; replace it for reproducible output.
	Now func() time.Time
}

func NewGenerator(d dialect.Dialect, opts Options, log logrus.FieldLogger) *Generator {
	if opts.TargetDatabase == "" {
		opts.TargetDatabase = "backup"
	}
	if opts.Order == "" {
		opts.Order = OrderInput
	}
	return &Generator{dialect: d, log: orDiscard(log), opts: opts, Now: time.Now}
}

// Generate assembles the full script. Sections are emitted in a fixed order;
// foreign keys follow the data load so inserts never wait on referenced rows.
func (g *Generator) Generate(doc *snapshot.Document) string {
	tables := doc.Tables
	if g.opts.Order == OrderDependency {
		tables = schema.SortTablesByFKCount(tables, g.log)
	}

	sections := []string{g.header(doc, tables)}
	for _, build := range []sectionBuilder{
		BuildDrop,
		BuildCreate,
		BuildPrimaryKeys,
		BuildInserts,
		BuildForeignKeys,
		BuildChecks,
	} {
		sections = append(sections, build(tables, g.log))
	}
	sections = append(sections, g.footer())

	for _, t := range tables {
		if t.BackupError != "" {
			g.log.WithFields(logrus.Fields{"table": t.Name, "error": t.BackupError}).
				Warn("Table was captured with an error; its data may be incomplete")
		}
	}
	return strings.Join(sections, "\n")
}

func (g *Generator) header(doc *snapshot.Document, tables []snapshot.TableSnapshot) string {
	source := doc.Metadata.BackupTime
	if source == "" {
		source = "Unknown"
	}
	totalRows := doc.TotalRows()
	if doc.Metadata.Statistics != nil {
		totalRows = doc.Metadata.Statistics.TotalRows
	}

	lines := []string{
		banner,
		"-- SUPABASE RESTORE SCRIPT",
		"-- Generated by db-vault",
		banner,
		"-- Source backup: " + source,
		"-- Target database: " + g.opts.TargetDatabase,
		"-- Generated: " + g.Now().Format(time.RFC3339),
		fmt.Sprintf("-- Tables: %d", len(tables)),
		fmt.Sprintf("-- Total rows: %d", totalRows),
		banner,
		"",
		"-- Disable foreign key checks temporarily",
		g.dialect.RelaxIntegrity(),
		"",
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) footer() string {
	lines := []string{
		banner,
		"-- RE-ENABLE CONSTRAINTS",
		banner,
		"",
		"-- Re-enable foreign key checks",
		g.dialect.RestoreIntegrity(),
		"",
		banner,
		"-- RESTORE COMPLETE",
		banner,
		"",
	}
	return strings.Join(lines, "\n")
}

// WriteError reports a restore script that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write restore script %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DefaultOutputPath names a script after the time it was generated.
func DefaultOutputPath(now time.Time) string {
	return fmt.Sprintf("restore_%s.sql", now.Format("2006-01-02_15-04-05"))
}

// WriteScript writes the script in one shot. Failures are *WriteError.
func WriteScript(path, script string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
