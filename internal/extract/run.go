package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"db-vault/internal/snapshot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options describe the backup being produced. Zero values get sensible defaults.
type Options struct {
	BackupType     string // default "complete"
	SourceDatabase string
	BackupMethod   string // default "direct-sql"

	// Now and NewID are replaceable for reproducible output.
	Now   func() time.Time
	NewID func() string
}

// Progress is called after each table with the number of tables done so far.
type Progress func(table string, done, total int)

// Run captures every table of the discovery from src, one table at a time.
// A table that fails is recorded with its error and no data; the run goes on.
// Only context cancellation aborts it.
func Run(ctx context.Context, src RowSource, discovery snapshot.Discovery, opts Options, progress Progress, log logrus.FieldLogger) (*snapshot.Document, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if opts.BackupType == "" {
		opts.BackupType = "complete"
	}
	if opts.BackupMethod == "" {
		opts.BackupMethod = "direct-sql"
	}

	start := opts.Now()
	doc := &snapshot.Document{
		Metadata: snapshot.Metadata{
			BackupID:              opts.NewID(),
			BackupTime:            start.UTC().Format(time.RFC3339),
			BackupType:            opts.BackupType,
			SourceDatabase:        opts.SourceDatabase,
			BackupMethod:          opts.BackupMethod,
			SchemaDiscoveryTime:   discovery.DiscoveryTime,
			TotalTablesDiscovered: len(discovery.Tables),
		},
		Schema: discovery,
		Tables: make([]snapshot.TableSnapshot, 0, len(discovery.Tables)),
	}

	for i, table := range discovery.Tables {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backup interrupted at table %s: %w", table.Name, err)
		}
		entry := log.WithField("table", table.Name)

		snap := snapshot.TableSnapshot{
			Name:            table.Name,
			SchemaInfo:      table,
			BackupTimestamp: opts.Now().UTC().Format(time.RFC3339),
			ExpectedRows:    table.RowCount,
			Data:            []*snapshot.Row{},
		}

		rows, err := src.Rows(ctx, table)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("backup interrupted at table %s: %w", table.Name, ctx.Err())
		case err != nil:
			entry.WithError(err).Error("Failed to back up table")
			snap.BackupError = err.Error()
		default:
			if rows != nil {
				snap.Data = rows
			}
			snap.RowsBackedUp = len(rows)
			if table.RowCount > 0 && len(rows) != table.RowCount {
				entry.WithFields(logrus.Fields{"expected": table.RowCount, "actual": len(rows)}).
					Warn("Row count differs from discovery estimate")
			}
			entry.WithField("rows", len(rows)).Debug("Table backed up")
		}

		doc.Tables = append(doc.Tables, snap)
		if progress != nil {
			progress(table.Name, i+1, len(discovery.Tables))
		}
	}

	stats, err := snapshot.ComputeStatistics(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to compute backup statistics: %w", err)
	}
	doc.Metadata.Statistics = &stats
	return doc, nil
}

// DefaultBackupPath names a backup file after its capture time.
func DefaultBackupPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("complete_backup_%s.json", now.UTC().Format("2006-01-02T15-04-05Z")))
}
