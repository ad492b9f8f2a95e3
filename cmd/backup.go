package cmd

import (
	"fmt"
	"sync/atomic"
	"time"

	"db-vault/internal/dialect"
	"db-vault/internal/extract"
	"db-vault/internal/schema"
	"db-vault/internal/snapshot"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	backupOutput    string
	backupDiscovery string
	sampleRows      int
	sampleSeed      int64
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Capture every table into a JSON backup document",
	Long: `Capture every table into a JSON backup document.

With --source=db (default) rows are read from the live database. The schema comes
from --discovery when given, otherwise it is introspected first.
With --source=sample rows are generated from a discovery file, no database needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		var (
			src       extract.RowSource
			discovery *snapshot.Discovery
			sourceDB  string
		)

		switch mode := viper.GetString("backup.source"); mode {
		case "db":
			db, d, conn, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if backupDiscovery != "" {
				if discovery, err = snapshot.LoadDiscovery(backupDiscovery); err != nil {
					return err
				}
			} else {
				Log.Info("Analyzing schema...")
				tables, err := schema.Analyze(ctx, db, d, conn.Schema, Log)
				if err != nil {
					return err
				}
				discovery = &snapshot.Discovery{
					DiscoveryTime:   start.UTC().Format(time.RFC3339),
					DiscoveryMethod: "information_schema",
					DatabaseType:    d.DatabaseType(),
					TotalTables:     len(tables),
					Tables:          tables,
				}
			}
			src = extract.NewDBSource(db, d)
			sourceDB = d.DatabaseType()

		case "sample":
			if sampleRows < 0 {
				return fmt.Errorf("invalid --rows %d (must be zero or more)", sampleRows)
			}
			path := backupDiscovery
			if path == "" {
				path = viper.GetString("backup.discovery_file")
			}
			var err error
			if discovery, err = snapshot.LoadDiscovery(path); err != nil {
				return err
			}
			src = extract.NewSampleSource(sampleRows, sampleSeed, start)
			sourceDB = (&dialect.PostgresDialect{}).DatabaseType()
			Log.WithFields(logrus.Fields{"rows": sampleRows, "seed": sampleSeed}).Warn("Generating sample rows, no database is read")

		default:
			return fmt.Errorf("invalid backup source %q (use db or sample)", mode)
		}

		// Setup Progress Bar. The label is read from the render goroutine.
		var current atomic.Value
		current.Store("")
		progress := uiprogress.New()
		progress.SetOut(cmd.OutOrStdout())
		progress.Start()
		bar := progress.AddBar(max(len(discovery.Tables), 1)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("Backing up %-20s ", current.Load().(string))
		})

		doc, err := extract.Run(ctx, src, *discovery, extract.Options{SourceDatabase: sourceDB}, func(table string, done, total int) {
			current.Store(table)
			bar.Set(done)
		}, Log)

		progress.Stop()

		if err != nil {
			return err
		}

		out := backupOutput
		if out == "" {
			out = extract.DefaultBackupPath(viper.GetString("backup.dir"), start)
		}
		if err := snapshot.Save(out, doc); err != nil {
			return err
		}

		// Final Report
		fmt.Println("\n📊 Backup Summary (Dependency Order):")
		for i, t := range doc.Tables {
			icon := "✓"
			if t.BackupError != "" {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-30s : %s rows (expected ~%d)\n",
				icon, i+1, len(doc.Tables), t.Name, humanize.Comma(int64(t.RowsBackedUp)), t.ExpectedRows)
			if t.BackupError != "" {
				fmt.Printf("    └ Error: %s\n", t.BackupError)
			}
		}
		stats := doc.Metadata.Statistics
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Backup ID   : %s\n", doc.Metadata.BackupID)
		fmt.Printf("Tables      : %d\n", stats.TotalTables)
		fmt.Printf("Total rows  : %s\n", humanize.Comma(int64(stats.TotalRows)))
		fmt.Printf("Size        : %s\n", humanize.Bytes(uint64(stats.EstimatedSizeBytes)))
		fmt.Printf("Written to  : %s\n", out)
		Log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("Backup done")

		return uploadIfRequested(ctx, out)
	},
}

func init() {
	RootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Backup file path (default <backup.dir>/complete_backup_<timestamp>.json)")
	backupCmd.Flags().StringVar(&backupDiscovery, "discovery", "", "Use this discovery file instead of introspecting")
	backupCmd.Flags().String("source", "", "Row source: db or sample")
	backupCmd.Flags().IntVar(&sampleRows, "rows", 10, "Rows per table with --source=sample")
	backupCmd.Flags().Int64Var(&sampleSeed, "seed", 1, "Random seed with --source=sample (0 = not reproducible)")

	viper.BindPFlag("backup.source", backupCmd.Flags().Lookup("source"))
	viper.SetDefault("backup.source", "db")
	viper.SetDefault("backup.dir", "backups")
}
