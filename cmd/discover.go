package cmd

import (
	"fmt"
	"time"

	"db-vault/internal/schema"
	"db-vault/internal/snapshot"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var discoverOutput string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Introspect the source database and write a schema discovery file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, d, conn, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		Log.WithField("schema", d.GetSchemaName(conn.Schema)).Info("Analyzing schema...")
		start := time.Now()

		tables, err := schema.Analyze(ctx, db, d, conn.Schema, Log)
		if err != nil {
			return err
		}

		discovery := &snapshot.Discovery{
			DiscoveryTime:   start.UTC().Format(time.RFC3339),
			DiscoveryMethod: "information_schema",
			DatabaseType:    d.DatabaseType(),
			TotalTables:     len(tables),
			Tables:          tables,
		}

		out := discoverOutput
		if out == "" {
			out = viper.GetString("backup.discovery_file")
		}
		if err := snapshot.SaveDiscovery(out, discovery); err != nil {
			return err
		}

		// Final Report
		fmt.Println("\n📊 Discovered Tables (Dependency Order):")
		for i, t := range tables {
			fmt.Printf("[%02d/%02d] %-30s : %3d columns, ~%d rows, %d FKs\n",
				i+1, len(tables), t.Name, len(t.Columns), t.RowCount, len(t.ForeignKeys))
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Discovery written to %s (%s)\n", out, time.Since(start).Round(time.Millisecond))

		return uploadIfRequested(ctx, out)
	},
}

func init() {
	RootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "", "Discovery file path (overrides backup.discovery_file)")
	viper.SetDefault("backup.discovery_file", "backups/schema_discovery.json")
}
