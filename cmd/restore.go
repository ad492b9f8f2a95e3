package cmd

import (
	"fmt"
	"slices"
	"time"

	"db-vault/internal/dialect"
	"db-vault/internal/restore"
	"db-vault/internal/snapshot"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	restoreOutput string

	targetDatabases = []string{"main", "backup"}
	tableOrders     = []string{restore.OrderInput, restore.OrderDependency}
)

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-file>",
	Short: "Generate a SQL restore script from a backup document",
	Long: `Generate a self-contained SQL restore script from a backup document.

The script drops and recreates every table, loads the captured rows, then adds
foreign keys and CHECK constraints. Nothing is executed against a database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := viper.GetString("restore.target_database")
		if !slices.Contains(targetDatabases, target) {
			return fmt.Errorf("invalid target database %q (use main or backup)", target)
		}
		order := viper.GetString("restore.order")
		if !slices.Contains(tableOrders, order) {
			return fmt.Errorf("invalid table order %q (use input or dependency)", order)
		}

		doc, err := snapshot.Load(args[0])
		if err != nil {
			return err
		}

		gen := restore.NewGenerator(&dialect.PostgresDialect{}, restore.Options{
			TargetDatabase: target,
			Order:          order,
		}, Log)
		now := gen.Now()
		gen.Now = func() time.Time { return now }
		script := gen.Generate(doc)

		out := restoreOutput
		if out == "" {
			out = restore.DefaultOutputPath(now)
		}
		if err := restore.WriteScript(out, script); err != nil {
			return err
		}

		printRestoreSummary(doc, out, len(script))
		return uploadIfRequested(cmd.Context(), out)
	},
}

func printRestoreSummary(doc *snapshot.Document, out string, size int) {
	source := doc.Metadata.BackupTime
	if source == "" {
		source = "Unknown"
	}

	fmt.Println("\n📊 Restore Script Summary:")
	fmt.Printf("Source backup : %s\n", source)
	fmt.Printf("Script        : %s (%s)\n", out, humanize.Bytes(uint64(size)))
	fmt.Printf("Tables        : %d\n", len(doc.Tables))
	fmt.Printf("Total rows    : %s\n", humanize.Comma(int64(doc.TotalRows())))
	fmt.Println("--------------------------------------------------")
	for i, t := range doc.Tables {
		fmt.Printf("[%02d/%02d] %-30s : %3d columns, %s rows\n",
			i+1, len(doc.Tables), t.Name, len(t.SchemaInfo.Columns), humanize.Comma(int64(len(t.Data))))
	}
	fmt.Printf("\nRun it with: psql \"$DATABASE_URL\" -f %s\n", out)
}

func init() {
	RootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().String("target-database", "", "Target label written into the script header: main or backup")
	restoreCmd.Flags().StringVarP(&restoreOutput, "output", "o", "", "Script path (default restore_<timestamp>.sql)")
	restoreCmd.Flags().String("order", "", "Table order: input (as stored) or dependency (FK sort)")

	viper.BindPFlag("restore.target_database", restoreCmd.Flags().Lookup("target-database"))
	viper.BindPFlag("restore.order", restoreCmd.Flags().Lookup("order"))
	viper.SetDefault("restore.target_database", "backup")
	viper.SetDefault("restore.order", restore.OrderInput)
}
