package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"db-vault/internal/dialect"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dsn      string
	cfgFile  string
	logLevel string
	upload   bool

	// Log is shared by every command; library packages receive it as a FieldLogger.
	Log = logrus.New()
)

var RootCmd = &cobra.Command{
	Use:   "db-vault",
	Short: "Back up a Supabase/PostgreSQL database and rebuild it from the backup",
	Long: `
  ____  ____   __     __          _ _
 |  _ \| __ )  \ \   / /_ _ _   _| | |_
 | | | |  _ \   \ \ / / _' | | | | | __|
 | |_| | |_) |   \ V / (_| | |_| | | |_
 |____/|____/     \_/ \__,_|\__,_|_|\__|

DB VAULT - schema discovery, JSON backups and SQL restore scripts
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		Log.SetLevel(level)
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Define flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-vault.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&upload, "upload", false, "Upload the produced file to S3")

	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.schema", "public")
	viper.SetDefault("log.level", "info")
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is fine; the variables may already be in the environment.
	if err := godotenv.Load(); err == nil {
		Log.Debug("Loaded environment from .env")
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-vault")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv() // DATABASE_DSN, S3_BUCKET, ...

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		Log.WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}
}

// openDatabase connects to the configured source database. Only discover and
// backup call it, so restore works offline.
func openDatabase(ctx context.Context) (*sql.DB, dialect.Dialect, *DBConfig, error) {
	conn, err := ResolveDatabase()
	if err != nil {
		return nil, nil, nil, err
	}

	d, err := dialect.GetDialect(conn.Driver)
	if err != nil {
		return nil, nil, nil, err
	}

	// lib/pq registers itself as "postgres"; supabase is an alias.
	db, err := sql.Open("postgres", conn.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	Log.WithFields(logrus.Fields{"profile": conn.Name, "driver": conn.Driver}).Info("Connected to source database")
	return db, d, conn, nil
}
