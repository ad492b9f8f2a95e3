package cmd

import (
	"fmt"
	"strings"

	"db-vault/internal/storage"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"`
}

// GetActiveDBConfig returns the currently active database profile.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// ResolveDatabase picks the connection: --dsn / database.dsn first, then the
// active entry of databases[].
func ResolveDatabase() (*DBConfig, error) {
	if connStr := viper.GetString("database.dsn"); connStr != "" {
		return &DBConfig{
			Name:   "CLI Wrapper",
			Driver: viper.GetString("database.driver"),
			DSN:    connStr,
			Schema: viper.GetString("database.schema"),
			Active: true,
		}, nil
	}

	active, err := GetActiveDBConfig()
	if err != nil {
		return nil, fmt.Errorf("database.dsn is required (via flag, env or config): %w", err)
	}
	if active.DSN == "" {
		return nil, fmt.Errorf("database profile %q has no dsn", active.Name)
	}
	if active.Driver == "" {
		active.Driver = viper.GetString("database.driver")
	}
	if active.Schema == "" {
		active.Schema = viper.GetString("database.schema")
	}
	return active, nil
}

// S3Settings reads the s3.* keys. Keys are read one by one so env-only
// values (S3_BUCKET, ...) are seen.
func S3Settings() storage.S3Config {
	return storage.S3Config{
		Bucket:    viper.GetString("s3.bucket"),
		Region:    viper.GetString("s3.region"),
		Endpoint:  viper.GetString("s3.endpoint"),
		AccessKey: viper.GetString("s3.access_key"),
		SecretKey: viper.GetString("s3.secret_key"),
		PathStyle: viper.GetBool("s3.path_style"),
		Prefix:    viper.GetString("s3.prefix"),
	}
}
