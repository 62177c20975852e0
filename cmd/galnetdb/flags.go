package main

import (
	"github.com/spf13/cobra"

	"github.com/pevans/galnetdb/config"
)

// storeFlags holds the database flags shared by build and serve.
type storeFlags struct {
	driver   string
	host     string
	port     int
	database string
	table    string
	user     string
	passfile string
	password string
	ssl      bool
}

// baseRunConfig returns the defaults overlaid with the config file.
func (a *app) baseRunConfig() *config.RunConfig {
	cfg := config.DefaultRunConfig()
	a.file.Apply(cfg)
	return cfg
}

// register adds the flags to cmd. Defaults come from the environment, then
// from base.
func (f *storeFlags) register(cmd *cobra.Command, base *config.RunConfig) {
	flags := cmd.Flags()
	flags.StringVar(&f.driver, "driver", getEnv("GALNETDB_DRIVER", base.Driver),
		"Database driver: postgres or sqlite3 (GALNETDB_DRIVER)")
	flags.StringVar(&f.host, "host", getEnv("GALNETDB_HOST", base.Host),
		"Database host (GALNETDB_HOST)")
	flags.IntVar(&f.port, "port", getEnvInt("GALNETDB_PORT", base.Port),
		"Database port (GALNETDB_PORT)")
	flags.StringVar(&f.database, "database", getEnv("GALNETDB_DATABASE", base.Database),
		"Database name, or file path for sqlite3 (GALNETDB_DATABASE)")
	flags.StringVar(&f.table, "table", getEnv("GALNETDB_TABLE", base.Table),
		"Articles table name (GALNETDB_TABLE)")
	flags.StringVar(&f.user, "user", getEnv("GALNETDB_USER", base.User),
		"Database user and table owner (GALNETDB_USER)")
	flags.StringVar(&f.passfile, "passfile", getEnv("GALNETDB_PASSFILE", base.Passfile),
		"PostgreSQL password file (GALNETDB_PASSFILE)")
	flags.StringVar(&f.password, "password", getEnv("GALNETDB_PASSWORD", base.Password),
		"Database password (GALNETDB_PASSWORD)")
	flags.BoolVar(&f.ssl, "ssl", getEnvBool("GALNETDB_SSL", base.SSL),
		"Require SSL for the database connection (GALNETDB_SSL)")
}

// apply copies every flag value onto cfg.
func (f *storeFlags) apply(cfg *config.RunConfig) {
	cfg.Driver = f.driver
	cfg.Host = f.host
	cfg.Port = f.port
	cfg.Database = f.database
	cfg.Table = f.table
	cfg.User = f.user
	cfg.Passfile = f.passfile
	cfg.Password = f.password
	cfg.SSL = f.ssl
}

// applyChanged copies only the flags set on the command line onto cfg.
func (f *storeFlags) applyChanged(cmd *cobra.Command, cfg *config.RunConfig) {
	changed := cmd.Flags().Changed
	if changed("driver") {
		cfg.Driver = f.driver
	}
	if changed("host") {
		cfg.Host = f.host
	}
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("database") {
		cfg.Database = f.database
	}
	if changed("table") {
		cfg.Table = f.table
	}
	if changed("user") {
		cfg.User = f.user
	}
	if changed("passfile") {
		cfg.Passfile = f.passfile
	}
	if changed("password") {
		cfg.Password = f.password
	}
	if changed("ssl") {
		cfg.SSL = f.ssl
	}
}
