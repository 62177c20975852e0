package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/galnetdb/config"
	"github.com/pevans/galnetdb/logging"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool parses a bool from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// app carries what every subcommand shares.
type app struct {
	file   *config.FileConfig
	logger *zap.Logger

	logLevel string
	logDev   bool
}

func newRootCommand(file *config.FileConfig) *cobra.Command {
	a := &app{file: file, logger: zap.NewNop()}

	levelDefault := "info"
	devDefault := false
	if file != nil {
		if file.Log.Level != "" {
			levelDefault = file.Log.Level
		}
		devDefault = file.Log.Development
	}

	root := &cobra.Command{
		Use:           "galnetdb",
		Short:         "Build a database of GalNet news articles",
		Long:          "galnetdb scrapes the GalNet news archive into a PostgreSQL or SQLite table and serves it over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			encoding := "json"
			if a.logDev {
				encoding = "console"
			}
			a.logger = logging.New(logging.Config{
				Level:       a.logLevel,
				Development: a.logDev,
				Encoding:    encoding,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level",
		getEnv("GALNETDB_LOG_LEVEL", levelDefault), "Log level: debug, info, warn or error (GALNETDB_LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&a.logDev, "log-dev",
		getEnvBool("GALNETDB_LOG_DEV", devDefault), "Human-readable console logs (GALNETDB_LOG_DEV)")

	root.AddCommand(a.buildCommand())
	root.AddCommand(a.serveCommand())
	root.AddCommand(a.configCommand())

	return root
}

// loadFileConfig reads the YAML config from GALNETDB_CONFIG or
// ~/.galnetdb/config.yaml.
func loadFileConfig() (*config.FileConfig, error) {
	if path := os.Getenv("GALNETDB_CONFIG"); path != "" {
		return config.LoadConfigFileFrom(path)
	}
	return config.LoadConfigFile()
}

func main() {
	// A missing .env file is fine; the environment is used as is.
	_ = godotenv.Load()

	file, err := loadFileConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCommand(file).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
