package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig is the database section of the config file.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Table    string `yaml:"table"`
	User     string `yaml:"user"`
	Passfile string `yaml:"passfile"`
	SSL      bool   `yaml:"ssl"`
}

// FeedConfig is the feed section of the config file.
type FeedConfig struct {
	BaseURL    string `yaml:"base_url"`
	YearOffset int    `yaml:"year_offset"`
	Timeout    string `yaml:"timeout"`
}

// FileConfig represents the structure of ~/.galnetdb/config.yaml.
type FileConfig struct {
	Database DatabaseConfig `yaml:"database"`
	Feed     FeedConfig     `yaml:"feed"`
	Log      struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
}

// LoadConfigFile loads configuration from ~/.galnetdb/config.yaml. Returns
// nil if the file doesn't exist (not an error). Returns error if the file
// exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	return LoadConfigFileFrom(filepath.Join(homeDir, ".galnetdb", "config.yaml"))
}

// LoadConfigFileFrom loads the config file at configPath, with the same
// missing-file rule as LoadConfigFile.
func LoadConfigFileFrom(configPath string) (*FileConfig, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Apply copies every database and feed setting present in f onto cfg.
func (f *FileConfig) Apply(cfg *RunConfig) {
	if f == nil {
		return
	}
	db := f.Database
	if db.Driver != "" {
		cfg.Driver = db.Driver
	}
	if db.Host != "" {
		cfg.Host = db.Host
	}
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if db.Name != "" {
		cfg.Database = db.Name
	}
	if db.Table != "" {
		cfg.Table = db.Table
	}
	if db.User != "" {
		cfg.User = db.User
	}
	if db.Passfile != "" {
		cfg.Passfile = db.Passfile
	}
	if db.SSL {
		cfg.SSL = true
	}
	if f.Feed.YearOffset != 0 {
		cfg.YearOffset = f.Feed.YearOffset
	}
}
