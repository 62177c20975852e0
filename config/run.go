package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pevans/galnetdb/store"
)

const (
	// SettingsVersion is written as "version" into every run-config file.
	SettingsVersion = "2.0"
	// DefaultSettingsPath is where the run config lands when no path is
	// given.
	DefaultSettingsPath = "Settings.json"
)

// RunConfig holds the parameters of one build run. It is written to the
// settings file at the end of a successful run so later invocations can
// reconnect to the same table.
type RunConfig struct {
	PreviousVersion string `json:"previous version"`
	Version         string `json:"version"`
	Host            string `json:"host"`
	Database        string `json:"database"`
	Table           string `json:"table"`
	User            string `json:"user"`
	Passfile        string `json:"passfile"`
	Password        string `json:"password"`
	SSL             bool   `json:"ssl"`
	Port            int    `json:"port"`
	Driver          string `json:"driver,omitempty"`
	YearOffset      int    `json:"year offset,omitempty"`

	// Run switches; not persisted.
	CreateTable      bool `json:"-"`
	RejectDuplicates bool `json:"-"`
}

// DefaultRunConfig returns a config with the defaults of the build command.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Version:     SettingsVersion,
		Table:       store.DefaultTable,
		User:        store.DefaultUser,
		Driver:      store.DriverPostgres,
		CreateTable: true,
	}
}

// StoreOptions converts the config into store connection options.
func (c *RunConfig) StoreOptions() store.Options {
	opts := store.Options{
		Driver:   c.Driver,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.User,
		Password: c.Password,
		Passfile: c.Passfile,
		Table:    c.Table,
		SSLMode:  "disable",
	}
	if c.SSL {
		opts.SSLMode = "require"
	}
	if c.RejectDuplicates {
		opts.Duplicates = store.DuplicateReject
	}
	return opts
}

// Redacted returns a copy of c with the password blanked.
func (c *RunConfig) Redacted() *RunConfig {
	cp := *c
	if cp.Password != "" {
		cp.Password = "********"
	}
	return &cp
}

// LoadRunConfig reads the settings file at path. Returns nil if the file
// doesn't exist (not an error).
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return &cfg, nil
}

// SaveRunConfig replaces the settings file at path with cfg. The version of
// the file being replaced is carried over as the previous version; the old
// file is removed before the new one is written, never merged.
func SaveRunConfig(path string, cfg *RunConfig) error {
	out := *cfg
	out.Version = SettingsVersion
	out.PreviousVersion = SettingsVersion

	// An unreadable old file only loses its version number.
	if prev, err := LoadRunConfig(path); err == nil && prev != nil && prev.Version != "" {
		out.PreviousVersion = prev.Version
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove old settings file: %w", err)
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// 0600: the file may carry a password
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	cfg.Version = out.Version
	cfg.PreviousVersion = out.PreviousVersion
	return nil
}
