package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_NoFile(t *testing.T) {
	// Point HOME at a directory that definitely doesn't have a config file
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfigFile()
	require.NoError(t, err)
	assert.Nil(t, cfg, "Should return nil when config file doesn't exist")
}

func TestLoadConfigFile_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()

	// Create .galnetdb directory
	configDir := filepath.Join(tmpDir, ".galnetdb")
	require.NoError(t, os.MkdirAll(configDir, 0o700))

	configPath := filepath.Join(configDir, "config.yaml")
	configContent := `database:
  driver: "postgres"
  host: "db.local"
  port: 5433
  name: "galnet"
  table: "News"
  user: "cmdr"
  ssl: true
feed:
  base_url: "https://galnet.test"
  year_offset: 300
  timeout: "30s"
log:
  level: "debug"
api:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	t.Setenv("HOME", tmpDir)

	cfg, err := LoadConfigFile()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "galnet", cfg.Database.Name)
	assert.Equal(t, "News", cfg.Database.Table)
	assert.True(t, cfg.Database.SSL)
	assert.Equal(t, "https://galnet.test", cfg.Feed.BaseURL)
	assert.Equal(t, 300, cfg.Feed.YearOffset)
	assert.Equal(t, "30s", cfg.Feed.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.API.Addr)
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	invalidContent := `database:
  host: "db.local"
feed:
  - this is invalid yaml because feed should be an object not a list
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0o600))

	cfg, err := LoadConfigFileFrom(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestFileConfig_Apply(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `database:
  host: "db.local"
  name: "galnet"
feed:
  year_offset: 300
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	fileCfg, err := LoadConfigFileFrom(configPath)
	require.NoError(t, err)

	cfg := DefaultRunConfig()
	fileCfg.Apply(cfg)

	assert.Equal(t, "db.local", cfg.Host)
	assert.Equal(t, "galnet", cfg.Database)
	assert.Equal(t, 300, cfg.YearOffset)
	assert.Equal(t, "Articles", cfg.Table, "Unspecified table should keep the default")
	assert.Equal(t, "postgres", cfg.User, "Unspecified user should keep the default")

	// A nil file config changes nothing
	var none *FileConfig
	none.Apply(cfg)
	assert.Equal(t, "db.local", cfg.Host)
}
