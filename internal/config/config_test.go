package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")

	cfg, err := FromEnv(envMap(map[string]string{"DATA_DIR": dataDir}))
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "inventory.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.UploadDir)
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)

	info, err := os.Stat(cfg.UploadDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFromEnvOverrides(t *testing.T) {
	base := t.TempDir()
	uploadDir := filepath.Join(base, "pics")
	dbPath := filepath.Join(base, "db", "custom.db")

	cfg, err := FromEnv(envMap(map[string]string{
		"DATA_DIR":   filepath.Join(base, "data"),
		"UPLOAD_DIR": uploadDir,
		"DB_PATH":    dbPath,
		"ADDR":       "127.0.0.1:9000",
	}))
	require.NoError(t, err)

	assert.Equal(t, uploadDir, cfg.UploadDir)
	assert.Equal(t, dbPath, cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.DirExists(t, filepath.Dir(dbPath))
}

func TestStripSQLiteURL(t *testing.T) {
	assert.Equal(t, "/srv/inventory.db", stripSQLiteURL("sqlite:////srv/inventory.db"))
	assert.Equal(t, "data/inventory.db", stripSQLiteURL("sqlite:///data/inventory.db"))
	assert.Equal(t, "c:/data/inventory.db", stripSQLiteURL("c:/data/inventory.db"))
}
