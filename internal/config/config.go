// Package config resolves runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime settings.
type Config struct {
	Addr      string
	DataDir   string
	DBPath    string
	UploadDir string
	LogLevel  string
}

// Load reads a .env file if present, then the environment, and makes sure
// the data and upload directories exist.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and creates the directories it names.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	dataDir, err := filepath.Abs(get("DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	uploadDir := filepath.Join(dataDir, "uploads")
	if v := getenv("UPLOAD_DIR"); v != "" {
		if uploadDir, err = filepath.Abs(v); err != nil {
			return nil, fmt.Errorf("resolving upload directory: %w", err)
		}
	}

	dbPath := filepath.Join(dataDir, "inventory.db")
	if v := getenv("DB_PATH"); v != "" {
		dbPath = stripSQLiteURL(v)
	}

	cfg := &Config{
		Addr:      get("ADDR", ":8000"),
		DataDir:   dataDir,
		DBPath:    dbPath,
		UploadDir: uploadDir,
		LogLevel:  get("LOG_LEVEL", "info"),
	}

	dirs := []string{cfg.DataDir, cfg.UploadDir}
	if cfg.DBPath != ":memory:" {
		dirs = append(dirs, filepath.Dir(cfg.DBPath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// stripSQLiteURL accepts both a plain path and a sqlite:///path URL.
func stripSQLiteURL(v string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://"} {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return v
}
