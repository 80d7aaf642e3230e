package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Explicit DSNs may omit the pragma.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return db, nil
}

// buildSQLiteDSN prefers an explicit DSN, then an in-memory database for an empty or
// ":memory:" path, and otherwise a WAL database file whose directory is created on demand.
func buildSQLiteDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return sqliteMemoryDSN, nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("sqlite: create data directory: %w", err)
		}
	}

	params := url.Values{}
	params.Set("_foreign_keys", "1")
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	return "file:" + filepath.ToSlash(path) + "?" + params.Encode(), nil
}
