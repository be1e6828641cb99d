// Package storage provides the durable key/value settings store backing
// credential persistence.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SettingsStore is a small key/value table on SQLite. Writes go through a
// transaction with an UPSERT, so a row is either fully replaced or left as it
// was; readers never observe a partial record.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore opens (and if needed creates) the settings database at path
func NewSettingsStore(path string) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	return &SettingsStore{db: db}, nil
}

// GetSetting retrieves a value by key, returns empty string if not found
func (s *SettingsStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a key-value pair, overwriting any existing value
func (s *SettingsStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database
func (s *SettingsStore) Close() error {
	return s.db.Close()
}
