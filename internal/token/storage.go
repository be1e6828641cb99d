package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the credential record across restarts. Load returns
// (nil, nil) when no record has ever been written.
type Store interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
}

// SettingsStorage is the key/value surface of the settings database.
// Implemented by storage.SettingsStore.
type SettingsStorage interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// credentialsKey is the settings row holding the serialized record
const credentialsKey = "shipbob_credentials"

// DBStore keeps the credential record as a JSON document in the settings
// database. A SetSetting call replaces the row atomically.
type DBStore struct {
	store SettingsStorage
}

// NewDBStore creates a database-backed credential store
func NewDBStore(store SettingsStorage) *DBStore {
	return &DBStore{store: store}
}

// Load retrieves the stored credential record, or (nil, nil) if none exists
func (s *DBStore) Load(ctx context.Context) (*Credentials, error) {
	data, err := s.store.GetSetting(credentialsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if data == "" {
		return nil, nil
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to deserialize credentials: %w", err)
	}
	return &creds, nil
}

// Save replaces the stored credential record
func (s *DBStore) Save(ctx context.Context, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}
	return s.store.SetSetting(credentialsKey, string(data))
}

// FileStore keeps the credential record as a JSON file. Saves write to a
// temporary file in the same directory and rename over the target, so the
// record on disk is always either the old one or the new one, never a
// partial write.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed credential store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load retrieves the stored credential record, or (nil, nil) if the file
// does not exist
func (s *FileStore) Load(ctx context.Context) (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return &creds, nil
}

// Save replaces the stored credential record
func (s *FileStore) Save(ctx context.Context, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close credentials file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

var (
	_ Store = (*DBStore)(nil)
	_ Store = (*FileStore)(nil)
)
