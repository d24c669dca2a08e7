package store

import (
	"database/sql"
	"fmt"
	"time"
)

var syncKeys = []string{
	"sync_config",
	"sync_auto_connect",
}

var archiveKeys = []string{
	"archive_enabled",
	"archive_schedule_hour",
	"archive_retention_days",
	"archive_passphrase_salt",
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) getKeys(keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get setting %q: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}

// GetSyncSettings returns the stored remote-sync settings.
func (s *SettingsStore) GetSyncSettings() (map[string]string, error) {
	return s.getKeys(syncKeys)
}

// GetArchiveSettings returns the stored archive schedule settings.
func (s *SettingsStore) GetArchiveSettings() (map[string]string, error) {
	return s.getKeys(archiveKeys)
}
