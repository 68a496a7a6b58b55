package config

import (
	"os"
	"path/filepath"
	"time"
)

type StorageConfig interface {
	GetDataFolder() string
	GetCredentialKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSelectionTTL() time.Duration
	GetCacheSize() int
	GetCacheTTL() time.Duration
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetDataFolder is where the CLI keeps its durable credential file
func (Storage) GetDataFolder() string {
	if folder := os.Getenv("CONSOLE_DATA_FOLDER"); folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".console")
}

// GetCredentialKey is a hex encoded 32 byte key; empty disables at-rest encryption
func (Storage) GetCredentialKey() string {
	return GetEnv("CONSOLE_CREDENTIAL_KEY", "")
}

func (Storage) GetAccessTokenTTL() time.Duration {
	return GetDuration("CONSOLE_ACCESS_TOKEN_TTL", 24*time.Hour)
}

func (Storage) GetRefreshTokenTTL() time.Duration {
	return GetDuration("CONSOLE_REFRESH_TOKEN_TTL", 7*24*time.Hour)
}

func (Storage) GetSelectionTTL() time.Duration {
	return GetDuration("CONSOLE_SELECTION_TTL", 30*24*time.Hour)
}

func (Storage) GetCacheSize() int {
	return GetInt("CONSOLE_CACHE_SIZE", 512)
}

func (Storage) GetCacheTTL() time.Duration {
	return GetDuration("CONSOLE_CACHE_TTL", 5*time.Minute)
}
