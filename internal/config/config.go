package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	DataDir     string
	SecretsPath string
	ItemsPath   string
	BackupsDir  string
	BackupEvery time.Duration
	BackupKeep  int
	SessionTTL  time.Duration
	TokenSecret string
	CORSOrigin  string
	// Redis Configuration
	RedisURL string
}

func Load() Config {
	dataDir := getenv("TALLY_DATA_DIR", "./data")
	return Config{
		Addr:        getenv("TALLY_ADDR", ":3001"),
		DataDir:     dataDir,
		SecretsPath: getenv("TALLY_SECRETS_PATH", filepath.Join(dataDir, "secrets.yaml")),
		ItemsPath:   getenv("TALLY_ITEMS_PATH", filepath.Join(dataDir, "items.json")),
		BackupsDir:  getenv("TALLY_BACKUPS_DIR", filepath.Join(dataDir, "backups")),
		BackupEvery: time.Duration(getenvInt("TALLY_BACKUP_INTERVAL_SECONDS", 300)) * time.Second,
		BackupKeep:  getenvInt("TALLY_BACKUP_KEEP", 50),
		SessionTTL:  time.Duration(getenvInt("TALLY_SESSION_TTL_SECONDS", 30*24*3600)) * time.Second,
		TokenSecret: getenv("TALLY_TOKEN_SECRET", "tally-dev-secret"),
		CORSOrigin:  getenv("TALLY_CORS_ORIGIN", "*"),
		// Redis - empty means sessions are kept in memory
		RedisURL: getenv("TALLY_REDIS_URL", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
