package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string // FORMDESK_DATABASE_URL (optional; empty = bbolt file)
	BoltPath    string // FORMDESK_BOLT_PATH (default "formdesk.db")
	GRPCAddr    string // FORMDESK_GRPC_ADDR (default ":9090")
	HTTPAddr    string // FORMDESK_HTTP_ADDR (default ":8080")
	NATSURL     string // FORMDESK_NATS_URL (optional, empty = no events across replicas)
	AuthToken   string // FORMDESK_AUTH_TOKEN (optional, empty = auth disabled)

	// Editor presence
	PresenceIdle time.Duration // FORMDESK_PRESENCE_IDLE (default 2m)

	// Media uploads
	MediaS3Bucket   string // FORMDESK_MEDIA_S3_BUCKET (empty = in-memory object store)
	MediaS3Endpoint string // FORMDESK_MEDIA_S3_ENDPOINT (custom endpoint for MinIO)
	MediaS3Region   string // FORMDESK_MEDIA_S3_REGION (default "us-east-1")
	MediaPublicURL  string // FORMDESK_MEDIA_PUBLIC_URL (prefix for returned URLs)

	// Backup export settings
	SyncInterval   time.Duration // FORMDESK_SYNC_INTERVAL (default 1h; 0 = disabled)
	SyncS3Bucket   string        // FORMDESK_SYNC_S3_BUCKET (enables S3 export when set)
	SyncS3Endpoint string        // FORMDESK_SYNC_S3_ENDPOINT
	SyncS3Region   string        // FORMDESK_SYNC_S3_REGION (default "us-east-1")
	SyncS3Prefix   string        // FORMDESK_SYNC_S3_PREFIX (default "formdesk")
}

// Load reads the configuration from the environment. Variables from an
// optional dotenv file (FORMDESK_ENV_FILE, default ".env") fill in whatever
// the environment leaves unset.
func Load() (*Config, error) {
	envFile := envOrDefault("FORMDESK_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	c := &Config{
		DatabaseURL:     os.Getenv("FORMDESK_DATABASE_URL"),
		BoltPath:        envOrDefault("FORMDESK_BOLT_PATH", "formdesk.db"),
		GRPCAddr:        envOrDefault("FORMDESK_GRPC_ADDR", ":9090"),
		HTTPAddr:        envOrDefault("FORMDESK_HTTP_ADDR", ":8080"),
		NATSURL:         os.Getenv("FORMDESK_NATS_URL"),
		AuthToken:       os.Getenv("FORMDESK_AUTH_TOKEN"),
		MediaS3Bucket:   os.Getenv("FORMDESK_MEDIA_S3_BUCKET"),
		MediaS3Endpoint: os.Getenv("FORMDESK_MEDIA_S3_ENDPOINT"),
		MediaS3Region:   envOrDefault("FORMDESK_MEDIA_S3_REGION", "us-east-1"),
		MediaPublicURL:  os.Getenv("FORMDESK_MEDIA_PUBLIC_URL"),
		SyncS3Bucket:    os.Getenv("FORMDESK_SYNC_S3_BUCKET"),
		SyncS3Endpoint:  os.Getenv("FORMDESK_SYNC_S3_ENDPOINT"),
		SyncS3Region:    envOrDefault("FORMDESK_SYNC_S3_REGION", "us-east-1"),
		SyncS3Prefix:    envOrDefault("FORMDESK_SYNC_S3_PREFIX", "formdesk"),
	}

	var err error
	if c.PresenceIdle, err = durationEnv("FORMDESK_PRESENCE_IDLE", "2m"); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = durationEnv("FORMDESK_SYNC_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if c.DatabaseURL == "" && c.BoltPath == "" {
		return nil, fmt.Errorf("FORMDESK_DATABASE_URL or FORMDESK_BOLT_PATH is required")
	}

	return c, nil
}

// Backend names the store the server will open.
func (c *Config) Backend() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "bolt"
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
