// Package config handles configuration for the storage engine: defaults,
// an optional JSON or YAML file, environment variables and validation.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/storage"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage backend names.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendB2    = "b2"
)

// Config holds runtime settings for the storage engine.
//
// Fields:
//   - DatabaseDriver / DatabaseDSN: metadata database ("pgx" or "sqlite").
//   - StorageBackend: where file bytes live ("local", "s3" or "b2").
//   - StorageRoot: filesystem root for the local backend.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     S3-compatible object storage settings.
//   - B2KeyID / B2ApplicationKey / B2Bucket: Backblaze B2 settings.
//   - DefaultQuotaBytes: per-owner storage limit; OwnerQuotas overrides it for
//     individual owners. Zero or negative means unlimited.
//   - MaxFileSize: upper bound for a single upload; zero disables the check.
//   - AllowedExtensions: lower-case extensions without dot; empty allows all.
//   - ChecksumAlgorithm: "sha256" or "blake2b-256".
//   - MaxTreeDepth: hop budget for ancestor and subtree walks.
//   - DownloadURLExpiry: lifetime of presigned download URLs.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabaseDriver    string
	DatabaseDSN       string
	StorageBackend    string
	StorageRoot       string
	S3RootUser        string
	S3RootPassword    string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string
	B2KeyID           string
	B2ApplicationKey  string
	B2Bucket          string
	DefaultQuotaBytes int64
	OwnerQuotas       map[string]int64
	MaxFileSize       int64
	AllowedExtensions []string
	ChecksumAlgorithm string
	MaxTreeDepth      int
	DownloadURLExpiry time.Duration
	LogLevel          string
}

// LoadDefaults populates Config with development defaults: an SQLite
// metadata file and a local storage directory next to the working directory.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = dbx.DriverSQLite
	c.DatabaseDSN = "file:gophdrive.db"
	c.StorageBackend = BackendLocal
	c.StorageRoot = "storage"
	c.S3Region = "us-east-1"
	c.S3Bucket = "gophdrive"
	c.DefaultQuotaBytes = 2 << 30
	c.OwnerQuotas = map[string]int64{}
	c.MaxFileSize = 100 << 20
	c.AllowedExtensions = nil
	c.ChecksumAlgorithm = storage.ChecksumSHA256
	c.MaxTreeDepth = 256
	c.DownloadURLExpiry = 15 * time.Minute
	c.LogLevel = "info"
}

// QuotaFor returns the storage limit of owner.
func (c *Config) QuotaFor(owner string) int64 {
	if q, ok := c.OwnerQuotas[owner]; ok {
		return q
	}
	return c.DefaultQuotaBytes
}

// Validate checks that the selected backends have the settings they need.
func (c *Config) Validate() error {
	isLocal := c.StorageBackend == BackendLocal
	isS3 := c.StorageBackend == BackendS3
	isB2 := c.StorageBackend == BackendB2

	return validation.ValidateStruct(c,
		validation.Field(&c.DatabaseDriver, validation.Required, validation.In(dbx.DriverPostgres, dbx.DriverSQLite)),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.StorageBackend, validation.Required, validation.In(BackendLocal, BackendS3, BackendB2)),
		validation.Field(&c.StorageRoot, validation.When(isLocal, validation.Required)),
		validation.Field(&c.S3Bucket, validation.When(isS3, validation.Required)),
		validation.Field(&c.S3Region, validation.When(isS3, validation.Required)),
		validation.Field(&c.B2KeyID, validation.When(isB2, validation.Required)),
		validation.Field(&c.B2ApplicationKey, validation.When(isB2, validation.Required)),
		validation.Field(&c.B2Bucket, validation.When(isB2, validation.Required)),
		validation.Field(&c.ChecksumAlgorithm, validation.Required, validation.In(storage.ChecksumSHA256, storage.ChecksumBlake2b)),
		validation.Field(&c.MaxTreeDepth, validation.Min(1)),
		validation.Field(&c.MaxFileSize, validation.Min(int64(0))),
	)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON or YAML file and finally from environment variables
// (a .env file in the working directory is honoured).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	return cfg, nil
}
