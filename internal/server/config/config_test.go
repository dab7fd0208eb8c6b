package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, dbx.DriverSQLite, c.DatabaseDriver)
	assert.Equal(t, "file:gophdrive.db", c.DatabaseDSN)
	assert.Equal(t, BackendLocal, c.StorageBackend)
	assert.Equal(t, "storage", c.StorageRoot)
	assert.Equal(t, int64(2<<30), c.DefaultQuotaBytes)
	assert.Equal(t, int64(100<<20), c.MaxFileSize)
	assert.Equal(t, "sha256", c.ChecksumAlgorithm)
	assert.Equal(t, 256, c.MaxTreeDepth)
	assert.Equal(t, 15*time.Minute, c.DownloadURLExpiry)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.AllowedExtensions)
	require.NoError(t, c.Validate())
}

func TestQuotaFor(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.OwnerQuotas["vip"] = 10

	assert.Equal(t, int64(10), c.QuotaFor("vip"))
	assert.Equal(t, c.DefaultQuotaBytes, c.QuotaFor("alice"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.DatabaseDSN = "" }, true},
		{"unknown backend", func(c *Config) { c.StorageBackend = "ftp" }, true},
		{"local without root", func(c *Config) { c.StorageRoot = "" }, true},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = BackendS3; c.S3Bucket = "" }, true},
		{"s3 complete", func(c *Config) { c.StorageBackend = BackendS3 }, false},
		{"b2 without keys", func(c *Config) { c.StorageBackend = BackendB2 }, true},
		{"b2 complete", func(c *Config) {
			c.StorageBackend = BackendB2
			c.B2KeyID = "id"
			c.B2ApplicationKey = "key"
			c.B2Bucket = "bucket"
		}, false},
		{"blake2b", func(c *Config) { c.ChecksumAlgorithm = "blake2b-256" }, false},
		{"md5", func(c *Config) { c.ChecksumAlgorithm = "md5" }, true},
		{"zero depth", func(c *Config) { c.MaxTreeDepth = 0 }, true},
		{"negative max file size", func(c *Config) { c.MaxFileSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_UsesDefaultsWithoutFile(t *testing.T) {
	withoutDotEnv(t)

	c, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, dbx.DriverSQLite, c.DatabaseDriver)
	assert.Equal(t, BackendLocal, c.StorageBackend)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	withoutDotEnv(t)

	path := writeTempFile(t, "cfg.yaml", "storage_root: /from/file\nlog_level: debug\n")
	t.Setenv("GOPHDRIVE_STORAGE_ROOT", "/from/env")

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", c.StorageRoot)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	withoutDotEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
