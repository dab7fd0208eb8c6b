package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig defines a configuration structure tailored for JSON and YAML
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// Only non-zero values are copied into the runtime Config, so a file may set
// a subset of the fields and keep the defaults for the rest.
type FileConfig struct {
	DatabaseDriver    string           `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN       string           `json:"database_dsn" yaml:"database_dsn"`
	StorageBackend    string           `json:"storage_backend" yaml:"storage_backend"`
	StorageRoot       string           `json:"storage_root" yaml:"storage_root"`
	S3RootUser        string           `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword    string           `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket          string           `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region          string           `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint    string           `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	B2KeyID           string           `json:"b2_key_id" yaml:"b2_key_id"`
	B2ApplicationKey  string           `json:"b2_application_key" yaml:"b2_application_key"`
	B2Bucket          string           `json:"b2_bucket" yaml:"b2_bucket"`
	DefaultQuotaBytes int64            `json:"default_quota_bytes" yaml:"default_quota_bytes"`
	OwnerQuotas       map[string]int64 `json:"owner_quotas" yaml:"owner_quotas"`
	MaxFileSize       int64            `json:"max_file_size" yaml:"max_file_size"`
	AllowedExtensions []string         `json:"allowed_extensions" yaml:"allowed_extensions"`
	ChecksumAlgorithm string           `json:"checksum_algorithm" yaml:"checksum_algorithm"`
	MaxTreeDepth      int              `json:"max_tree_depth" yaml:"max_tree_depth"`
	DownloadURLExpiry timex.Duration   `json:"download_url_expiry" yaml:"download_url_expiry"`
	LogLevel          string           `json:"log_level" yaml:"log_level"`
}

// parseFile loads configuration values from a JSON (.json) or YAML
// (.yaml, .yml) file into the provided Config instance.
func parseFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return err
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.StorageRoot, c.StorageRoot)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.B2KeyID, c.B2KeyID)
	setString(&config.B2ApplicationKey, c.B2ApplicationKey)
	setString(&config.B2Bucket, c.B2Bucket)
	setString(&config.ChecksumAlgorithm, c.ChecksumAlgorithm)
	setString(&config.LogLevel, c.LogLevel)

	if c.DefaultQuotaBytes != 0 {
		config.DefaultQuotaBytes = c.DefaultQuotaBytes
	}
	if c.MaxFileSize != 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	if c.MaxTreeDepth != 0 {
		config.MaxTreeDepth = c.MaxTreeDepth
	}
	if c.DownloadURLExpiry.Duration != 0 {
		config.DownloadURLExpiry = c.DownloadURLExpiry.Duration
	}
	if len(c.AllowedExtensions) > 0 {
		config.AllowedExtensions = normalizeExtensions(c.AllowedExtensions)
	}
	if len(c.OwnerQuotas) > 0 {
		if config.OwnerQuotas == nil {
			config.OwnerQuotas = make(map[string]int64, len(c.OwnerQuotas))
		}
		for owner, q := range c.OwnerQuotas {
			config.OwnerQuotas[owner] = q
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
