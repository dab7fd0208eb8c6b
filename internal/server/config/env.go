package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "GOPHDRIVE_"

// dotEnvFile is loaded (without overriding the real environment) when present.
var dotEnvFile = ".env"

// parseEnv overlays GOPHDRIVE_* environment variables onto config.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	strs := map[string]*string{
		"DB_DRIVER":          &config.DatabaseDriver,
		"DB_DSN":             &config.DatabaseDSN,
		"STORAGE_BACKEND":    &config.StorageBackend,
		"STORAGE_ROOT":       &config.StorageRoot,
		"S3_ROOT_USER":       &config.S3RootUser,
		"S3_ROOT_PASSWORD":   &config.S3RootPassword,
		"S3_BUCKET":          &config.S3Bucket,
		"S3_REGION":          &config.S3Region,
		"S3_BASE_ENDPOINT":   &config.S3BaseEndpoint,
		"B2_KEY_ID":          &config.B2KeyID,
		"B2_APPLICATION_KEY": &config.B2ApplicationKey,
		"B2_BUCKET":          &config.B2Bucket,
		"CHECKSUM":           &config.ChecksumAlgorithm,
		"LOG_LEVEL":          &config.LogLevel,
	}
	for name, dst := range strs {
		setString(dst, os.Getenv(EnvPrefix+name))
	}

	ints := map[string]*int64{
		"QUOTA_BYTES":   &config.DefaultQuotaBytes,
		"MAX_FILE_SIZE": &config.MaxFileSize,
	}
	for name, dst := range ints {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	if v := os.Getenv(EnvPrefix + "MAX_TREE_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_TREE_DEPTH: %w", EnvPrefix, err)
		}
		config.MaxTreeDepth = n
	}

	if v := os.Getenv(EnvPrefix + "DOWNLOAD_URL_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sDOWNLOAD_URL_EXPIRY: %w", EnvPrefix, err)
		}
		config.DownloadURLExpiry = d
	}

	if v := os.Getenv(EnvPrefix + "ALLOWED_EXTENSIONS"); v != "" {
		config.AllowedExtensions = normalizeExtensions(strings.Split(v, ","))
	}

	return nil
}
