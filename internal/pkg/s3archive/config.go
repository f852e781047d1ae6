package s3archive

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
)

// Config holds the raw payload archive settings.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // S3-compatible services only
	Prefix          string
	Enabled         bool
}

// LoadConfig reads S3_* settings. Archiving is off unless INGEST_ARCHIVE_ENABLED is true.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Prefix:          strings.Trim(env.GetEnv("S3_ARCHIVE_PREFIX", ""), "/"),
		Enabled:         env.GetEnvBool("INGEST_ARCHIVE_ENABLED", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.AccessKeyID == "" {
		return errors.New("S3_ACCESS_KEY_ID is required when archiving is enabled")
	}
	if c.SecretAccessKey == "" {
		return errors.New("S3_SECRET_ACCESS_KEY is required when archiving is enabled")
	}
	if c.BucketName == "" {
		return errors.New("S3_BUCKET_NAME is required when archiving is enabled")
	}
	return nil
}

// ObjectKey prefixes key with the configured root, if any.
func (c *Config) ObjectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.Prefix == "" {
		return key
	}
	return c.Prefix + "/" + key
}
