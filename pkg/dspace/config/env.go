package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides. Unset variables keep the current value.
//
// Variables:
//
//	DSPACE_BASE_URL                  - Repository URL without /rest
//	DSPACE_EMAIL, DSPACE_PASSWORD    - Login credentials
//	DSPACE_TIMEOUT                   - Per-request timeout (e.g. "2m")
//	DSPACE_TLS_VERIFY                - "false" to accept self-signed certificates
//	DSPACE_TOKEN_HEADER              - Header carrying the REST token
//	DSPACE_USER_AGENT                - User-Agent header
//	DSPACE_SERIALIZE_FIND_OR_CREATE  - "true" to serialize find-or-create
//	DSPACE_LOG_LEVEL                 - debug, info, warn or error
//	DSPACE_S3_BUCKET, DSPACE_S3_REGION, DSPACE_S3_ENDPOINT, DSPACE_S3_ACCESS_KEY_ID,
//	DSPACE_S3_SECRET_ACCESS_KEY, DSPACE_S3_USE_PATH_STYLE - S3 bitstream source
func WithEnv() Option {
	return func(c *Config) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithFile reads a YAML, JSON, TOML or .env file over the current values. Environment
// variables are applied after the file and win over it.
func WithFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
}
