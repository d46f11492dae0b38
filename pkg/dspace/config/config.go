// Package config loads dspace client settings from code, files and the environment and
// builds the repository and bitstream sources from them.
package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	s3source "github.com/kosarko/dspace-rest-import/pkg/dspace/source/s3"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Timeout:     dspace.DefaultTimeout,
		TLSVerify:   true,
		TokenHeader: dspace.DefaultTokenHeader,
		UserAgent:   dspace.DefaultUserAgent,
		LogLevel:    "info",
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Config represents the settings of a DSpace import client
type Config struct {
	// Repository connection
	BaseURL   string        `yaml:"base_url" env:"DSPACE_BASE_URL"`
	Email     string        `yaml:"email" env:"DSPACE_EMAIL"`
	Password  string        `yaml:"password" env:"DSPACE_PASSWORD"`
	Timeout   time.Duration `yaml:"timeout" env:"DSPACE_TIMEOUT"`
	TLSVerify bool          `yaml:"tls_verify" env:"DSPACE_TLS_VERIFY"` // false only for self-signed test instances

	// Request shape
	TokenHeader string `yaml:"token_header" env:"DSPACE_TOKEN_HEADER"`
	UserAgent   string `yaml:"user_agent" env:"DSPACE_USER_AGENT"`

	SerializeFindOrCreate bool   `yaml:"serialize_find_or_create" env:"DSPACE_SERIALIZE_FIND_OR_CREATE"`
	LogLevel              string `yaml:"log_level" env:"DSPACE_LOG_LEVEL"` // debug, info, warn, error

	S3 S3Config `yaml:"s3" env-prefix:"DSPACE_S3_"`
}

// S3Config configures the optional S3 bitstream source. It is enabled by setting Bucket
// or Endpoint.
type S3Config struct {
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	Region          string `yaml:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"USE_PATH_STYLE"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Email, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.TokenHeader, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.S3),
	)
}

// Validate validates the S3 source configuration
func (c S3Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Region, validation.When(c.Enabled(), validation.Required)),
		validation.Field(&c.Endpoint, validation.By(httpURL)),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
		validation.Field(&c.AccessKeyID, validation.When(c.SecretAccessKey != "", validation.Required)),
	)
}

// Enabled reports whether an S3 source was configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" || c.Endpoint != ""
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// NewHTTPClient creates the HTTP client used for REST calls
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if !c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}

// RepositoryOptions translates the configuration into client options. extra is applied
// last.
func (c *Config) RepositoryOptions(extra ...dspace.Option) []dspace.Option {
	options := []dspace.Option{
		dspace.WithHTTPClient(c.NewHTTPClient()),
		dspace.WithTokenHeader(c.TokenHeader),
		dspace.WithUserAgent(c.UserAgent),
	}
	if c.SerializeFindOrCreate {
		options = append(options, dspace.WithSerializedFindOrCreate())
	}
	return append(options, extra...)
}

// BuildRepository creates a Repository from the configuration. It does not log in.
func (c *Config) BuildRepository(extra ...dspace.Option) (*dspace.Repository, error) {
	repo, err := dspace.New(c.BaseURL, c.RepositoryOptions(extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	return repo, nil
}

// BuildS3Source creates the S3 bitstream source. It fails when S3 is not configured.
func (c *Config) BuildS3Source(ctx context.Context) (*s3source.Source, error) {
	if !c.S3.Enabled() {
		return nil, errors.New("s3 source is not configured: set DSPACE_S3_BUCKET or DSPACE_S3_ENDPOINT")
	}
	src, err := s3source.New(ctx, s3source.Config{
		Region:          c.S3.Region,
		Bucket:          c.S3.Bucket,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		Endpoint:        c.S3.Endpoint,
		UsePathStyle:    c.S3.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build s3 source: %w", err)
	}
	return src, nil
}

// SlogLevel returns LogLevel as a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
