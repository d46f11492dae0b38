package config

import (
	"fmt"
	"time"
)

// WithBaseURL sets the repository URL, the part before /rest
func WithBaseURL(baseURL string) Option {
	return func(c *Config) error {
		if baseURL == "" {
			return fmt.Errorf("base URL cannot be empty")
		}
		c.BaseURL = baseURL
		return nil
	}
}

// WithCredentials sets the login email and password
func WithCredentials(email, password string) Option {
	return func(c *Config) error {
		c.Email = email
		c.Password = password
		return nil
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return fmt.Errorf("timeout must be non-negative, got: %v", timeout)
		}
		c.Timeout = timeout
		return nil
	}
}

// WithTLSVerify toggles TLS certificate verification
func WithTLSVerify(verify bool) Option {
	return func(c *Config) error {
		c.TLSVerify = verify
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.LogLevel = level
		return nil
	}
}

// WithSerializedFindOrCreate serializes find-or-create calls within the process
func WithSerializedFindOrCreate(enabled bool) Option {
	return func(c *Config) error {
		c.SerializeFindOrCreate = enabled
		return nil
	}
}

// WithS3 configures the S3 bitstream source
func WithS3(s3 S3Config) Option {
	return func(c *Config) error {
		if s3.Region == "" {
			s3.Region = c.S3.Region
		}
		c.S3 = s3
		return nil
	}
}
