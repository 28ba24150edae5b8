package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads every field from the environment. Unset variables take the
// env-default value, so options meant to override the environment go after it.
func WithEnv() Option {
	return func(c *Config) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *Config) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *Config) error {
		if dbType != DatabaseMemory && dbType != DatabasePostgres {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == DatabasePostgres && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *Config) error {
		c.DBSchema = schema
		return nil
	}
}

// WithHTTPRenderer requests renditions from the host's asset endpoint
func WithHTTPRenderer(baseURL, token string) Option {
	return func(c *Config) error {
		if baseURL == "" {
			return fmt.Errorf("assets base URL cannot be empty")
		}
		c.Renderer = RendererHTTP
		c.AssetsBaseURL = baseURL
		c.AssetsToken = token
		return nil
	}
}

// WithLocalRenderer renders from stored originals under root
func WithLocalRenderer(root string) Option {
	return func(c *Config) error {
		c.Renderer = RendererLocal
		c.StorageLocalRoot = root
		return nil
	}
}

// WithRenditionFormat sets the requested rendition format
func WithRenditionFormat(format string) Option {
	return func(c *Config) error {
		c.RenditionFormat = format
		return nil
	}
}

// WithWebhookJWTSecret protects the hook routes
func WithWebhookJWTSecret(secret string) Option {
	return func(c *Config) error {
		c.WebhookJWTSecret = secret
		return nil
	}
}
