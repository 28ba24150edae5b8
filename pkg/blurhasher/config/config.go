package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/events/memory"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/render/httpasset"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/render/local"
	repomemory "github.com/tendant/simple-blurhash/pkg/blurhasher/repo/memory"
	repopg "github.com/tendant/simple-blurhash/pkg/blurhasher/repo/postgres"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/storage"
	fsstorage "github.com/tendant/simple-blurhash/pkg/blurhasher/storage/fs"
	memorystorage "github.com/tendant/simple-blurhash/pkg/blurhasher/storage/memory"
	s3storage "github.com/tendant/simple-blurhash/pkg/blurhasher/storage/s3"
)

// Renderer and database kinds.
const (
	RendererLocal = "local"
	RendererHTTP  = "http"

	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
)

// Storage names recorded on file records.
const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageS3     = "s3"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Config is the process configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Port        string `env:"PORT" env-default:"8080"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat   string `env:"LOG_FORMAT" env-default:"text"`

	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DBSchema     string `env:"DB_SCHEMA" env-default:"public"`

	Renderer        string `env:"RENDERER" env-default:"local"`
	AssetsBaseURL   string `env:"ASSETS_BASE_URL"`
	AssetsToken     string `env:"ASSETS_TOKEN"`
	RenditionFormat string `env:"RENDITION_FORMAT"`

	StorageLocalRoot  string `env:"STORAGE_LOCAL_ROOT"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3Root            string `env:"S3_ROOT"`

	WebhookJWTSecret string `env:"WEBHOOK_JWT_SECRET"`
}

// Load constructs a Config by applying the supplied options on top of defaults.
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
		Environment:  "development",
		Port:         "8080",
		LogLevel:     "info",
		LogFormat:    "text",
		DatabaseType: DatabaseMemory,
		DBSchema:     "public",
		Renderer:     RendererLocal,
		S3Region:     "us-east-1",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return fmt.Errorf("database_type must be '%s' or '%s', got: %s", DatabaseMemory, DatabasePostgres, c.DatabaseType)
	}

	switch c.Renderer {
	case RendererHTTP:
		if c.AssetsBaseURL == "" {
			return errors.New("assets_base_url is required for the http renderer")
		}
	case RendererLocal:
		if strings.EqualFold(c.RenditionFormat, "webp") {
			return fmt.Errorf("%w: the local renderer cannot produce webp", blurhasher.ErrUnsupportedFormat)
		}
	default:
		return fmt.Errorf("renderer must be '%s' or '%s', got: %s", RendererLocal, RendererHTTP, c.Renderer)
	}

	switch strings.ToLower(c.RenditionFormat) {
	case "", "webp", "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("%w: %s", blurhasher.ErrUnsupportedFormat, c.RenditionFormat)
	}

	if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
		return errors.New("s3 access key id and secret access key must be set together")
	}

	return nil
}

// EffectiveRenditionFormat returns the configured format or the renderer's default
func (c *Config) EffectiveRenditionFormat() string {
	if c.RenditionFormat != "" {
		return strings.ToLower(c.RenditionFormat)
	}
	if c.Renderer == RendererLocal {
		return local.DefaultFormat
	}
	return blurhasher.DefaultFormat
}

// FileStore is a file service that can also page through file IDs
type FileStore interface {
	blurhasher.FileService
	ListFileIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// App is the assembled runtime
type App struct {
	Service blurhasher.Service
	Files   FileStore
	Fields  blurhasher.FieldService
	Bus     *memory.Bus
	Stores  map[string]storage.Store

	closers []func()
}

// Close releases database connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Build assembles repositories, storage backends, the renderer and the
// service, and subscribes the service to the event bus.
func (c *Config) Build(ctx context.Context, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Stores: map[string]storage.Store{}}

	if err := c.buildRepository(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	assets, err := c.buildRenderer(ctx, app)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build renderer: %w", err)
	}

	options := []blurhasher.Option{
		blurhasher.WithFileService(app.Files),
		blurhasher.WithFieldService(app.Fields),
		blurhasher.WithAssetService(assets),
		blurhasher.WithLogger(logger),
		blurhasher.WithRenditionFormat(c.EffectiveRenditionFormat()),
	}
	if c.Environment == "development" {
		options = append(options, blurhasher.WithHooks(blurhasher.LoggingHook(logger)))
	}

	svc, err := blurhasher.New(options...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build service: %w", err)
	}
	app.Service = svc

	app.Bus = memory.NewBus(logger)
	blurhasher.Register(app.Bus, svc, logger)

	return app, nil
}

func (c *Config) buildRepository(ctx context.Context, app *App) error {
	switch c.DatabaseType {
	case DatabaseMemory:
		repo := repomemory.New()
		app.Files = repo
		app.Fields = repo
		return nil
	case DatabasePostgres:
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create pgx pool: %w", err)
		}
		app.closers = append(app.closers, pool.Close)

		repo := repopg.NewWithPool(pool)
		app.Files = repo
		app.Fields = repo
		return nil
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *Config) buildRenderer(ctx context.Context, app *App) (blurhasher.AssetService, error) {
	if c.Renderer == RendererHTTP {
		return httpasset.New(c.AssetsBaseURL, httpasset.WithToken(c.AssetsToken))
	}

	if err := c.buildStores(ctx, app); err != nil {
		return nil, err
	}

	options := []local.Option{local.WithDefaultStore(c.defaultStore())}
	for name, store := range app.Stores {
		options = append(options, local.WithStore(name, store))
	}
	return local.New(app.Files, options...)
}

func (c *Config) buildStores(ctx context.Context, app *App) error {
	if c.StorageLocalRoot != "" {
		store, err := fsstorage.New(fsstorage.Config{BaseDir: c.StorageLocalRoot})
		if err != nil {
			return fmt.Errorf("failed to build storage backend %s: %w", StorageLocal, err)
		}
		app.Stores[StorageLocal] = store
	}

	if c.S3Bucket != "" {
		store, err := s3storage.New(ctx, s3storage.Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
			Root:            c.S3Root,
		})
		if err != nil {
			return fmt.Errorf("failed to build storage backend %s: %w", StorageS3, err)
		}
		app.Stores[StorageS3] = store
	}

	if len(app.Stores) == 0 {
		app.Stores[StorageMemory] = memorystorage.New()
	}
	return nil
}

func (c *Config) defaultStore() string {
	switch {
	case c.StorageLocalRoot != "":
		return StorageLocal
	case c.S3Bucket != "":
		return StorageS3
	default:
		return StorageMemory
	}
}
