// Package bootstrap turns a runtimeconfig.Config into the logger provider,
// storage backend and renderer used by the kuebico CLI.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-kuebico/internal/export"
	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/internal/logging/console"
	"github.com/goliatone/go-kuebico/internal/logging/gologger"
	"github.com/goliatone/go-kuebico/internal/markdown"
	"github.com/goliatone/go-kuebico/internal/render"
	"github.com/goliatone/go-kuebico/internal/runtimeconfig"
	"github.com/goliatone/go-kuebico/internal/storage/bunstore"
	"github.com/goliatone/go-kuebico/internal/storage/fsstore"
	"github.com/goliatone/go-kuebico/internal/storage/objectstore"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

// Backend is an opened storage backend plus whatever must be released when
// the run ends.
type Backend struct {
	Name  string
	Pages storage.Iterable

	closer func() error
}

// Close releases the backend resources.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer()
}

// LoggerProvider builds the provider selected by cfg. Console entries go to
// stderr so page listings on stdout stay clean.
func LoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "console":
		level, err := console.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		return console.NewProvider(console.Options{
			Writer:   os.Stderr,
			MinLevel: &level,
		}), nil
	case "", "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrLoggingProviderUnknown, cfg.Provider)
	}
}

// OpenBackend opens the storage backend selected by cfg.Storage.
func OpenBackend(ctx context.Context, cfg runtimeconfig.Config, provider interfaces.LoggerProvider) (*Backend, error) {
	logger := logging.StorageLogger(provider)

	var extract storage.MetadataExtractor
	if cfg.Storage.Frontmatter {
		extract = markdown.ExtractMetadata
	}

	switch backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)); backend {
	case runtimeconfig.BackendFs:
		store, err := fsstore.Open(fsstore.Config{
			Path:         cfg.Storage.Fs.Dir,
			IgnoreHidden: cfg.Storage.Fs.IgnoreHidden,
			Extension:    cfg.Storage.Fs.Extension,
		}, fsstore.WithLogger(logger), fsstore.WithMetadataExtractor(extract))
		if err != nil {
			return nil, err
		}
		return &Backend{Name: backend, Pages: store}, nil

	case runtimeconfig.BackendSQLite, runtimeconfig.BackendPostgres:
		driver := bunstore.DriverSQLite
		if backend == runtimeconfig.BackendPostgres {
			driver = bunstore.DriverPostgres
		}
		store, err := bunstore.Open(driver, cfg.Storage.SQL.DSN,
			bunstore.WithBatchSize(cfg.Storage.SQL.BatchSize),
			bunstore.WithLogger(logger),
			bunstore.WithMetadataExtractor(extract),
		)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.SQL.AutoMigrate {
			if err := store.CreateSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("bootstrap: create schema: %w", err)
			}
		}
		return &Backend{Name: backend, Pages: store, closer: store.Close}, nil

	case runtimeconfig.BackendObject:
		objCfg := cfg.Storage.Object
		client, err := objectstore.NewMinioClient(objectstore.ClientConfig{
			Endpoint:  objCfg.Endpoint,
			AccessKey: objCfg.AccessKey,
			SecretKey: objCfg.SecretKey,
			Region:    objCfg.Region,
			Secure:    objCfg.Secure,
		})
		if err != nil {
			return nil, err
		}
		bucket := objectstore.NewMinioBucket(client, objCfg.Bucket)
		if objCfg.CreateBucket {
			if err := bucket.EnsureBucket(ctx); err != nil {
				return nil, fmt.Errorf("bootstrap: ensure bucket: %w", err)
			}
		}
		storeCfg := objectstore.DefaultConfig()
		storeCfg.Prefix = objCfg.Prefix
		store := objectstore.New(bucket, storeCfg,
			objectstore.WithLogger(logger),
			objectstore.WithMetadataExtractor(extract),
		)
		return &Backend{Name: backend, Pages: store}, nil

	default:
		return nil, fmt.Errorf("%w: %q", runtimeconfig.ErrStorageBackendUnknown, cfg.Storage.Backend)
	}
}

// NewRenderer builds the HTML renderer for cfg. The templates directory is
// only used when it exists.
func NewRenderer(cfg runtimeconfig.ExportConfig) export.Renderer {
	opts := []render.Option{
		render.WithParser(markdown.NewGoldmarkParser(cfg.Parser)),
	}
	if dir := strings.TrimSpace(cfg.TemplatesDir); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			opts = append(opts, render.WithTemplatesDir(dir))
		}
	}
	return render.New(opts...)
}
