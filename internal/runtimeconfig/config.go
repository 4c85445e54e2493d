// Package runtimeconfig holds the settings that select a storage backend, the
// export directories and the logging provider.
package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-kuebico/internal/fsutil"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
)

var (
	ErrStorageBackendUnknown  = errors.New("kuebico config: storage backend is invalid")
	ErrFsDirRequired          = errors.New("kuebico config: fs storage directory is required")
	ErrFsExtensionInvalid     = errors.New("kuebico config: fs extension must not contain a path separator")
	ErrSQLDSNRequired         = errors.New("kuebico config: sql dsn is required for database storage")
	ErrSQLBatchSizeInvalid    = errors.New("kuebico config: sql batch size must be zero or positive")
	ErrObjectEndpointMissing  = errors.New("kuebico config: object storage endpoint is required")
	ErrObjectBucketMissing    = errors.New("kuebico config: object storage bucket is required")
	ErrExportDirConflict      = errors.New("kuebico config: export directory must not be the static directory or lie inside it")
	ErrLoggingProviderUnknown = errors.New("kuebico config: logging provider is invalid")
	ErrLoggingLevelInvalid    = errors.New("kuebico config: logging level is invalid")
	ErrLoggingFormatInvalid   = errors.New("kuebico config: logging format is invalid")
)

// Storage backends.
const (
	BackendFs       = "fs"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendObject   = "object"
)

// Config aggregates every setting of a kuebico run.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig selects the backend pages are read from.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Frontmatter extracts page metadata from YAML front matter instead of
	// using the default metadata.
	Frontmatter bool         `mapstructure:"frontmatter"`
	Fs          FsConfig     `mapstructure:"fs"`
	SQL         SQLConfig    `mapstructure:"sql"`
	Object      ObjectConfig `mapstructure:"object"`
}

// FsConfig configures the filesystem backend.
type FsConfig struct {
	Dir          string `mapstructure:"dir"`
	IgnoreHidden bool   `mapstructure:"ignore_hidden"`
	Extension    string `mapstructure:"extension"`
}

// SQLConfig configures the sqlite and postgres backends.
type SQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	BatchSize   int    `mapstructure:"batch_size"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// ObjectConfig configures the object storage backend.
type ObjectConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Secure       bool   `mapstructure:"secure"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// ExportConfig configures the HTML export. An empty Dir means pages are
// listed instead of exported.
type ExportConfig struct {
	Dir          string                  `mapstructure:"dir"`
	StaticDir    string                  `mapstructure:"static_dir"`
	TemplatesDir string                  `mapstructure:"templates_dir"`
	FailFast     bool                    `mapstructure:"fail_fast"`
	Parser       interfaces.ParseOptions `mapstructure:"parser"`
}

// LoggingConfig selects the logging provider.
type LoggingConfig struct {
	Provider string `mapstructure:"provider"`
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	// Focus limits go-logger output to the named modules.
	Focus     []string `mapstructure:"focus"`
	AddSource bool     `mapstructure:"add_source"`
}

// DefaultConfig returns the settings used when nothing is configured: a
// filesystem backend over ./storage with hidden entries ignored.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendFs,
			Fs: FsConfig{
				Dir:          "./storage",
				IgnoreHidden: true,
				Extension:    "md",
			},
			SQL: SQLConfig{
				BatchSize:   100,
				AutoMigrate: true,
			},
			Object: ObjectConfig{
				Secure: true,
			},
		},
		Export: ExportConfig{
			TemplatesDir: "./templates",
		},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "warn",
			Format:   "console",
		},
	}
}

// Exporting reports whether an export directory is configured.
func (cfg Config) Exporting() bool {
	return strings.TrimSpace(cfg.Export.Dir) != ""
}

// Validate performs consistency checks on the selected backend and logging.
func (cfg Config) Validate() error {
	switch normalize(cfg.Storage.Backend) {
	case BackendFs:
		if strings.TrimSpace(cfg.Storage.Fs.Dir) == "" {
			return ErrFsDirRequired
		}
		if strings.ContainsAny(cfg.Storage.Fs.Extension, `/\`) {
			return fmt.Errorf("%w: %s", ErrFsExtensionInvalid, cfg.Storage.Fs.Extension)
		}
	case BackendSQLite, BackendPostgres:
		if strings.TrimSpace(cfg.Storage.SQL.DSN) == "" {
			return ErrSQLDSNRequired
		}
		if cfg.Storage.SQL.BatchSize < 0 {
			return ErrSQLBatchSizeInvalid
		}
	case BackendObject:
		if strings.TrimSpace(cfg.Storage.Object.Endpoint) == "" {
			return ErrObjectEndpointMissing
		}
		if strings.TrimSpace(cfg.Storage.Object.Bucket) == "" {
			return ErrObjectBucketMissing
		}
	default:
		return fmt.Errorf("%w: %q", ErrStorageBackendUnknown, cfg.Storage.Backend)
	}

	if cfg.Exporting() && cfg.Export.StaticDir != "" && fsutil.Within(cfg.Export.StaticDir, cfg.Export.Dir) {
		return ErrExportDirConflict
	}

	provider := normalize(cfg.Logging.Provider)
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
