package runtimeconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment overrides, e.g. KUEBICO_STORAGE_FS_DIR.
const EnvPrefix = "KUEBICO"

// Load resolves the configuration from defaults, an optional config file at
// path, environment variables and any flags already bound to v. A nil v uses
// a fresh viper instance.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return Config{}, fmt.Errorf("kuebico config: expand %s: %w", path, err)
		}
		v.SetConfigFile(expanded)
		if filepath.Ext(expanded) == "" {
			v.SetConfigType("hcl")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("kuebico config: read %s: %w", expanded, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("kuebico config: decode: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return Config{}, err
	}
	cfg.Storage.Backend = normalize(cfg.Storage.Backend)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every key of DefaultConfig on v so environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.frontmatter", def.Storage.Frontmatter)
	v.SetDefault("storage.fs.dir", def.Storage.Fs.Dir)
	v.SetDefault("storage.fs.ignore_hidden", def.Storage.Fs.IgnoreHidden)
	v.SetDefault("storage.fs.extension", def.Storage.Fs.Extension)
	v.SetDefault("storage.sql.dsn", def.Storage.SQL.DSN)
	v.SetDefault("storage.sql.batch_size", def.Storage.SQL.BatchSize)
	v.SetDefault("storage.sql.auto_migrate", def.Storage.SQL.AutoMigrate)
	v.SetDefault("storage.object.endpoint", def.Storage.Object.Endpoint)
	v.SetDefault("storage.object.bucket", def.Storage.Object.Bucket)
	v.SetDefault("storage.object.prefix", def.Storage.Object.Prefix)
	v.SetDefault("storage.object.region", def.Storage.Object.Region)
	v.SetDefault("storage.object.access_key", def.Storage.Object.AccessKey)
	v.SetDefault("storage.object.secret_key", def.Storage.Object.SecretKey)
	v.SetDefault("storage.object.secure", def.Storage.Object.Secure)
	v.SetDefault("storage.object.create_bucket", def.Storage.Object.CreateBucket)

	v.SetDefault("export.dir", def.Export.Dir)
	v.SetDefault("export.static_dir", def.Export.StaticDir)
	v.SetDefault("export.templates_dir", def.Export.TemplatesDir)
	v.SetDefault("export.fail_fast", def.Export.FailFast)
	v.SetDefault("export.parser.extensions", def.Export.Parser.Extensions)
	v.SetDefault("export.parser.sanitize", def.Export.Parser.Sanitize)
	v.SetDefault("export.parser.hard_wraps", def.Export.Parser.HardWraps)
	v.SetDefault("export.parser.safe_mode", def.Export.Parser.SafeMode)

	v.SetDefault("logging.provider", def.Logging.Provider)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.focus", def.Logging.Focus)
	v.SetDefault("logging.add_source", def.Logging.AddSource)
}

func (cfg *Config) expandPaths() error {
	for _, p := range []*string{
		&cfg.Storage.Fs.Dir,
		&cfg.Export.Dir,
		&cfg.Export.StaticDir,
		&cfg.Export.TemplatesDir,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("kuebico config: expand %s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}
