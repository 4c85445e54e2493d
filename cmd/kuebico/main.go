// Command kuebico lists or exports the pages of a wiki stored on disk, in a
// SQL database or in an object store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goliatone/go-kuebico/cmd/kuebico/internal/bootstrap"
	"github.com/goliatone/go-kuebico/internal/commands"
	exportcmd "github.com/goliatone/go-kuebico/internal/commands/export"
	"github.com/goliatone/go-kuebico/internal/export"
	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/internal/runtimeconfig"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

var (
	backendBuilder  = bootstrap.OpenBackend
	rendererBuilder = bootstrap.NewRenderer
)

// errConflictingBackends is returned when more than one backend flag is set.
var errConflictingBackends = errors.New("only one of --fs-storage, --sqlite-storage and --object-storage may be set")

var verbosityLevels = []string{"warn", "info", "debug", "trace"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("kuebico: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	provider, err := bootstrap.LoggerProvider(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger := logging.CLILogger(provider)

	backend, err := backendBuilder(ctx, cfg, provider)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("cli.backend.close_failed", "error", err)
		}
	}()
	ctx = logging.ContextWithFields(ctx, map[string]any{"backend": backend.Name})
	logger.WithContext(ctx).Debug("cli.backend.opened")

	if !cfg.Exporting() {
		return listPages(ctx, backend.Pages, stdout)
	}

	handler := exportcmd.NewExportHandler(
		backend.Pages,
		rendererBuilder(cfg.Export),
		commands.CommandLogger(provider, "export"),
	)
	sub := dispatcher.SubscribeCommand(handler)
	defer sub.Unsubscribe()

	var result *export.Result
	msg := exportcmd.ExportCommand{
		ExportDir: cfg.Export.Dir,
		StaticDir: cfg.Export.StaticDir,
		FailFast:  cfg.Export.FailFast,
		ResultCallback: func(r *export.Result) {
			result = r
		},
	}
	err = dispatcher.Dispatch(ctx, msg)
	if result != nil {
		fmt.Fprintf(stdout, "exported %d of %d pages to %s (%d static files) in %s\n",
			len(result.Written), result.Pages, cfg.Export.Dir, result.StaticFiles, result.Duration)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// listPages prints one page name per line. Error items are reported after
// the listing so a single unreadable entry does not hide the rest.
func listPages(ctx context.Context, pages storage.Iterable, stdout io.Writer) error {
	var errs []error
	for page, err := range storage.All(ctx, pages.Iter()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintln(stdout, page.Name)
	}
	return errors.Join(errs...)
}

// parseConfig binds the command line flags into viper and loads the
// resulting configuration.
func parseConfig(args []string) (runtimeconfig.Config, error) {
	flags := pflag.NewFlagSet("kuebico", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to a config file (hcl, yaml, toml or json)")
	fsStorage := flags.BoolP("fs-storage", "f", false, "Read pages from the filesystem (default)")
	sqliteStorage := flags.BoolP("sqlite-storage", "s", false, "Read pages from a sqlite database")
	postgresDSN := flags.String("postgres-dsn", "", "Read pages from the postgres database at this DSN")
	objectStorage := flags.Bool("object-storage", false, "Read pages from an S3 compatible bucket")
	_ = flags.String("fs-dir", "./storage", "Root directory of the filesystem storage")
	_ = flags.Bool("frontmatter", false, "Extract page metadata from YAML front matter")
	_ = flags.String("sqlite-dsn", "", "DSN of the sqlite database")
	_ = flags.String("object-endpoint", "", "Object storage endpoint")
	_ = flags.String("object-bucket", "", "Object storage bucket")
	_ = flags.String("static-dir", "", "Directory copied verbatim into the export directory")
	_ = flags.String("templates", "./templates", "Directory holding page templates, used when present")
	_ = flags.String("export", "", "Export pages as HTML into this directory instead of listing them")
	_ = flags.Bool("fail-fast", false, "Stop the export at the first failing page")
	verbosity := flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	logFormat := flags.String("log-format", "", "Log format: console, json, pretty or plain")

	if err := flags.Parse(args); err != nil {
		return runtimeconfig.Config{}, err
	}

	v := viper.New()
	for key, name := range map[string]string{
		"storage.fs.dir":          "fs-dir",
		"storage.frontmatter":     "frontmatter",
		"storage.sql.dsn":         "sqlite-dsn",
		"storage.object.endpoint": "object-endpoint",
		"storage.object.bucket":   "object-bucket",
		"export.dir":              "export",
		"export.static_dir":       "static-dir",
		"export.templates_dir":    "templates",
		"export.fail_fast":        "fail-fast",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return runtimeconfig.Config{}, err
		}
	}

	selected := 0
	for backend, set := range map[string]bool{
		runtimeconfig.BackendFs:       *fsStorage,
		runtimeconfig.BackendSQLite:   *sqliteStorage,
		runtimeconfig.BackendPostgres: *postgresDSN != "",
		runtimeconfig.BackendObject:   *objectStorage,
	} {
		if set {
			selected++
			v.Set("storage.backend", backend)
		}
	}
	if selected > 1 {
		return runtimeconfig.Config{}, errConflictingBackends
	}
	if *postgresDSN != "" {
		v.Set("storage.sql.dsn", *postgresDSN)
	}

	if *verbosity > 0 {
		v.Set("logging.level", verbosityLevels[min(*verbosity, len(verbosityLevels)-1)])
	}
	switch format := strings.ToLower(strings.TrimSpace(*logFormat)); format {
	case "":
	case "plain":
		v.Set("logging.provider", "console")
	default:
		v.Set("logging.provider", "gologger")
		v.Set("logging.format", format)
	}

	return runtimeconfig.Load(v, *configPath)
}
