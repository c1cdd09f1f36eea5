// Package main provides the car matcher CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/cache"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/config"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/recommend"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
)

// Set via -ldflags at build time.
var (
	version = "0.1.0"
	commit  = "dev"
)

// app carries global flags and loaded state for one command invocation.
type app struct {
	cfgFile    string
	envFile    string
	outputJSON bool
	noColor    bool
	verbose    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "car-matcher-cli",
		Short: "Car matcher CLI for catalog management and recommendations",
		Long: `Car matcher CLI manages the vehicle catalog and runs recommendations.

Use this tool to:
- Create the catalog schema
- Import catalog files (JSON or YAML) with tag normalization
- Rank cars for a budget, body style, fuel and usage profile
- Inspect tag normalization and budget bands

All commands support --json for automation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.ui != nil {
				a.ui.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.BoolVar(&a.outputJSON, "json", false, "output in JSON format")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newImportCmd(a))
	rootCmd.AddCommand(newRecommendCmd(a))
	rootCmd.AddCommand(newCarsCmd(a))
	rootCmd.AddCommand(newTagsCmd(a))
	rootCmd.AddCommand(newBandsCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		if _, err := os.Stat(a.envFile); err == nil {
			if err := godotenv.Load(a.envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		}
	}

	var err error
	a.cfg, err = config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logFormat := "console"
	if a.outputJSON {
		logFormat = "json"
	}

	a.logger = observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      logFormat,
		Output:      cmd.ErrOrStderr(),
		ServiceName: "car-matcher-cli",
	}).With().Str("command", cmd.CommandPath()).Logger()
	a.ui = NewUI(cmd.OutOrStdout(), a.outputJSON, a.noColor)
	return nil
}

// openService opens storage and the configured cache and returns a loaded
// service. The returned func releases everything.
func (a *app) openService(ctx context.Context) (*recommend.Service, func(), error) {
	db, err := a.openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	repo := storage.NewCarRepository(db, a.cfg.Database.Driver)

	opts := recommend.Options{
		Matching: matching.Config{
			MinScore:      a.cfg.Matching.MinScore,
			FallbackLimit: a.cfg.Matching.TopFallback,
		},
		Logger: a.logger,
	}

	closeAll := func() { _ = db.Close() }

	// With Redis the CLI shares the API's result cache, so imports
	// invalidate it and announce the new catalog version.
	if a.cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     a.cfg.Cache.Redis.Addr,
			Password: a.cfg.Cache.Redis.Password,
			DB:       a.cfg.Cache.Redis.DB,
			PoolSize: a.cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("Redis unavailable, continuing without shared cache")
		} else {
			opts.Notifier = client
			opts.Cache = recommend.NewResultCache(client, a.logger, recommend.ResultCacheConfig{
				TTL:       a.cfg.Cache.TTL,
				KeyPrefix: a.cfg.Cache.KeyPrefix,
				Enabled:   a.cfg.Cache.TTL > 0,
			})
			closeAll = func() {
				_ = client.Close()
				_ = db.Close()
			}
		}
	}

	svc := recommend.NewService(repo, opts)
	if err := svc.Reload(ctx); err != nil {
		closeAll()
		return nil, nil, err
	}
	return svc, closeAll, nil
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := storage.OpenFromConfig(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
