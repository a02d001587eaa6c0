package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agenthands/orthopheno/internal/config"
	"github.com/agenthands/orthopheno/internal/core/expand"
	"github.com/agenthands/orthopheno/internal/driver"
	"github.com/agenthands/orthopheno/internal/monarch"
	"github.com/agenthands/orthopheno/internal/telemetry"
)

const defaultConfigPath = "config/config.toml"

var (
	configPath string
	workers    int

	cfg             *config.Config
	metrics         *telemetry.Metrics
	shutdownTracing telemetry.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:   "orthopheno",
	Short: "Expand gene neighbourhoods and query ortholog-phenotype paths",
	Long: `orthopheno builds ortholog/phenotype networks around seed genes from the
Monarch association service, loads them into Neo4j and runs the
gene-to-gene hypothesis path query over every ordered gene pair.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing == nil {
			return nil
		}
		return shutdownTracing(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the TOML config file")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "number of nodes fetched at once (overrides config)")

	rootCmd.AddCommand(neighboursCmd, orthophenoCmd, connectionsCmd, networkCmd)
	rootCmd.AddCommand(loadCmd, hypothesisCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var err error
	cfg, err = loadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if workers > 0 {
		cfg.Concurrency.FetchWorkers = workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := telemetry.SetupLogger(cfg.Log, os.Stderr); err != nil {
		return err
	}
	metrics = telemetry.SetupMetrics()
	shutdownTracing, err = telemetry.SetupTracing(cmd.Context(), cfg.Tracing)
	return err
}

// loadConfig falls back to the built-in defaults when the default config
// path does not exist. An explicitly given path must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newExpander builds the association client, with the Redis tier when
// cache.redis_url is set, and the expander over it.
func newExpander(ctx context.Context) (*expand.Expander, error) {
	client, err := monarch.NewClient(cfg.Monarch, cfg.Retry, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.RedisURL != "" {
		rc, err := monarch.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		client.UseSharedCache(rc)
	}
	return expand.New(client, expand.Options{
		NeighbourRows:  cfg.Monarch.NeighbourRows,
		ConnectionRows: cfg.Monarch.ConnectionRows,
		Workers:        cfg.Concurrency.FetchWorkers,
	}), nil
}

func openGraph(ctx context.Context) (*driver.Neo4jDriver, error) {
	d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j)
	if err != nil {
		return nil, err
	}
	if err := d.BuildIndices(ctx); err != nil {
		d.Close(ctx)
		return nil, err
	}
	return d, nil
}
