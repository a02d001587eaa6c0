package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/agenthands/orthopheno/internal/config"
	"github.com/agenthands/orthopheno/internal/core/expand"
	"github.com/agenthands/orthopheno/internal/driver"
	"github.com/agenthands/orthopheno/internal/hypothesis"
	"github.com/agenthands/orthopheno/internal/monarch"
	"github.com/agenthands/orthopheno/internal/server"
	"github.com/agenthands/orthopheno/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load config, using defaults")
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := telemetry.SetupLogger(cfg.Log, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Invalid log settings")
	}

	ctx := context.Background()
	metrics := telemetry.SetupMetrics()
	shutdown, err := telemetry.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}
	defer shutdown(ctx)

	client, err := monarch.NewClient(cfg.Monarch, cfg.Retry, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Monarch client")
	}
	if cfg.Cache.RedisURL != "" {
		rc, err := monarch.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rc.Close()
		client.UseSharedCache(rc)
	}
	x := expand.New(client, expand.Options{
		NeighbourRows:  cfg.Monarch.NeighbourRows,
		ConnectionRows: cfg.Monarch.ConnectionRows,
		Workers:        cfg.Concurrency.FetchWorkers,
	})

	d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Neo4j")
	}
	defer d.Close(ctx)
	if err := d.BuildIndices(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to build indices")
	}

	srv := server.NewServer(x, hypothesis.NewRunner(d, cfg.Hypothesis.OutputDir))
	srv.Metrics = metrics
	srv.Defaults = cfg.Hypothesis
	r := srv.SetupRouter()

	log.Info().Str("port", port).Msg("Starting server")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
