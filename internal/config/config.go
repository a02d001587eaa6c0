package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type MonarchConfig struct {
	BaseURL        string   `toml:"base_url"`
	NeighbourRows  int      `toml:"neighbour_rows"`
	ConnectionRows int      `toml:"connection_rows"`
	Timeout        Duration `toml:"timeout"`
	CacheSize      int      `toml:"cache_size"`
}

// CacheConfig configures the Redis tier shared between runs. An empty
// RedisURL keeps caching in process only.
type CacheConfig struct {
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
	Prefix   string   `toml:"prefix"`
}

type RetryConfig struct {
	MaxAttempts     int      `toml:"max_attempts"`
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type HypothesisConfig struct {
	OutputDir          string `toml:"output_dir"`
	Format             string `toml:"format"`
	PathwayDegreeMax   int    `toml:"pathway_degree_max"`
	PhenotypeDegreeMax int    `toml:"phenotype_degree_max"`
}

type ConcurrencyConfig struct {
	FetchWorkers int `toml:"fetch_workers"`
}

type TracingConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	Insecure     bool   `toml:"insecure"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type Config struct {
	Monarch     MonarchConfig     `toml:"monarch"`
	Cache       CacheConfig       `toml:"cache"`
	Retry       RetryConfig       `toml:"retry"`
	Neo4j       Neo4jConfig       `toml:"neo4j"`
	Hypothesis  HypothesisConfig  `toml:"hypothesis"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Tracing     TracingConfig     `toml:"tracing"`
	Log         LogConfig         `toml:"log"`
}

// Duration is a time.Duration read from a TOML string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the settings the pipeline has always run with.
func Default() *Config {
	return &Config{
		Monarch: MonarchConfig{
			BaseURL:        "https://api.monarchinitiative.org/api",
			NeighbourRows:  2000,
			ConnectionRows: 1000,
			Timeout:        Duration{60 * time.Second},
			CacheSize:      4096,
		},
		Cache: CacheConfig{
			TTL:    Duration{24 * time.Hour},
			Prefix: "orthopheno:monarch:",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: Duration{500 * time.Millisecond},
			MaxInterval:     Duration{10 * time.Second},
		},
		Neo4j: Neo4jConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		Hypothesis: HypothesisConfig{
			OutputDir:          "hypothesis",
			Format:             "json",
			PathwayDegreeMax:   50,
			PhenotypeDegreeMax: 20,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads a TOML file on top of Default. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_DATABASE"); v != "" {
		c.Neo4j.Database = v
	}
	if v := os.Getenv("MONARCH_BASE_URL"); v != "" {
		c.Monarch.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("ORTHOPHENO_OUTPUT_DIR"); v != "" {
		c.Hypothesis.OutputDir = v
	}
	if v := os.Getenv("ORTHOPHENO_FETCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency.FetchWorkers = n
		}
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.OTLPEndpoint = v
	}
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	if c.Monarch.BaseURL == "" {
		return fmt.Errorf("monarch.base_url is required")
	}
	if c.Monarch.NeighbourRows <= 0 || c.Monarch.ConnectionRows <= 0 {
		return fmt.Errorf("monarch row limits must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Concurrency.FetchWorkers < 1 {
		return fmt.Errorf("concurrency.fetch_workers must be at least 1")
	}
	switch c.Hypothesis.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("hypothesis.format must be json or yaml, got %q", c.Hypothesis.Format)
	}
	return nil
}
