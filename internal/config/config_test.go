package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[monarch]
connection_rows = 500
timeout = "5s"

[neo4j]
uri = "bolt://graph:7687"
password = "ngly1"

[hypothesis]
format = "yaml"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Monarch.ConnectionRows)
	assert.Equal(t, 2000, cfg.Monarch.NeighbourRows)
	assert.Equal(t, 5*time.Second, cfg.Monarch.Timeout.Duration)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, "yaml", cfg.Hypothesis.Format)
	assert.Equal(t, 50, cfg.Hypothesis.PathwayDegreeMax)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[monarch]\ntimeout = \"soon\"\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://env:7687")
	t.Setenv("MONARCH_BASE_URL", "http://monarch.test/api")
	t.Setenv("ORTHOPHENO_FETCH_WORKERS", "8")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "bolt://env:7687", cfg.Neo4j.URI)
	assert.Equal(t, "http://monarch.test/api", cfg.Monarch.BaseURL)
	assert.Equal(t, 8, cfg.Concurrency.FetchWorkers)
	assert.Equal(t, "redis://cache:6379/2", cfg.Cache.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Duration)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Hypothesis.Format = "csv"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Concurrency.FetchWorkers = 0
	assert.Error(t, cfg.Validate())
}
