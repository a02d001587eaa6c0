//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/orthopheno/internal/config"
	"github.com/agenthands/orthopheno/internal/core/expand"
	"github.com/agenthands/orthopheno/internal/core/model"
	"github.com/agenthands/orthopheno/internal/driver"
	"github.com/agenthands/orthopheno/internal/hypothesis"
	"github.com/agenthands/orthopheno/internal/monarch"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	_ = godotenv.Load("../../.env")
	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		t.Logf("Config not found, using default: %v", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}

func edge(sub, rel, relLabel, obj string) model.AttributedEdge {
	return model.AttributedEdge{
		EdgeTuple: model.EdgeTuple{
			SubjectID:  sub,
			Relation:   model.RelationOf(rel),
			ObjectID:   obj,
			References: model.NoReferences,
		},
		SubjectLabel:  strings.ToLower(sub),
		RelationLabel: relLabel,
		ObjectLabel:   strings.ToLower(obj),
	}
}

func TestLoadAndHypothesis(t *testing.T) {
	if os.Getenv("NEO4J_URI") == "" {
		t.Skip("Skipping integration test: NEO4J_URI not set")
	}
	cfg := loadConfig(t)

	ctx := context.Background()
	d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j)
	require.NoError(t, err)
	defer d.Close(ctx)
	require.NoError(t, d.BuildIndices(ctx))

	run := uuid.NewString()[:8]
	id := func(prefix, local string) string { return fmt.Sprintf("%s:it-%s-%s", prefix, run, local) }

	source, target := id("HGNC", "source"), id("HGNC", "target")
	g1, g2, g3 := id("MGI", "g1"), id("MGI", "g2"), id("HGNC", "g3")
	ds, pw := id("MONDO", "ds"), id("GO", "pw")

	const ortholog = "in 1 to 1 orthology relationship with"
	edges := model.AttributedEdgeSet{}
	edges.Add(edge(source, driver.OrthologRelation, ortholog, g1))
	edges.Add(edge(g1, "RO:0002200", "has phenotype", ds))
	edges.Add(edge(g2, "RO:0002200", "has phenotype", ds))
	edges.Add(edge(g2, driver.OrthologRelation, ortholog, g3))
	edges.Add(edge(g3, "RO:0002331", "involved in", pw))
	edges.Add(edge(target, "RO:0002331", "involved in", pw))

	stats, err := driver.NewLoader(d, 2).LoadNetwork(ctx, edges)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Concepts)
	assert.Equal(t, 6, stats.Statements)

	// Loading twice merges onto the same nodes and relationships.
	_, err = driver.NewLoader(d, 2).LoadNetwork(ctx, edges)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = d.ExecuteQuery(context.Background(),
			"MATCH (n) WHERE n.id CONTAINS $marker DETACH DELETE n",
			map[string]interface{}{"marker": ":it-" + run})
	})

	runner := hypothesis.NewRunner(d, t.TempDir())
	report, err := runner.Run(ctx, hypothesis.Request{
		Genes:              []string{source, target},
		PathwayDegreeMax:   cfg.Hypothesis.PathwayDegreeMax,
		PhenotypeDegreeMax: cfg.Hypothesis.PhenotypeDegreeMax,
		Name:               "it_" + run,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Queries)
	assert.Zero(t, report.Failed)

	forward := report.Results[0]
	assert.Equal(t, source, forward.Source)
	require.Len(t, forward.Paths, 1)
	path := forward.Paths[0]
	require.Len(t, path.Nodes, 7)
	assert.Equal(t, source, path.Nodes[0].ID)
	assert.Equal(t, target, path.Nodes[6].ID)
	assert.Equal(t, model.GroupDisorder, path.Nodes[2].Label)
	assert.Equal(t, model.GroupPhysiology, path.Nodes[5].Label)
	assert.True(t, hypothesis.IsSimple(path))

	saved, err := hypothesis.ReadResults(report.OutputPath)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	// A hub physiology node is suppressed by the degree limit.
	strict, err := runner.Run(ctx, hypothesis.Request{
		Genes:              []string{source, target},
		PathwayDegreeMax:   1,
		PhenotypeDegreeMax: cfg.Hypothesis.PhenotypeDegreeMax,
		Name:               "it_strict_" + run,
	})
	require.NoError(t, err)
	assert.Empty(t, strict.Results[0].Paths)
}

func TestMonarchOrthoPheno(t *testing.T) {
	if os.Getenv("MONARCH_LIVE") == "" {
		t.Skip("Skipping live Monarch test: MONARCH_LIVE not set")
	}
	cfg := loadConfig(t)

	client, err := monarch.NewClient(cfg.Monarch, cfg.Retry, nil)
	require.NoError(t, err)
	x := expand.New(client, expand.Options{
		NeighbourRows:  cfg.Monarch.NeighbourRows,
		ConnectionRows: cfg.Monarch.ConnectionRows,
		Workers:        cfg.Concurrency.FetchWorkers,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	seed := model.NewNodeSet("HGNC:11025")
	op, err := x.OrthoPheno(ctx, seed)
	require.NoError(t, err)
	assert.NotZero(t, op.Orthologs.Len())
	for n := range op.Nodes {
		assert.False(t, model.IsPublication(n), n)
		assert.False(t, seed.Has(n), n)
	}
}
