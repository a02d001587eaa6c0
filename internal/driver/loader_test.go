package driver

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/orthopheno/internal/core/model"
)

func attributed(sub, rel, obj string) model.AttributedEdge {
	e := model.AttributedEdge{
		EdgeTuple:    model.EdgeTuple{SubjectID: sub, ObjectID: obj, References: model.NoReferences},
		SubjectLabel: strings.ToLower(sub),
		ObjectLabel:  strings.ToLower(obj),
	}
	if rel != "" {
		e.Relation = model.RelationOf(rel)
		e.RelationLabel = "label " + rel
	}
	return e
}

func TestLoadNetwork(t *testing.T) {
	edges := model.AttributedEdgeSet{}
	edges.Add(attributed("HGNC:1", "RO:HOM0000020", "MGI:1"))
	edges.Add(attributed("MGI:1", "RO:0002200", "MP:1"))
	edges.Add(attributed("MGI:1", "", "GO:1"))

	m := &MockDriver{}
	stats, err := NewLoader(m, 0).LoadNetwork(context.Background(), edges)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Concepts)
	assert.Equal(t, 3, stats.Statements)

	var conceptQueries, statementQueries []executedQuery
	for _, q := range m.Executed {
		if strings.Contains(q.Query, "MERGE (n:") {
			conceptQueries = append(conceptQueries, q)
		} else {
			statementQueries = append(statementQueries, q)
		}
	}
	// GENE (HGNC:1, MGI:1), DISO (MP:1), PHYS (GO:1)
	assert.Len(t, conceptQueries, 3)
	assert.Len(t, statementQueries, 3)
	assert.Equal(t, len(conceptQueries), indexOfFirstStatement(m.Executed), "concepts are written first")

	var sawMissing bool
	for _, q := range statementQueries {
		if strings.Contains(q.Query, "`NA`") {
			sawMissing = true
		}
		rows := q.Params["rows"].([]interface{})
		row := rows[0].(map[string]interface{})
		assert.NotEmpty(t, row["subject_id"])
		assert.Equal(t, model.NoReferences, row["references"])
	}
	assert.True(t, sawMissing)
}

func indexOfFirstStatement(executed []executedQuery) int {
	for i, q := range executed {
		if strings.Contains(q.Query, "MERGE (s)-") {
			return i
		}
	}
	return -1
}

func TestLoadNetwork_Batches(t *testing.T) {
	edges := model.AttributedEdgeSet{}
	for i := 0; i < 5; i++ {
		edges.Add(attributed(fmt.Sprintf("HGNC:%d", i), "RO:0002434", "HGNC:100"))
	}

	m := &MockDriver{}
	_, err := NewLoader(m, 2).LoadNetwork(context.Background(), edges)
	require.NoError(t, err)

	// 6 GENE concepts in batches of 2, 5 statements in batches of 2
	assert.Len(t, m.Executed, 3+3)
}

func TestLoadNetwork_Error(t *testing.T) {
	edges := model.AttributedEdgeSet{}
	edges.Add(attributed("HGNC:1", "RO:1", "HGNC:2"))

	m := &MockDriver{Err: fmt.Errorf("db error")}
	_, err := NewLoader(m, 0).LoadNetwork(context.Background(), edges)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestQuoteName(t *testing.T) {
	assert.Equal(t, "`RO:0002200`", quoteName("RO:0002200"))
	assert.Equal(t, "`a``b`", quoteName("a`b"))
}

func TestHypothesisQueriesUseParameters(t *testing.T) {
	for _, q := range []string{ClosedHypothesisQuery, OpenHypothesisQuery} {
		assert.Contains(t, q, "$source")
		assert.Contains(t, q, "$target")
		assert.Contains(t, q, "`RO:HOM0000020`")
	}
	assert.Contains(t, ClosedHypothesisQuery, "$pw_degree")
	assert.Contains(t, ClosedHypothesisQuery, "$ds_degree")
	assert.Contains(t, ClosedHypothesisQuery, "$excluded_nodes")
	assert.Contains(t, ClosedHypothesisQuery, "$excluded_edges")
	assert.NotContains(t, OpenHypothesisQuery, "$pw_degree")
}
