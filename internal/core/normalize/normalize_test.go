package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/orthopheno/internal/core/model"
)

func assoc(sub, rel, obj string, pubs ...string) model.Association {
	a := model.Association{
		Subject: model.Term{ID: sub, Label: sub + "-label"},
		Object:  model.Term{ID: obj, Label: obj + "-label"},
	}
	if rel != "" {
		a.Relation = &model.Term{ID: rel, Label: rel + "-label"}
	}
	for _, p := range pubs {
		a.Publications = append(a.Publications, model.Publication{ID: p})
	}
	return a
}

func TestToEdgeTuple(t *testing.T) {
	a := assoc("A", "RO:1", "B", "PMID:2", "PMID:1")

	e, err := ToEdgeTuple(a)
	require.NoError(t, err)
	assert.Equal(t, "A", e.SubjectID)
	assert.Equal(t, model.RelationOf("RO:1"), e.Relation)
	assert.Equal(t, "B", e.ObjectID)
	assert.Equal(t, "PMID:2|PMID:1", e.References)

	again, err := ToEdgeTuple(a)
	require.NoError(t, err)
	assert.Equal(t, e, again)
}

func TestToEdgeTuple_NoRelationNoPublications(t *testing.T) {
	e, err := ToEdgeTuple(assoc("A", "", "B"))
	require.NoError(t, err)
	assert.False(t, e.Relation.Present)
	assert.Equal(t, model.NoReferences, e.References)
}

func TestToEdgeTuple_DataShape(t *testing.T) {
	_, err := ToEdgeTuple(model.Association{Object: model.Term{ID: "B"}})
	assert.ErrorIs(t, err, ErrDataShape)

	_, err = ToEdgeTuple(model.Association{Subject: model.Term{ID: "A"}})
	assert.ErrorIs(t, err, ErrDataShape)
}

func TestToEdgeSet_DuplicatesCollapse(t *testing.T) {
	edges, errs := ToEdgeSet([]model.Association{
		assoc("A", "relA", "B"),
		assoc("A", "relA", "B"),
	})
	assert.Empty(t, errs)
	assert.Equal(t, 1, edges.Len())
}

func TestToEdgeSet_CaseSensitive(t *testing.T) {
	edges, _ := ToEdgeSet([]model.Association{
		assoc("A", "relA", "B"),
		assoc("a", "relA", "B"),
	})
	assert.Equal(t, 2, edges.Len())
}

func TestToEdgeSet_SkipsMalformed(t *testing.T) {
	edges, errs := ToEdgeSet([]model.Association{
		assoc("A", "relA", "B"),
		{Subject: model.Term{ID: "A"}},
	})
	assert.Equal(t, 1, edges.Len())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrDataShape)
}

func TestToAttributedEdges_FirstMatchWins(t *testing.T) {
	first := assoc("A", "RO:1", "B")
	second := assoc("A", "RO:1", "B")
	second.Subject.Label = "other"
	noRel := assoc("B", "", "C")

	edges, _ := ToEdgeSet([]model.Association{first, second, noRel})
	attributed := ToAttributedEdges([]model.Association{first, second, noRel}, edges)

	require.Equal(t, 2, attributed.Len())
	for _, e := range attributed.Sorted() {
		switch e.SubjectID {
		case "A":
			assert.Equal(t, "A-label", e.SubjectLabel)
			assert.Equal(t, "RO:1-label", e.RelationLabel)
			assert.Equal(t, "B-label", e.ObjectLabel)
		case "B":
			assert.Empty(t, e.RelationLabel)
			assert.Equal(t, "C-label", e.ObjectLabel)
		}
	}
}

func TestToAttributedEdges_DropsUnmatched(t *testing.T) {
	edges := model.NewEdgeSet(model.EdgeTuple{SubjectID: "X", ObjectID: "Y", References: model.NoReferences})
	attributed := ToAttributedEdges([]model.Association{assoc("A", "RO:1", "B")}, edges)
	assert.Equal(t, 0, attributed.Len())
}
