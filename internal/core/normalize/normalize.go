// Package normalize turns raw association records into canonical edges.
package normalize

import (
	"errors"
	"fmt"

	"github.com/agenthands/orthopheno/internal/core/model"
)

// ErrDataShape is returned for an association missing its subject or object id.
var ErrDataShape = errors.New("association is missing a required field")

// ToEdgeTuple extracts the dedup key of a single association.
func ToEdgeTuple(a model.Association) (model.EdgeTuple, error) {
	if a.Subject.ID == "" {
		return model.EdgeTuple{}, fmt.Errorf("%w: subject id", ErrDataShape)
	}
	if a.Object.ID == "" {
		return model.EdgeTuple{}, fmt.Errorf("%w: object id", ErrDataShape)
	}

	e := model.EdgeTuple{
		SubjectID:  a.Subject.ID,
		ObjectID:   a.Object.ID,
		References: model.ReferenceString(a.Publications),
	}
	if a.Relation != nil {
		e.Relation = model.RelationOf(a.Relation.ID)
	}
	return e, nil
}

// ToEdgeSet normalizes every association. Records that fail ToEdgeTuple are
// left out and their errors returned alongside the set.
func ToEdgeSet(assocs []model.Association) (model.EdgeSet, []error) {
	edges := make(model.EdgeSet, len(assocs))
	var errs []error
	for i, a := range assocs {
		e, err := ToEdgeTuple(a)
		if err != nil {
			errs = append(errs, fmt.Errorf("association %d: %w", i, err))
			continue
		}
		edges.Add(e)
	}
	return edges, errs
}

// ToAttributedEdges attaches labels to each edge from the first raw record
// whose subject, relation and object ids match. Edges with no matching
// record are dropped.
func ToAttributedEdges(raw []model.Association, edges model.EdgeSet) model.AttributedEdgeSet {
	out := make(model.AttributedEdgeSet, len(edges))
	for e := range edges {
		for _, a := range raw {
			if a.Subject.ID != e.SubjectID || a.Object.ID != e.ObjectID || relationOf(a) != e.Relation {
				continue
			}
			ae := model.AttributedEdge{
				EdgeTuple:    e,
				SubjectLabel: a.Subject.Label,
				ObjectLabel:  a.Object.Label,
			}
			if a.Relation != nil {
				ae.RelationLabel = a.Relation.Label
			}
			out.Add(ae)
			break
		}
	}
	return out
}

func relationOf(a model.Association) model.Relation {
	if a.Relation == nil {
		return model.Relation{}
	}
	return model.RelationOf(a.Relation.ID)
}
