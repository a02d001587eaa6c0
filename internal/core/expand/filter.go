package expand

import (
	"github.com/agenthands/orthopheno/internal/core/model"
)

// provenanceRelations link an entity to its sources rather than to another
// biological entity.
var provenanceRelations = map[string]struct{}{
	"dc:source":   {},
	"IAO:0000136": {}, // is about
	"IAO:0000142": {}, // mentions
}

// IsBiologicallyRelevant reports whether an edge may contribute nodes to a
// neighbourhood: neither endpoint is a publication and the relation is not a
// provenance link. An edge without a relation is relevant.
func IsBiologicallyRelevant(e model.EdgeTuple) bool {
	if model.IsPublication(e.SubjectID) || model.IsPublication(e.ObjectID) {
		return false
	}
	if !e.Relation.Present {
		return true
	}
	_, provenance := provenanceRelations[e.Relation.ID]
	return !provenance
}

// Candidates returns the endpoints of relevant edges that are not in seed.
func Candidates(edges model.EdgeSet, seed model.NodeSet) model.NodeSet {
	out := make(model.NodeSet)
	for e := range edges {
		if !IsBiologicallyRelevant(e) {
			continue
		}
		if !seed.Has(e.SubjectID) {
			out.Add(e.SubjectID)
		}
		if !seed.Has(e.ObjectID) {
			out.Add(e.ObjectID)
		}
	}
	return out
}

// Kind selects a relation vocabulary for Classify.
type Kind int

const (
	Ortholog Kind = iota
	Phenotype
)

func (k Kind) String() string {
	switch k {
	case Ortholog:
		return "ortholog"
	case Phenotype:
		return "phenotype"
	}
	return "unknown"
}

var relationVocabulary = map[Kind]map[string]struct{}{
	Ortholog: {
		"RO:HOM0000017": {}, // in orthology relationship with
		"RO:HOM0000020": {}, // in 1 to 1 orthology relationship with
	},
	Phenotype: {
		"RO:0002200":   {}, // has phenotype
		"RO:0002607":   {}, // is marker for
		"RO:0002326":   {}, // contributes to
		"GENO:0000840": {}, // is pathogenic for
	},
}

// Matches reports whether the relation of e belongs to the vocabulary of k.
func (k Kind) Matches(e model.EdgeTuple) bool {
	if !e.Relation.Present {
		return false
	}
	_, ok := relationVocabulary[k][e.Relation.ID]
	return ok
}

// Classify returns the endpoints outside seed of every edge whose relation
// belongs to kind.
func Classify(edges model.EdgeSet, seed model.NodeSet, kind Kind) model.NodeSet {
	out := make(model.NodeSet)
	for e := range edges {
		if !kind.Matches(e) {
			continue
		}
		if !seed.Has(e.SubjectID) {
			out.Add(e.SubjectID)
		}
		if !seed.Has(e.ObjectID) {
			out.Add(e.ObjectID)
		}
	}
	return out
}

// ClosureFilter keeps the edges whose endpoints are both in universe.
func ClosureFilter(universe model.NodeSet, edges model.EdgeSet) model.EdgeSet {
	out := make(model.EdgeSet)
	for e := range edges {
		if universe.Has(e.SubjectID) && universe.Has(e.ObjectID) {
			out.Add(e)
		}
	}
	return out
}
