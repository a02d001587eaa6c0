package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// NoReferences stands in for the reference list of an association that
// carries no publications.
const NoReferences = "NA"

// Publication is a literature reference attached to an association.
type Publication struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Association is one raw record returned by the association service.
// Relation is nil when the service returns no relation for the record.
type Association struct {
	Subject      Term          `json:"subject"`
	Relation     *Term         `json:"relation"`
	Object       Term          `json:"object"`
	Publications []Publication `json:"publications"`
}

// Relation is the optional relation id of an edge. The zero value is the
// absent relation.
type Relation struct {
	ID      string
	Present bool
}

func RelationOf(id string) Relation {
	return Relation{ID: id, Present: true}
}

func (r Relation) String() string {
	if !r.Present {
		return ""
	}
	return r.ID
}

// EdgeTuple is the canonical identity of an edge. Two associations with the
// same tuple collapse to one edge.
type EdgeTuple struct {
	SubjectID  string
	Relation   Relation
	ObjectID   string
	References string
}

// ReferenceString joins publication ids in the order given, or returns
// NoReferences when there are none.
func ReferenceString(pubs []Publication) string {
	if len(pubs) == 0 {
		return NoReferences
	}
	ids := make([]string, 0, len(pubs))
	for _, p := range pubs {
		ids = append(ids, p.ID)
	}
	return strings.Join(ids, "|")
}

// AttributedEdge is an EdgeTuple carrying the human readable labels of its
// endpoints and relation.
type AttributedEdge struct {
	EdgeTuple
	SubjectLabel  string
	RelationLabel string
	ObjectLabel   string
}

// edgeRow is the flat form handed to the CSV tooling downstream.
type edgeRow struct {
	SubjectID     string  `json:"subject_id"`
	SubjectLabel  string  `json:"subject_label,omitempty"`
	RelationID    *string `json:"relation_id"`
	RelationLabel string  `json:"relation_label,omitempty"`
	ObjectID      string  `json:"object_id"`
	ObjectLabel   string  `json:"object_label,omitempty"`
	References    string  `json:"reference_id_list"`
}

func (e EdgeTuple) row() edgeRow {
	r := edgeRow{SubjectID: e.SubjectID, ObjectID: e.ObjectID, References: e.References}
	if e.Relation.Present {
		id := e.Relation.ID
		r.RelationID = &id
	}
	return r
}

func (e EdgeTuple) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.row())
}

func (e AttributedEdge) MarshalJSON() ([]byte, error) {
	r := e.EdgeTuple.row()
	r.SubjectLabel = e.SubjectLabel
	r.RelationLabel = e.RelationLabel
	r.ObjectLabel = e.ObjectLabel
	return json.Marshal(r)
}

// UnmarshalJSON reads the flat row written by MarshalJSON, so saved networks
// can be loaded again.
func (e *AttributedEdge) UnmarshalJSON(data []byte) error {
	var r edgeRow
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = AttributedEdge{
		EdgeTuple: EdgeTuple{
			SubjectID:  r.SubjectID,
			ObjectID:   r.ObjectID,
			References: r.References,
		},
		SubjectLabel:  r.SubjectLabel,
		RelationLabel: r.RelationLabel,
		ObjectLabel:   r.ObjectLabel,
	}
	if r.RelationID != nil {
		e.Relation = RelationOf(*r.RelationID)
	}
	return nil
}

// EdgeSet is an unordered set of edge tuples.
type EdgeSet map[EdgeTuple]struct{}

func NewEdgeSet(edges ...EdgeTuple) EdgeSet {
	s := make(EdgeSet, len(edges))
	for _, e := range edges {
		s[e] = struct{}{}
	}
	return s
}

func (s EdgeSet) Add(e EdgeTuple) {
	s[e] = struct{}{}
}

func (s EdgeSet) Has(e EdgeTuple) bool {
	_, ok := s[e]
	return ok
}

func (s EdgeSet) Len() int {
	return len(s)
}

// Union returns a new set holding the members of s and every other set.
func (s EdgeSet) Union(others ...EdgeSet) EdgeSet {
	out := make(EdgeSet, len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	for _, o := range others {
		for e := range o {
			out[e] = struct{}{}
		}
	}
	return out
}

// Sorted returns the tuples ordered by subject, relation, object, references.
func (s EdgeSet) Sorted() []EdgeTuple {
	out := make([]EdgeTuple, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return lessTuple(out[i], out[j]) })
	return out
}

// AttributedEdgeSet is an unordered set of attributed edges.
type AttributedEdgeSet map[AttributedEdge]struct{}

func (s AttributedEdgeSet) Add(e AttributedEdge) {
	s[e] = struct{}{}
}

func (s AttributedEdgeSet) Len() int {
	return len(s)
}

// Union returns a new set holding the members of s and every other set.
func (s AttributedEdgeSet) Union(others ...AttributedEdgeSet) AttributedEdgeSet {
	out := make(AttributedEdgeSet, len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	for _, o := range others {
		for e := range o {
			out[e] = struct{}{}
		}
	}
	return out
}

// Nodes returns every endpoint of the set.
func (s AttributedEdgeSet) Nodes() NodeSet {
	nodes := make(NodeSet)
	for e := range s {
		nodes.Add(e.SubjectID)
		nodes.Add(e.ObjectID)
	}
	return nodes
}

func (s AttributedEdgeSet) Sorted() []AttributedEdge {
	out := make([]AttributedEdge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EdgeTuple != out[j].EdgeTuple {
			return lessTuple(out[i].EdgeTuple, out[j].EdgeTuple)
		}
		return out[i].SubjectLabel+out[i].RelationLabel+out[i].ObjectLabel <
			out[j].SubjectLabel+out[j].RelationLabel+out[j].ObjectLabel
	})
	return out
}

func lessTuple(a, b EdgeTuple) bool {
	if a.SubjectID != b.SubjectID {
		return a.SubjectID < b.SubjectID
	}
	if a.Relation != b.Relation {
		if a.Relation.Present != b.Relation.Present {
			return !a.Relation.Present
		}
		return a.Relation.ID < b.Relation.ID
	}
	if a.ObjectID != b.ObjectID {
		return a.ObjectID < b.ObjectID
	}
	return a.References < b.References
}
