package model

import (
	"sort"
	"strings"
)

// PublicationPrefix is the namespace of literature nodes. They are never
// biological entities and are kept out of every node set.
const PublicationPrefix = "PMID"

// Term is an id/label pair as returned by the association service for
// subjects, objects and relations.
type Term struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Prefix returns the namespace part of a CURIE ("HGNC" for "HGNC:17646").
// An id without a colon is its own prefix.
func Prefix(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}

// IsPublication reports whether id belongs to the literature namespace.
func IsPublication(id string) bool {
	return Prefix(id) == PublicationPrefix
}

// NodeSet is an unordered set of node ids.
type NodeSet map[string]struct{}

func NewNodeSet(ids ...string) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s NodeSet) Add(id string) {
	s[id] = struct{}{}
}

func (s NodeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s NodeSet) Len() int {
	return len(s)
}

// Union returns a new set holding the members of s and every other set.
func (s NodeSet) Union(others ...NodeSet) NodeSet {
	out := make(NodeSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, o := range others {
		for id := range o {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s NodeSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Semantic groups used as node labels in the graph database.
const (
	GroupGene       = "GENE"
	GroupDisorder   = "DISO"
	GroupPhysiology = "PHYS"
	GroupAnatomy    = "ANAT"
	GroupVariant    = "VARI"
	GroupGenotype   = "GENO"
	GroupConcept    = "CONC"
)

// SemanticGroup maps the CURIE prefix of id to the semantic group used to
// label concept nodes. Matching is on the lower-cased prefix and the first
// rule that applies wins.
func SemanticGroup(id string) string {
	p := strings.ToLower(Prefix(id))
	switch {
	case strings.Contains(p, "variant"):
		return GroupVariant
	case containsAny(p, "phenotype", "mondo", "omim", "doid", "mesh", "hp", "mp", "fbcv", "fbbt", "zp", "apo", "trait"):
		return GroupDisorder
	case containsAny(p, "gene", "hgnc", "ensembl", "mgi", "flybase", "wormbase", "xenbase", "zfin", "rgd", "sgd"):
		return GroupGene
	case containsAny(p, "react", "kegg-path", "go"):
		return GroupPhysiology
	case containsAny(p, "uberon", "cl"):
		return GroupAnatomy
	case containsAny(p, "geno", "coriell", "monarch", "mmrrc", "bnode"):
		return GroupGenotype
	}
	return GroupConcept
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
