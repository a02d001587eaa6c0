package driver

import (
	"fmt"
	"strings"
)

// OrthologRelation types the ortholog hops of the hypothesis topology.
const OrthologRelation = "RO:HOM0000020"

// HypothesisTopology is the gene → ortholog → disorder → ortholog →
// physiology → gene pattern between a source and a target gene.
const HypothesisTopology = "(source)-[:`" + OrthologRelation + "`]-(:GENE)--(ds:DISO)--(:GENE)-[:`" + OrthologRelation + "`]-(:GENE)--(pw:PHYS)--(target)"

const (
	// ClosedHypothesisQuery keeps simple paths whose disorder and physiology
	// nodes stay under the degree limits and that avoid generic concepts and
	// promiscuous relations.
	ClosedHypothesisQuery = `
		MATCH (source:GENE {id: $source}), (target:GENE {id: $target})
		MATCH path = ` + HypothesisTopology + `
		WHERE ALL(x IN nodes(path) WHERE single(y IN nodes(path) WHERE y = x))
		WITH path, COUNT { (pw)--() } AS pw_degree, COUNT { (ds)--() } AS ds_degree
		WHERE pw_degree <= $pw_degree
			AND ds_degree <= $ds_degree
			AND none(n IN nodes(path) WHERE n.preflabel IN $excluded_nodes)
			AND none(r IN relationships(path) WHERE r.property_label IN $excluded_edges)
		RETURN path, pw_degree, ds_degree
	`

	OpenHypothesisQuery = `
		MATCH (source:GENE {id: $source}), (target:GENE {id: $target})
		MATCH path = ` + HypothesisTopology + `
		RETURN path
	`
)

// MergeConceptsQuery creates or updates the concept nodes of one semantic
// group.
func MergeConceptsQuery(group string) string {
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (n:%s {id: row.id})
		SET n.preflabel = row.preflabel,
			n.name = coalesce(n.name, row.preflabel),
			n.description = coalesce(n.description, 'NA')
		RETURN count(n) AS merged
	`, quoteName(group))
}

// MergeStatementsQuery creates the relationships of one relation type between
// nodes of the given subject and object groups.
func MergeStatementsQuery(subjectGroup, relType, objectGroup string) string {
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (s:%s {id: row.subject_id})
		MATCH (o:%s {id: row.object_id})
		MERGE (s)-[r:%s {reference_uri: row.references}]->(o)
		SET r.property_label = row.property_label,
			r.property_id = row.property_id
		RETURN count(r) AS merged
	`, quoteName(subjectGroup), quoteName(objectGroup), quoteName(relType))
}

// quoteName escapes a label or relationship type for use in a statement.
// Labels and types cannot be bound as parameters.
func quoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
