package driver

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agenthands/orthopheno/internal/core/model"
)

// MissingRelationType types relationships for edges that carry no relation.
const MissingRelationType = "NA"

const defaultBatchSize = 500

// Loader writes a closed network into the graph database: one node per
// concept labelled by semantic group and one relationship per edge typed by
// relation id.
type Loader struct {
	driver    GraphDriver
	batchSize int
	logger    zerolog.Logger
}

func NewLoader(driver GraphDriver, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Loader{
		driver:    driver,
		batchSize: batchSize,
		logger:    log.With().Str("component", "loader").Logger(),
	}
}

type LoadStats struct {
	Concepts   int `json:"concepts"`
	Statements int `json:"statements"`
}

type statementKey struct {
	subjectGroup string
	relType      string
	objectGroup  string
}

// LoadNetwork merges every concept and statement of edges. Statements are
// written after all concepts so both endpoints exist when matched.
func (l *Loader) LoadNetwork(ctx context.Context, edges model.AttributedEdgeSet) (LoadStats, error) {
	var stats LoadStats

	concepts := make(map[string]map[string]string) // group -> id -> preflabel
	statements := make(map[statementKey][]interface{})

	for _, e := range edges.Sorted() {
		sg, og := model.SemanticGroup(e.SubjectID), model.SemanticGroup(e.ObjectID)
		addConcept(concepts, sg, e.SubjectID, e.SubjectLabel)
		addConcept(concepts, og, e.ObjectID, e.ObjectLabel)

		relType := MissingRelationType
		if e.Relation.Present {
			relType = e.Relation.ID
		}
		key := statementKey{subjectGroup: sg, relType: relType, objectGroup: og}
		statements[key] = append(statements[key], map[string]interface{}{
			"subject_id":     e.SubjectID,
			"object_id":      e.ObjectID,
			"references":     e.References,
			"property_id":    relType,
			"property_label": e.RelationLabel,
		})
	}

	for _, group := range sortedKeys(concepts) {
		ids := concepts[group]
		rows := make([]interface{}, 0, len(ids))
		for _, id := range sortedKeys(ids) {
			rows = append(rows, map[string]interface{}{"id": id, "preflabel": ids[id]})
		}
		if err := l.write(ctx, MergeConceptsQuery(group), rows); err != nil {
			return stats, fmt.Errorf("failed to merge %s concepts: %w", group, err)
		}
		stats.Concepts += len(rows)
	}

	keys := make([]statementKey, 0, len(statements))
	for k := range statements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	for _, k := range keys {
		rows := statements[k]
		if err := l.write(ctx, MergeStatementsQuery(k.subjectGroup, k.relType, k.objectGroup), rows); err != nil {
			return stats, fmt.Errorf("failed to merge %s statements: %w", k.relType, err)
		}
		stats.Statements += len(rows)
	}

	l.logger.Info().Int("concepts", stats.Concepts).Int("statements", stats.Statements).Msg("network loaded")
	return stats, nil
}

func (l *Loader) write(ctx context.Context, query string, rows []interface{}) error {
	for start := 0; start < len(rows); start += l.batchSize {
		end := start + l.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := l.driver.ExecuteQuery(ctx, query, map[string]interface{}{"rows": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

func addConcept(concepts map[string]map[string]string, group, id, label string) {
	ids, ok := concepts[group]
	if !ok {
		ids = make(map[string]string)
		concepts[group] = ids
	}
	if cur, seen := ids[id]; seen && cur != "" {
		return
	}
	ids[id] = label
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
