package hypothesis

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/orthopheno/internal/core/model"
)

// parseRecords converts query records into path records. For the closed
// topology, paths that repeat a node or exceed a degree limit are dropped and
// counted.
func parseRecords(records []*neo4j.Record, req Request) ([]model.PathRecord, int, error) {
	paths := make([]model.PathRecord, 0, len(records))
	dropped := 0
	for i, rec := range records {
		raw, ok := rec.Get("path")
		if !ok {
			return nil, 0, fmt.Errorf("record %d has no path", i)
		}
		p, ok := raw.(neo4j.Path)
		if !ok {
			return nil, 0, fmt.Errorf("record %d: path has type %T", i, raw)
		}

		path := ParsePath(p)
		if req.Topology == Closed && !withinLimits(rec, path, req) {
			dropped++
			continue
		}
		paths = append(paths, path)
	}
	return paths, dropped, nil
}

// ParsePath extracts node and relationship attributes from a path.
func ParsePath(p neo4j.Path) model.PathRecord {
	out := model.PathRecord{
		Nodes: make([]model.NodeRecord, 0, len(p.Nodes)),
		Edges: make([]model.EdgeRecord, 0, len(p.Relationships)),
	}
	for _, n := range p.Nodes {
		label := ""
		if len(n.Labels) > 0 {
			label = n.Labels[0]
		}
		out.Nodes = append(out.Nodes, model.NodeRecord{
			Idx:         n.ElementId,
			Label:       label,
			ID:          prop(n.Props, "id"),
			PrefLabel:   prop(n.Props, "preflabel"),
			Name:        prop(n.Props, "name"),
			Description: prop(n.Props, "description"),
		})
	}
	for _, r := range p.Relationships {
		out.Edges = append(out.Edges, model.EdgeRecord{
			Idx:        r.ElementId,
			StartNode:  r.StartElementId,
			EndNode:    r.EndElementId,
			Type:       r.Type,
			PrefLabel:  prop(r.Props, "property_label"),
			References: prop(r.Props, "reference_uri"),
		})
	}
	return out
}

// IsSimple reports whether no node occurs twice in the path.
func IsSimple(p model.PathRecord) bool {
	seen := make(map[string]struct{}, len(p.Nodes))
	for _, n := range p.Nodes {
		key := n.ID
		if key == "" {
			key = n.Idx
		}
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func withinLimits(rec *neo4j.Record, p model.PathRecord, req Request) bool {
	if !IsSimple(p) {
		return false
	}
	if d, ok := degree(rec, "pw_degree"); ok && d > int64(req.PathwayDegreeMax) {
		return false
	}
	if d, ok := degree(rec, "ds_degree"); ok && d > int64(req.PhenotypeDegreeMax) {
		return false
	}
	return true
}

func degree(rec *neo4j.Record, key string) (int64, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, false
	}
	d, ok := v.(int64)
	return d, ok
}

func prop(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
