package model

// NodeRecord is one node of a matched hypothesis path.
type NodeRecord struct {
	Idx         string `json:"idx" yaml:"idx"`
	Label       string `json:"label" yaml:"label"`
	ID          string `json:"id" yaml:"id"`
	PrefLabel   string `json:"preflabel" yaml:"preflabel"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// EdgeRecord is one relationship of a matched hypothesis path. StartNode and
// EndNode refer to NodeRecord.Idx values.
type EdgeRecord struct {
	Idx        string `json:"idx" yaml:"idx"`
	StartNode  string `json:"start_node" yaml:"start_node"`
	EndNode    string `json:"end_node" yaml:"end_node"`
	Type       string `json:"type" yaml:"type"`
	PrefLabel  string `json:"preflabel" yaml:"preflabel"`
	References string `json:"references" yaml:"references"`
}

type PathRecord struct {
	Nodes []NodeRecord `json:"Nodes" yaml:"Nodes"`
	Edges []EdgeRecord `json:"Edges" yaml:"Edges"`
}

// PairResult holds every path found between one ordered gene pair. Error is
// set when the query for the pair failed.
type PairResult struct {
	Source string       `json:"source" yaml:"source"`
	Target string       `json:"target" yaml:"target"`
	Paths  []PathRecord `json:"paths" yaml:"paths"`
	Error  string       `json:"error,omitempty" yaml:"error,omitempty"`
}
