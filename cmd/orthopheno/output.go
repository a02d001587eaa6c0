package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/orthopheno/internal/core/expand"
	"github.com/agenthands/orthopheno/internal/core/model"
)

var errNoInput = errors.New("no node ids given: pass them as arguments or with --genes-file")

// readIDs returns the ids from args followed by those of file, in order.
// Blank lines and lines starting with # are skipped.
func readIDs(args []string, file string) ([]string, error) {
	ids := append([]string{}, args...)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open genes file '%s': %w", file, err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ids = append(ids, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read genes file '%s': %w", file, err)
		}
	}
	if len(ids) == 0 {
		return nil, errNoInput
	}
	return ids, nil
}

func seedFrom(args []string, file string) (model.NodeSet, error) {
	ids, err := readIDs(args, file)
	if err != nil {
		return nil, err
	}
	return model.NewNodeSet(ids...), nil
}

// writeJSON writes v indented to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create '%s': %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}

type nodeRow struct {
	ID        string `json:"id"`
	PrefLabel string `json:"preflabel"`
	Group     string `json:"semantic_group"`
	Seed      bool   `json:"seed"`
}

// nodeRows lists every node of the network with the first label an edge
// gives it.
func nodeRows(net expand.Network) []nodeRow {
	labels := make(map[string]string, net.Nodes.Len())
	for _, e := range net.Edges.Sorted() {
		if labels[e.SubjectID] == "" {
			labels[e.SubjectID] = e.SubjectLabel
		}
		if labels[e.ObjectID] == "" {
			labels[e.ObjectID] = e.ObjectLabel
		}
	}

	nodes := net.Nodes.Union(net.Edges.Nodes())
	rows := make([]nodeRow, 0, nodes.Len())
	for _, id := range nodes.Sorted() {
		rows = append(rows, nodeRow{
			ID:        id,
			PrefLabel: labels[id],
			Group:     model.SemanticGroup(id),
			Seed:      net.Seed.Has(id),
		})
	}
	return rows
}
