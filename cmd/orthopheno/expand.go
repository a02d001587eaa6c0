package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agenthands/orthopheno/internal/core/expand"
	"github.com/agenthands/orthopheno/internal/driver"
)

var (
	genesFile   string
	outPath     string
	networkMode string
	networkDir  string
	networkName string
	networkLoad bool
)

var neighboursCmd = &cobra.Command{
	Use:   "neighbours [GENE...]",
	Short: "List the first layer of biologically relevant neighbours",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := seedFrom(args, genesFile)
		if err != nil {
			return err
		}
		x, err := newExpander(cmd.Context())
		if err != nil {
			return err
		}
		nodes, failures, err := x.Neighbours(cmd.Context(), seed)
		if err != nil {
			return err
		}
		reportFailures(failures)
		return writeJSON(outPath, nodes.Sorted())
	},
}

var orthophenoCmd = &cobra.Command{
	Use:   "orthopheno [GENE...]",
	Short: "Expand seed genes to their orthologs and the orthologs' phenotypes",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := seedFrom(args, genesFile)
		if err != nil {
			return err
		}
		x, err := newExpander(cmd.Context())
		if err != nil {
			return err
		}
		op, err := x.OrthoPheno(cmd.Context(), seed)
		if err != nil {
			return err
		}
		reportFailures(op.Failures)
		return writeJSON(outPath, map[string][]string{
			"orthologs":  op.Orthologs.Sorted(),
			"phenotypes": op.Phenotypes.Sorted(),
			"nodes":      op.Nodes.Sorted(),
		})
	},
}

var connectionsCmd = &cobra.Command{
	Use:   "connections [NODE...]",
	Short: "Extract every edge among a set of nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		universe, err := seedFrom(args, genesFile)
		if err != nil {
			return err
		}
		x, err := newExpander(cmd.Context())
		if err != nil {
			return err
		}
		res, err := x.Connections(cmd.Context(), universe)
		if err != nil {
			return err
		}
		reportFailures(res.Failures)
		return writeJSON(outPath, res.Edges.Sorted())
	},
}

var networkCmd = &cobra.Command{
	Use:   "network [GENE...]",
	Short: "Build the closed network around seed genes and dump its edges and nodes",
	Long: `network expands the seed genes (ortholog/phenotype layers by default, or
plain neighbours with --mode neighbours), closes the resulting node set and
writes {name}_edges.json and {name}_nodes.json. With --load the network is
also merged into Neo4j.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		seed, err := seedFrom(args, genesFile)
		if err != nil {
			return err
		}
		x, err := newExpander(ctx)
		if err != nil {
			return err
		}

		var net expand.Network
		switch networkMode {
		case "orthopheno":
			net, err = x.OrthoPhenoNetwork(ctx, seed)
		case "neighbours":
			net, err = x.NeighbourNetwork(ctx, seed)
		default:
			return fmt.Errorf("unknown mode %q", networkMode)
		}
		if err != nil {
			return err
		}
		reportFailures(net.Failures)

		edgesPath := filepath.Join(networkDir, networkName+"_edges.json")
		nodesPath := filepath.Join(networkDir, networkName+"_nodes.json")
		if err := writeJSON(edgesPath, net.Edges.Sorted()); err != nil {
			return err
		}
		if err := writeJSON(nodesPath, nodeRows(net)); err != nil {
			return err
		}
		log.Info().
			Int("nodes", net.Nodes.Len()).
			Int("edges", net.Edges.Len()).
			Str("edges_file", edgesPath).
			Str("nodes_file", nodesPath).
			Msg("network written")

		if !networkLoad {
			return nil
		}
		d, err := openGraph(ctx)
		if err != nil {
			return err
		}
		defer d.Close(ctx)
		_, err = driver.NewLoader(d, 0).LoadNetwork(ctx, net.Edges)
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{neighboursCmd, orthophenoCmd, connectionsCmd, networkCmd} {
		c.Flags().StringVarP(&genesFile, "genes-file", "f", "", "file with one node id per line")
	}
	for _, c := range []*cobra.Command{neighboursCmd, orthophenoCmd, connectionsCmd} {
		c.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	}

	networkCmd.Flags().StringVar(&networkMode, "mode", "orthopheno", "expansion mode: orthopheno or neighbours")
	networkCmd.Flags().StringVar(&networkDir, "out-dir", ".", "directory for the edge and node dumps")
	networkCmd.Flags().StringVar(&networkName, "name", "network", "file name prefix")
	networkCmd.Flags().BoolVar(&networkLoad, "load", false, "merge the network into Neo4j")
}

func reportFailures(failures []expand.NodeFailure) {
	for _, f := range failures {
		log.Warn().Str("node", f.NodeID).Str("kind", string(f.Kind)).Msg(f.Error)
	}
	if len(failures) > 0 {
		log.Warn().Int("failures", len(failures)).Msg("some nodes were skipped")
	}
}
