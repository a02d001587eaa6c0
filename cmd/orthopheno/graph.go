package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agenthands/orthopheno/internal/core/model"
	"github.com/agenthands/orthopheno/internal/driver"
	"github.com/agenthands/orthopheno/internal/hypothesis"
	"github.com/agenthands/orthopheno/internal/server"
)

var (
	loadBatch int

	hypTopology string
	hypName     string
	hypPathway  int
	hypPheno    int
	hypFormat   string

	servePort string
)

var loadCmd = &cobra.Command{
	Use:   "load EDGES_JSON",
	Short: "Merge a network edge dump into Neo4j",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		edges, err := readEdges(args[0])
		if err != nil {
			return err
		}
		d, err := openGraph(ctx)
		if err != nil {
			return err
		}
		defer d.Close(ctx)

		stats, err := driver.NewLoader(d, loadBatch).LoadNetwork(ctx, edges)
		if err != nil {
			return err
		}
		return writeJSON("", stats)
	},
}

var hypothesisCmd = &cobra.Command{
	Use:   "hypothesis [GENE...]",
	Short: "Run the ortholog-phenotype path query between every ordered gene pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		genes, err := readIDs(args, genesFile)
		if err != nil {
			return err
		}
		d, err := openGraph(ctx)
		if err != nil {
			return err
		}
		defer d.Close(ctx)

		req := hypothesis.Request{
			Genes:              genes,
			Topology:           hypothesis.Topology(hypTopology),
			PathwayDegreeMax:   cfg.Hypothesis.PathwayDegreeMax,
			PhenotypeDegreeMax: cfg.Hypothesis.PhenotypeDegreeMax,
			Name:               hypName,
			Format:             hypothesis.Format(cfg.Hypothesis.Format),
		}
		if cmd.Flags().Changed("pathway-degree") {
			req.PathwayDegreeMax = hypPathway
		}
		if cmd.Flags().Changed("phenotype-degree") {
			req.PhenotypeDegreeMax = hypPheno
		}
		if hypFormat != "" {
			req.Format = hypothesis.Format(hypFormat)
		}

		report, err := hypothesis.NewRunner(d, cfg.Hypothesis.OutputDir).Run(ctx, req)
		if err != nil {
			return err
		}
		log.Info().
			Str("run", report.RunID).
			Int("queries", report.Queries).
			Int("failed", report.Failed).
			Int("dropped", report.Dropped).
			Str("output", report.OutputPath).
			Msg("hypothesis results saved")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve expansion and hypothesis queries over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		x, err := newExpander(cmd.Context())
		if err != nil {
			return err
		}
		d, err := openGraph(ctx)
		if err != nil {
			return err
		}
		defer d.Close(ctx)

		srv := server.NewServer(x, hypothesis.NewRunner(d, cfg.Hypothesis.OutputDir))
		srv.Metrics = metrics
		srv.Defaults = cfg.Hypothesis
		log.Info().Str("port", servePort).Msg("starting server")
		return srv.SetupRouter().Run(":" + servePort)
	},
}

func init() {
	loadCmd.Flags().IntVar(&loadBatch, "batch", 500, "rows per write statement")

	hypothesisCmd.Flags().StringVarP(&genesFile, "genes-file", "f", "", "file with one gene id per line")
	hypothesisCmd.Flags().StringVar(&hypTopology, "topology", string(hypothesis.Closed), "closed or open")
	hypothesisCmd.Flags().StringVar(&hypName, "name", "genes", "query name used in the output file name")
	hypothesisCmd.Flags().IntVar(&hypPathway, "pathway-degree", 0, "maximum degree of the physiology node (overrides config)")
	hypothesisCmd.Flags().IntVar(&hypPheno, "phenotype-degree", 0, "maximum degree of the disorder node (overrides config)")
	hypothesisCmd.Flags().StringVar(&hypFormat, "format", "", "json or yaml (overrides config)")

	serveCmd.Flags().StringVarP(&servePort, "port", "p", envOr("PORT", "8080"), "listen port")
}

func readEdges(path string) (model.AttributedEdgeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edges '%s': %w", path, err)
	}
	var rows []model.AttributedEdge
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse edges '%s': %w", path, err)
	}
	edges := make(model.AttributedEdgeSet, len(rows))
	for _, e := range rows {
		edges.Add(e)
	}
	return edges, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
