// Package hypothesis runs the ortho-pheno path query between every ordered
// pair of a gene list and checkpoints the results to disk.
package hypothesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenthands/orthopheno/internal/core/model"
	"github.com/agenthands/orthopheno/internal/driver"
)

var (
	ErrNoGenes  = errors.New("hypothesis: at least two distinct genes are required")
	ErrTopology = errors.New("hypothesis: unknown topology")
	ErrName     = errors.New("hypothesis: query name must be a plain file name component")
)

type Topology string

const (
	// Closed applies path simplicity, hub suppression and the exclusion lists.
	Closed Topology = "closed"
	// Open returns every match of the bare topology.
	Open Topology = "open"
)

// ExcludedNodeLabels are generic concepts that make a path uninformative.
var ExcludedNodeLabels = []string{
	"cytoplasm", "cytosol", "nucleus", "metabolism", "membrane",
	"protein binding", "visible", "viable", "phenotype",
}

// ExcludedEdgeLabels are promiscuous relations that make a path uninformative.
var ExcludedEdgeLabels = []string{
	"interacts with", "in paralogy relationship with",
	"in orthology relationship with", "colocalizes with",
}

type Request struct {
	Genes              []string `json:"genes"`
	Topology           Topology `json:"topology"`
	PathwayDegreeMax   int      `json:"pathway_degree_max"`
	PhenotypeDegreeMax int      `json:"phenotype_degree_max"`
	Name               string   `json:"name"`
	Format             Format   `json:"format"`
}

type Report struct {
	RunID      string             `json:"run_id"`
	OutputPath string             `json:"output_path"`
	Queries    int                `json:"queries"`
	Failed     int                `json:"failed"`
	Dropped    int                `json:"dropped"`
	Results    []model.PairResult `json:"results"`
}

// State is the position of a runner within the current pair.
type State int32

const (
	Idle State = iota
	BuildingQuery
	Executing
	ParsingResults
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BuildingQuery:
		return "building_query"
	case Executing:
		return "executing"
	case ParsingResults:
		return "parsing_results"
	case Done:
		return "done"
	}
	return "unknown"
}

type Runner struct {
	driver    driver.GraphDriver
	outputDir string
	now       func() time.Time
	state     atomic.Int32
	logger    zerolog.Logger
	tracer    trace.Tracer
}

func NewRunner(d driver.GraphDriver, outputDir string) *Runner {
	return &Runner{
		driver:    d,
		outputDir: outputDir,
		now:       time.Now,
		logger:    log.With().Str("component", "hypothesis").Logger(),
		tracer:    otel.Tracer("github.com/agenthands/orthopheno/internal/hypothesis"),
	}
}

func (r *Runner) State() State {
	return State(r.state.Load())
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Debug().Str("state", s.String()).Msg("state changed")
}

// Run queries every ordered pair of distinct genes. The accumulated results
// are written to disk after each pair. A failing pair query is recorded on
// its result and the run goes on; a failing checkpoint write or a cancelled
// context stops it.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	genes := distinct(req.Genes)
	if len(genes) < 2 {
		return Report{}, ErrNoGenes
	}
	if req.Topology == "" {
		req.Topology = Closed
	}
	if req.Topology != Closed && req.Topology != Open {
		return Report{}, fmt.Errorf("%w: %q", ErrTopology, req.Topology)
	}
	if req.Format == "" {
		req.Format = FormatJSON
	}
	if err := validName(req.Name); err != nil {
		return Report{}, err
	}

	cp, err := newCheckpoint(r.outputDir, FileName(req, r.now()), req.Format)
	if err != nil {
		return Report{}, err
	}

	report := Report{RunID: uuid.NewString(), OutputPath: cp.path}
	logger := r.logger.With().Str("run", report.RunID).Logger()
	logger.Info().
		Int("genes", len(genes)).
		Str("topology", string(req.Topology)).
		Str("output", cp.path).
		Msg("hypothesis query started")

	defer r.setState(Done)
	for _, source := range genes {
		for _, target := range genes {
			if source == target {
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}

			res, dropped, err := r.queryPair(ctx, req, source, target)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return report, ctxErr
				}
				logger.Error().Err(err).Str("source", source).Str("target", target).Msg("pair query failed")
				res.Error = err.Error()
				report.Failed++
			}
			report.Queries++
			report.Dropped += dropped
			report.Results = append(report.Results, res)

			if err := cp.Write(report.Results); err != nil {
				return report, err
			}
			logger.Info().
				Str("source", source).
				Str("target", target).
				Int("paths", len(res.Paths)).
				Msg("pair done")
		}
	}

	logger.Info().Int("queries", report.Queries).Int("failed", report.Failed).Msg("hypothesis query finished")
	return report, nil
}

func (r *Runner) queryPair(ctx context.Context, req Request, source, target string) (model.PairResult, int, error) {
	res := model.PairResult{Source: source, Target: target, Paths: []model.PathRecord{}}

	ctx, span := r.tracer.Start(ctx, "hypothesis.Pair", trace.WithAttributes(
		attribute.String("source", source),
		attribute.String("target", target),
		attribute.String("topology", string(req.Topology)),
	))
	defer span.End()

	r.setState(BuildingQuery)
	query, params := BuildQuery(req, source, target)

	r.setState(Executing)
	result, err := r.driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, 0, err
	}

	r.setState(ParsingResults)
	paths, dropped, err := parseRecords(result.Records, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, 0, err
	}
	if dropped > 0 {
		r.logger.Warn().Str("source", source).Str("target", target).Int("dropped", dropped).
			Msg("dropped paths violating closed topology constraints")
	}
	res.Paths = paths
	span.SetAttributes(attribute.Int("paths", len(paths)))
	return res, dropped, nil
}

// BuildQuery returns the statement and bound parameters for one pair.
func BuildQuery(req Request, source, target string) (string, map[string]interface{}) {
	params := map[string]interface{}{
		"source": source,
		"target": target,
	}
	if req.Topology == Open {
		return driver.OpenHypothesisQuery, params
	}
	params["pw_degree"] = req.PathwayDegreeMax
	params["ds_degree"] = req.PhenotypeDegreeMax
	params["excluded_nodes"] = ExcludedNodeLabels
	params["excluded_edges"] = ExcludedEdgeLabels
	return driver.ClosedHypothesisQuery, params
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// validName keeps the output file inside the output directory.
func validName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrName, name)
	}
	return nil
}
