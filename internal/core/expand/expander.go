// Package expand discovers the neighbourhood of a seed gene set through the
// association service and closes it into a subgraph.
package expand

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/orthopheno/internal/core/model"
	"github.com/agenthands/orthopheno/internal/core/normalize"
	"github.com/agenthands/orthopheno/internal/monarch"
)

// Fetcher returns the associations of a node.
type Fetcher interface {
	Fetch(ctx context.Context, nodeID string, rows int) (monarch.FetchResult, error)
}

type Options struct {
	// NeighbourRows caps associations per direction while expanding.
	NeighbourRows int
	// ConnectionRows caps associations per direction while closing a universe.
	ConnectionRows int
	// Workers bounds the number of nodes fetched at once.
	Workers int
	Logger  *zerolog.Logger
}

// NodeFailure records a node skipped because its associations could not be
// fetched.
type NodeFailure struct {
	NodeID string              `json:"node_id"`
	Kind   monarch.FailureKind `json:"kind"`
	Error  string              `json:"error"`
}

type Expander struct {
	fetcher Fetcher
	opts    Options
	logger  zerolog.Logger
	tracer  trace.Tracer
}

func New(fetcher Fetcher, opts Options) *Expander {
	if opts.NeighbourRows <= 0 {
		opts.NeighbourRows = 2000
	}
	if opts.ConnectionRows <= 0 {
		opts.ConnectionRows = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := log.With().Str("component", "expand").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Expander{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		tracer:  otel.Tracer("github.com/agenthands/orthopheno/internal/core/expand"),
	}
}

// Result of one neighbourhood expansion. Edges holds every edge discovered,
// Candidates only the new nodes reachable through relevant edges.
type Result struct {
	Candidates model.NodeSet
	Edges      model.EdgeSet
	Failures   []NodeFailure
}

// Expand fetches the associations of every seed node and returns the new
// neighbours and all edges found.
func (x *Expander) Expand(ctx context.Context, seed model.NodeSet) (Result, error) {
	ctx, span := x.tracer.Start(ctx, "expand.Expand", trace.WithAttributes(attribute.Int("seed", seed.Len())))
	defer span.End()

	res := Result{Candidates: make(model.NodeSet), Edges: make(model.EdgeSet)}

	type partial struct {
		edges model.EdgeSet
		nodes model.NodeSet
	}
	failures, err := visit(ctx, x, seed, x.opts.NeighbourRows,
		func(node string, fr monarch.FetchResult) partial {
			edges := x.normalize(node, fr)
			return partial{edges: edges, nodes: Candidates(edges, seed)}
		},
		func(p partial) {
			for e := range p.edges {
				res.Edges.Add(e)
			}
			for n := range p.nodes {
				res.Candidates.Add(n)
			}
		},
	)
	res.Failures = failures
	if err != nil {
		return res, err
	}

	x.logger.Info().
		Int("seed", seed.Len()).
		Int("candidates", res.Candidates.Len()).
		Int("edges", res.Edges.Len()).
		Int("failures", len(failures)).
		Msg("expanded neighbourhood")
	return res, nil
}

// Neighbours returns the first layer of neighbours of seed.
func (x *Expander) Neighbours(ctx context.Context, seed model.NodeSet) (model.NodeSet, []NodeFailure, error) {
	res, err := x.Expand(ctx, seed)
	return res.Candidates, res.Failures, err
}

type OrthoPhenoResult struct {
	Orthologs  model.NodeSet
	Phenotypes model.NodeSet
	// Nodes is Orthologs ∪ Phenotypes.
	Nodes    model.NodeSet
	Failures []NodeFailure
}

// OrthoPheno runs the two layer expansion seed → orthologs → phenotypes.
// Orthologs are found among the edges of the seed, phenotypes among the edges
// of the orthologs. The seed itself is not part of the returned nodes.
func (x *Expander) OrthoPheno(ctx context.Context, seed model.NodeSet) (OrthoPhenoResult, error) {
	ctx, span := x.tracer.Start(ctx, "expand.OrthoPheno")
	defer span.End()

	var out OrthoPhenoResult

	first, err := x.Expand(ctx, seed)
	out.Failures = append(out.Failures, first.Failures...)
	if err != nil {
		return out, err
	}
	out.Orthologs = Classify(first.Edges, seed, Ortholog)

	second, err := x.Expand(ctx, out.Orthologs)
	out.Failures = append(out.Failures, second.Failures...)
	if err != nil {
		return out, err
	}
	out.Phenotypes = Classify(second.Edges, out.Orthologs, Phenotype)
	out.Nodes = out.Orthologs.Union(out.Phenotypes)

	x.logger.Info().
		Int("orthologs", out.Orthologs.Len()).
		Int("phenotypes", out.Phenotypes.Len()).
		Msg("ortho-pheno expansion finished")
	return out, nil
}

type ConnectionsResult struct {
	Edges    model.AttributedEdgeSet
	Failures []NodeFailure
}

// Connections re-fetches every node of universe and keeps the edges whose
// endpoints both lie in universe, labelled from the records they came from.
func (x *Expander) Connections(ctx context.Context, universe model.NodeSet) (ConnectionsResult, error) {
	ctx, span := x.tracer.Start(ctx, "expand.Connections", trace.WithAttributes(attribute.Int("universe", universe.Len())))
	defer span.End()

	res := ConnectionsResult{Edges: make(model.AttributedEdgeSet)}
	failures, err := visit(ctx, x, universe, x.opts.ConnectionRows,
		func(node string, fr monarch.FetchResult) model.AttributedEdgeSet {
			closed := ClosureFilter(universe, x.normalize(node, fr))
			return normalize.ToAttributedEdges(fr.All(), closed)
		},
		func(edges model.AttributedEdgeSet) {
			for e := range edges {
				res.Edges.Add(e)
			}
		},
	)
	res.Failures = failures
	if err != nil {
		return res, err
	}

	x.logger.Info().
		Int("nodes", universe.Len()).
		Int("edges", res.Edges.Len()).
		Int("failures", len(failures)).
		Msg("extracted connections")
	return res, nil
}

// Network is a closed subgraph built around a seed.
type Network struct {
	Seed     model.NodeSet
	Nodes    model.NodeSet
	Edges    model.AttributedEdgeSet
	Failures []NodeFailure
}

// OrthoPhenoNetwork closes seed ∪ OrthoPheno(seed).
func (x *Expander) OrthoPhenoNetwork(ctx context.Context, seed model.NodeSet) (Network, error) {
	op, err := x.OrthoPheno(ctx, seed)
	if err != nil {
		return Network{Seed: seed, Failures: op.Failures}, err
	}
	return x.network(ctx, seed, seed.Union(op.Nodes), op.Failures)
}

// NeighbourNetwork closes seed ∪ Neighbours(seed).
func (x *Expander) NeighbourNetwork(ctx context.Context, seed model.NodeSet) (Network, error) {
	neighbours, failures, err := x.Neighbours(ctx, seed)
	if err != nil {
		return Network{Seed: seed, Failures: failures}, err
	}
	return x.network(ctx, seed, seed.Union(neighbours), failures)
}

func (x *Expander) network(ctx context.Context, seed, universe model.NodeSet, failures []NodeFailure) (Network, error) {
	conn, err := x.Connections(ctx, universe)
	return Network{
		Seed:     seed,
		Nodes:    universe,
		Edges:    conn.Edges,
		Failures: append(failures, conn.Failures...),
	}, err
}

func (x *Expander) normalize(node string, fr monarch.FetchResult) model.EdgeSet {
	edges, errs := normalize.ToEdgeSet(fr.All())
	for _, err := range errs {
		x.logger.Warn().Str("node", node).Err(err).Msg("skipping malformed association")
	}
	return edges
}

// visit fetches every node with at most Workers requests in flight. work runs
// concurrently on each successful fetch; merge runs under a lock. Failed nodes
// are logged and skipped. Only cancellation of ctx stops the walk.
func visit[T any](
	ctx context.Context,
	x *Expander,
	nodes model.NodeSet,
	rows int,
	work func(node string, fr monarch.FetchResult) T,
	merge func(T),
) ([]NodeFailure, error) {
	var (
		mu       sync.Mutex
		failures []NodeFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.opts.Workers)

	for _, node := range nodes.Sorted() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fr, err := x.fetcher.Fetch(gctx, node, rows)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				kind := monarch.Kind(err)
				x.logger.Warn().Str("node", node).Str("kind", string(kind)).Err(err).Msg("skipping node")
				mu.Lock()
				failures = append(failures, NodeFailure{NodeID: node, Kind: kind, Error: err.Error()})
				mu.Unlock()
				return nil
			}

			v := work(node, fr)
			mu.Lock()
			merge(v)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	sort.Slice(failures, func(i, j int) bool { return failures[i].NodeID < failures[j].NodeID })
	if err != nil {
		return failures, err
	}
	return failures, ctx.Err()
}
