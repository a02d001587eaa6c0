package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agenthands/orthopheno/internal/config"
	"github.com/agenthands/orthopheno/internal/core/expand"
	"github.com/agenthands/orthopheno/internal/core/model"
	"github.com/agenthands/orthopheno/internal/hypothesis"
	"github.com/agenthands/orthopheno/internal/telemetry"
)

// Engine is the expansion surface served over HTTP.
type Engine interface {
	Neighbours(ctx context.Context, seed model.NodeSet) (model.NodeSet, []expand.NodeFailure, error)
	OrthoPheno(ctx context.Context, seed model.NodeSet) (expand.OrthoPhenoResult, error)
	Connections(ctx context.Context, universe model.NodeSet) (expand.ConnectionsResult, error)
}

type HypothesisRunner interface {
	Run(ctx context.Context, req hypothesis.Request) (hypothesis.Report, error)
}

type MetricsSource interface {
	Snapshot(ctx context.Context) ([]telemetry.Point, error)
}

type Server struct {
	Engine     Engine
	Hypothesis HypothesisRunner
	// Defaults fill the degree limits, format and name a request leaves unset.
	Defaults config.HypothesisConfig

	// Metrics is optional; /metrics answers 404 without it.
	Metrics MetricsSource
	logger  zerolog.Logger
}

// NewServer wires the handlers. runner may be nil when no graph database is
// configured; /hypothesis then answers 503.
func NewServer(engine Engine, runner HypothesisRunner) *Server {
	return &Server{
		Engine:     engine,
		Hypothesis: runner,
		Defaults:   config.Default().Hypothesis,
		logger:     log.With().Str("component", "server").Logger(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", s.MetricsSnapshot)
	r.POST("/expand", s.Expand)
	r.POST("/connections", s.Connections)
	r.POST("/hypothesis", s.RunHypothesis)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) MetricsSnapshot(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics not enabled"})
		return
	}
	points, err := s.Metrics.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, "collect metrics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": points})
}

type ExpandRequest struct {
	Genes []string `json:"genes" binding:"required,min=1"`
	// Mode is "neighbours" (default) or "orthopheno".
	Mode string `json:"mode"`
}

type ExpandResponse struct {
	Nodes      []string             `json:"nodes"`
	Orthologs  []string             `json:"orthologs,omitempty"`
	Phenotypes []string             `json:"phenotypes,omitempty"`
	Failures   []expand.NodeFailure `json:"failures"`
}

func (s *Server) Expand(c *gin.Context) {
	var req ExpandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	seed := model.NewNodeSet(req.Genes...)

	var resp ExpandResponse
	switch req.Mode {
	case "", "neighbours":
		nodes, failures, err := s.Engine.Neighbours(c.Request.Context(), seed)
		if err != nil {
			s.fail(c, "expand", err)
			return
		}
		resp = ExpandResponse{Nodes: nodes.Sorted(), Failures: failures}
	case "orthopheno":
		op, err := s.Engine.OrthoPheno(c.Request.Context(), seed)
		if err != nil {
			s.fail(c, "expand", err)
			return
		}
		resp = ExpandResponse{
			Nodes:      op.Nodes.Sorted(),
			Orthologs:  op.Orthologs.Sorted(),
			Phenotypes: op.Phenotypes.Sorted(),
			Failures:   op.Failures,
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode " + req.Mode})
		return
	}

	if resp.Failures == nil {
		resp.Failures = []expand.NodeFailure{}
	}
	c.JSON(http.StatusOK, resp)
}

type ConnectionsRequest struct {
	Nodes []string `json:"nodes" binding:"required,min=1"`
}

type ConnectionsResponse struct {
	Edges    []model.AttributedEdge `json:"edges"`
	Failures []expand.NodeFailure   `json:"failures"`
}

func (s *Server) Connections(c *gin.Context) {
	var req ConnectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := s.Engine.Connections(c.Request.Context(), model.NewNodeSet(req.Nodes...))
	if err != nil {
		s.fail(c, "connections", err)
		return
	}
	resp := ConnectionsResponse{Edges: res.Edges.Sorted(), Failures: res.Failures}
	if resp.Failures == nil {
		resp.Failures = []expand.NodeFailure{}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RunHypothesis(c *gin.Context) {
	if s.Hypothesis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph database not configured"})
		return
	}
	var req hypothesis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	s.applyDefaults(&req)

	report, err := s.Hypothesis.Run(c.Request.Context(), req)
	switch {
	case errors.Is(err, hypothesis.ErrNoGenes),
		errors.Is(err, hypothesis.ErrTopology),
		errors.Is(err, hypothesis.ErrFormat),
		errors.Is(err, hypothesis.ErrName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.fail(c, "hypothesis", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) applyDefaults(req *hypothesis.Request) {
	if req.PathwayDegreeMax == 0 {
		req.PathwayDegreeMax = s.Defaults.PathwayDegreeMax
	}
	if req.PhenotypeDegreeMax == 0 {
		req.PhenotypeDegreeMax = s.Defaults.PhenotypeDegreeMax
	}
	if req.Format == "" {
		req.Format = hypothesis.Format(s.Defaults.Format)
	}
	if req.Name == "" {
		req.Name = "api"
	}
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.logger.Error().Err(err).Str("op", op).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
}
