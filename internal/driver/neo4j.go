package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agenthands/orthopheno/internal/config"
	"github.com/agenthands/orthopheno/internal/core/model"
)

// ErrUnavailable is returned when the graph database cannot be reached.
var ErrUnavailable = errors.New("graph database unavailable")

var _ GraphDriver = (*Neo4jDriver)(nil)

type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	database string
	logger   zerolog.Logger
}

// NewNeo4jDriver connects and verifies connectivity. Failing to reach the
// server is fatal for every caller, so no retry is attempted.
func NewNeo4jDriver(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, cfg.URI, err)
	}

	logger := log.With().Str("component", "neo4j").Logger()
	logger.Info().Str("uri", cfg.URI).Msg("connected to neo4j")
	return &Neo4jDriver{Driver: driver, database: cfg.Database, logger: logger}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// BuildIndices creates an index on the id property of every concept label.
func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	for _, group := range conceptGroups {
		q := fmt.Sprintf("CREATE INDEX %s_id IF NOT EXISTS FOR (n:%s) ON (n.id)", group, quoteName(group))
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			d.logger.Warn().Err(err).Str("label", group).Msg("failed to create index")
		}
	}
	return nil
}

var conceptGroups = []string{
	model.GroupGene,
	model.GroupDisorder,
	model.GroupPhysiology,
	model.GroupAnatomy,
	model.GroupVariant,
	model.GroupGenotype,
	model.GroupConcept,
}
