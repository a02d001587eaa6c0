package monarch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenthands/orthopheno/internal/config"
	"github.com/agenthands/orthopheno/internal/core/model"
)

const (
	directionFrom = "from"
	directionTo   = "to"
)

// FetchResult holds the associations where the node is the subject (Out)
// and where it is the object (In).
type FetchResult struct {
	Out []model.Association `json:"out"`
	In  []model.Association `json:"in"`
}

// All returns Out followed by In.
func (r FetchResult) All() []model.Association {
	all := make([]model.Association, 0, len(r.Out)+len(r.In))
	all = append(all, r.Out...)
	return append(all, r.In...)
}

type cacheKey struct {
	node string
	rows int
}

// Client talks to the Monarch association endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retry      config.RetryConfig
	cache      *lru.Cache[cacheKey, FetchResult]
	shared     SharedCache
	tracer     trace.Tracer
	logger     zerolog.Logger

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewClient builds a client from the monarch and retry settings. A nil
// httpClient uses http.DefaultClient.
func NewClient(cfg config.MonarchConfig, retry config.RetryConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		timeout:    cfg.Timeout.Duration,
		retry:      retry,
		tracer:     otel.Tracer("github.com/agenthands/orthopheno/internal/monarch"),
		logger:     log.With().Str("component", "monarch").Logger(),
	}

	meter := otel.Meter("github.com/agenthands/orthopheno/internal/monarch")
	var err error
	c.requests, err = meter.Int64Counter("monarch.requests",
		metric.WithDescription("Association requests by direction and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	c.latency, err = meter.Float64Histogram("monarch.request.duration",
		metric.WithDescription("Association request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency histogram: %w", err)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[cacheKey, FetchResult](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// UseSharedCache adds a second cache tier consulted after the in-process
// cache and before the network.
func (c *Client) UseSharedCache(sc SharedCache) {
	c.shared = sc
}

// Fetch returns the outgoing and incoming associations of nodeID, capped at
// rows records per direction. Transport and decode failures are retried with
// exponential backoff before an error is returned.
func (c *Client) Fetch(ctx context.Context, nodeID string, rows int) (FetchResult, error) {
	key := cacheKey{node: nodeID, rows: rows}
	if c.cache != nil {
		if res, ok := c.cache.Get(key); ok {
			return res, nil
		}
	}
	if c.shared != nil {
		res, ok, err := c.shared.Get(ctx, nodeID, rows)
		if err != nil {
			c.logger.Warn().Err(err).Str("node", nodeID).Msg("shared cache read failed")
		}
		if ok {
			c.remember(key, res)
			return res, nil
		}
	}

	ctx, span := c.tracer.Start(ctx, "monarch.Fetch", trace.WithAttributes(
		attribute.String("node.id", nodeID),
		attribute.Int("rows", rows),
	))
	defer span.End()

	out, err := c.associations(ctx, directionFrom, nodeID, rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FetchResult{}, err
	}
	in, err := c.associations(ctx, directionTo, nodeID, rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FetchResult{}, err
	}

	res := FetchResult{Out: out, In: in}
	span.SetAttributes(attribute.Int("associations", len(out)+len(in)))
	c.remember(key, res)
	if c.shared != nil {
		if err := c.shared.Set(ctx, nodeID, rows, res); err != nil {
			c.logger.Warn().Err(err).Str("node", nodeID).Msg("shared cache write failed")
		}
	}
	return res, nil
}

func (c *Client) remember(key cacheKey, res FetchResult) {
	if c.cache != nil {
		c.cache.Add(key, res)
	}
}

func (c *Client) associations(ctx context.Context, direction, nodeID string, rows int) ([]model.Association, error) {
	var assocs []model.Association
	operation := func() error {
		res, err := c.get(ctx, direction, nodeID, rows)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		assocs = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().
			Err(err).
			Str("node", nodeID).
			Str("direction", direction).
			Dur("wait", wait).
			Msg("retrying association request")
	}

	if err := backoff.RetryNotify(operation, c.backOff(ctx), notify); err != nil {
		return nil, err
	}
	return assocs, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval.Duration > 0 {
		exp.InitialInterval = c.retry.InitialInterval.Duration
	}
	if c.retry.MaxInterval.Duration > 0 {
		exp.MaxInterval = c.retry.MaxInterval.Duration
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.retry.MaxAttempts-1)), ctx)
}

type associationsResponse struct {
	Associations *[]model.Association `json:"associations"`
}

func (c *Client) get(ctx context.Context, direction, nodeID string, rows int) (assocs []model.Association, err error) {
	start, reqCtx := time.Now(), ctx
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(Kind(err))
		}
		attrs := metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("outcome", outcome),
		)
		c.requests.Add(reqCtx, 1, attrs)
		c.latency.Record(reqCtx, float64(time.Since(start).Microseconds())/1000, attrs)
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("rows", strconv.Itoa(rows))
	q.Set("fl_excludes_evidence", "false")
	endpoint := fmt.Sprintf("%s/association/%s/%s?%s", c.baseURL, direction, url.PathEscape(nodeID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeID)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d for %s", ErrTransport, resp.StatusCode, nodeID)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d for %s", ErrRejected, resp.StatusCode, nodeID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	var parsed associationsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if parsed.Associations == nil {
		return nil, fmt.Errorf("%w: no associations field for %s", ErrDecode, nodeID)
	}
	return *parsed.Associations, nil
}
