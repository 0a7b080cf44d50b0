// Package engine executes catalog queries against the document store:
// parameter validation, result caching, bounded timeouts with one retry,
// normalization per degradation policy, and deterministic output order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cinedex-io/cinedex/internal/cache"
	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query"
	"github.com/cinedex-io/cinedex/internal/domain/query/pipeline"
	"github.com/cinedex-io/cinedex/internal/metrics"
)

// Store is the consumer contract for the document store adapter (ISP).
type Store interface {
	RunAggregation(ctx context.Context, collection string, p pipeline.Pipeline) ([]map[string]any, error)
	Count(ctx context.Context, collection string, filter []pipeline.Condition) (int64, error)
}

// Catalog resolves query names to definitions.
type Catalog interface {
	Get(name string) (query.Definition, error)
}

// ResultCache memoizes result sets.
type ResultCache interface {
	Get(key cache.Key) (domain.ResultSet, bool)
	Put(key cache.Key, result domain.ResultSet)
}

const (
	defaultTimeout = 3 * time.Second
	defaultBackoff = 200 * time.Millisecond
)

// Engine runs named queries.
type Engine struct {
	catalog Catalog
	store   Store
	cache   ResultCache
	timeout time.Duration
	backoff time.Duration
	logger  *zap.Logger
}

// New creates an engine with default timeout and retry backoff.
func New(cat Catalog, store Store, rc ResultCache, logger *zap.Logger) *Engine {
	return &Engine{
		catalog: cat,
		store:   store,
		cache:   rc,
		timeout: defaultTimeout,
		backoff: defaultBackoff,
		logger:  logger,
	}
}

// WithPolicy overrides the per-query timeout and retry backoff.
func (e *Engine) WithPolicy(timeout, backoff time.Duration) *Engine {
	if timeout > 0 {
		e.timeout = timeout
	}
	if backoff > 0 {
		e.backoff = backoff
	}
	return e
}

// Execute runs a named query. Parameters are validated before any store
// I/O; results are cached under (name, canonical params, token). A store
// failure or per-query timeout is retried once after a short backoff and
// then surfaced as ErrDataUnavailable — never as silently empty data.
func (e *Engine) Execute(
	ctx context.Context, name string, params map[string]any, token string,
) (domain.ResultSet, error) {
	def, err := e.catalog.Get(name)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(name, "error").Inc()
		return domain.ResultSet{}, err
	}

	eff, err := def.ValidateParams(params)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(name, "invalid").Inc()
		return domain.ResultSet{}, err
	}

	key := cache.Key{Query: name, Params: query.CanonicalParams(eff), Token: token}
	if cached, ok := e.cache.Get(key); ok {
		metrics.CacheTotal.WithLabelValues("hit").Inc()
		metrics.QueriesTotal.WithLabelValues(name, "ok").Inc()
		return cached, nil
	}
	metrics.CacheTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	result, err := e.run(ctx, def, eff)
	metrics.QueryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(name, "unavailable").Inc()
		return domain.ResultSet{}, err
	}

	if result.Dropped > 0 {
		metrics.DroppedRecordsTotal.WithLabelValues(name).Add(float64(result.Dropped))
		e.logger.Debug("degradation policy dropped records",
			zap.String("query", name),
			zap.Int("dropped", result.Dropped),
		)
	}

	metrics.QueriesTotal.WithLabelValues(name, "ok").Inc()
	e.cache.Put(key, result)
	return result, nil
}

// run performs the store round-trip with one retry, then normalizes.
func (e *Engine) run(
	ctx context.Context, def query.Definition, eff map[string]any,
) (domain.ResultSet, error) {
	result, err := e.runOnce(ctx, def, eff)
	if err == nil {
		return result, nil
	}
	if !retryable(err) {
		return domain.ResultSet{}, err
	}
	if ctx.Err() != nil {
		// The caller's deadline elapsed; a retry cannot succeed.
		return domain.ResultSet{}, unavailable(def.Name(), ctx.Err())
	}

	metrics.StoreRetriesTotal.WithLabelValues(def.Name()).Inc()
	e.logger.Warn("store round-trip failed, retrying",
		zap.String("query", def.Name()),
		zap.Duration("backoff", e.backoff),
		zap.Error(err),
	)

	select {
	case <-ctx.Done():
		return domain.ResultSet{}, unavailable(def.Name(), ctx.Err())
	case <-time.After(e.backoff):
	}

	result, err = e.runOnce(ctx, def, eff)
	if err != nil {
		return domain.ResultSet{}, unavailable(def.Name(), err)
	}
	return result, nil
}

func (e *Engine) runOnce(
	ctx context.Context, def query.Definition, eff map[string]any,
) (domain.ResultSet, error) {
	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if def.Kind() == query.Count {
		n, err := e.store.Count(qctx, def.Collection(), def.Filter())
		if err != nil {
			return domain.ResultSet{}, err
		}
		rec := domain.Record{"count": domain.Number(float64(n))}
		return domain.ResultSet{Records: []domain.Record{rec}}, nil
	}

	bound, err := def.Pipeline().Bind(eff)
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("bind %s: %w", def.Name(), err)
	}

	raw, err := e.store.RunAggregation(qctx, def.Collection(), bound)
	if err != nil {
		return domain.ResultSet{}, err
	}

	records, dropped := normalize(def, raw)
	sortRecords(records, def.Order())
	return domain.ResultSet{Records: records, Dropped: dropped}, nil
}

// retryable reports whether an error warrants a second store round-trip.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func unavailable(name string, cause error) error {
	return fmt.Errorf("%w: query %s: %v", domain.ErrDataUnavailable, name, cause)
}

// sortRecords applies the definition's deterministic order, including its
// tie-break, so repeated executions over identical data return identical
// sequences.
func sortRecords(records []domain.Record, order []pipeline.SortKey) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range order {
			c := records[i][k.Field].Compare(records[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
