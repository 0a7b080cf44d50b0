// Package adapter wraps the document store behind the narrow aggregation
// contract the engine consumes. It enforces the collection allow-list,
// evaluates declarative pipelines over scanned documents, and maps
// connectivity failures to domain.ErrStoreUnavailable so callers can
// always tell "no data" apart from "could not reach data". All operations
// are read-only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query/pipeline"
)

// getMultiBatch bounds the number of keys per MGET round-trip.
const getMultiBatch = 500

// store is the consumer interface for the document store (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
}

// Adapter runs declarative aggregations against allow-listed collections.
type Adapter struct {
	store     store
	keyPrefix string
	allowed   map[string]bool
	breaker   *gobreaker.CircuitBreaker[[]map[string]any]
	logger    *zap.Logger
}

// New creates an adapter over the given store. Only the listed collections
// may be queried. Store round-trips run through a circuit breaker so a
// down store fails fast instead of timing out on every query.
func New(s store, keyPrefix string, collections []string, logger *zap.Logger) *Adapter {
	allowed := make(map[string]bool, len(collections))
	for _, c := range collections {
		allowed[c] = true
	}
	breaker := gobreaker.NewCircuitBreaker[[]map[string]any](gobreaker.Settings{
		Name:    "document-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Adapter{
		store:     s,
		keyPrefix: keyPrefix,
		allowed:   allowed,
		breaker:   breaker,
		logger:    logger,
	}
}

// RunAggregation evaluates a bound pipeline against a collection and
// returns raw result documents.
func (a *Adapter) RunAggregation(
	ctx context.Context, collection string, p pipeline.Pipeline,
) ([]map[string]any, error) {
	if err := a.checkAllowed(collection); err != nil {
		return nil, err
	}
	for _, c := range p.Collections() {
		if err := a.checkAllowed(c); err != nil {
			return nil, err
		}
	}

	docs, err := a.loadCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	out, err := evaluate(docs, p, func(name string) ([]map[string]any, error) {
		return a.loadCollection(ctx, name)
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", collection, err)
	}
	return out, nil
}

// Count returns the number of documents in a collection matching the
// filter conditions. A nil filter counts the whole collection.
func (a *Adapter) Count(
	ctx context.Context, collection string, filter []pipeline.Condition,
) (int64, error) {
	if err := a.checkAllowed(collection); err != nil {
		return 0, err
	}

	docs, err := a.loadCollection(ctx, collection)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, doc := range docs {
		if matchDoc(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (a *Adapter) checkAllowed(collection string) error {
	if !a.allowed[collection] {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotAllowed, collection)
	}
	return nil
}

// loadCollection scans and fetches every document of a collection. Keys
// are sorted so document order is stable across executions. Documents
// that fail to decode are skipped and logged; they never abort a query.
func (a *Adapter) loadCollection(ctx context.Context, collection string) ([]map[string]any, error) {
	docs, err := a.breaker.Execute(func() ([]map[string]any, error) {
		return a.fetch(ctx, collection)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open for %s", domain.ErrStoreUnavailable, collection)
		}
		return nil, err
	}
	return docs, nil
}

func (a *Adapter) fetch(ctx context.Context, collection string) ([]map[string]any, error) {
	pattern := a.keyPrefix + "doc:" + collection + ":*"
	keys, err := a.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", domain.ErrStoreUnavailable, collection, err)
	}
	sort.Strings(keys)

	docs := make([]map[string]any, 0, len(keys))
	var malformed int
	for start := 0; start < len(keys); start += getMultiBatch {
		end := start + getMultiBatch
		if end > len(keys) {
			end = len(keys)
		}
		values, err := a.store.GetMulti(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrStoreUnavailable, collection, err)
		}
		for i, raw := range values {
			if raw == nil {
				continue
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				malformed++
				a.logger.Debug("skipping undecodable document",
					zap.String("collection", collection),
					zap.String("key", keys[start+i]),
					zap.Error(err),
				)
				continue
			}
			docs = append(docs, doc)
		}
	}
	if malformed > 0 {
		a.logger.Warn("collection contains undecodable documents",
			zap.String("collection", collection),
			zap.Int("malformed", malformed),
		)
	}
	return docs, nil
}
