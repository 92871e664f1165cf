package codehash

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/pvzzle/taptracker/internal/logger"
	"github.com/pvzzle/taptracker/internal/metrics"
)

const DefaultBatchSize = 20

// Querier is the subset of the GraphQL client the resolver needs.
type Querier interface {
	Execute(ctx context.Context, query string, variables map[string]any, out any) error
}

type ResolverConfig struct {
	BatchSize int
}

type Resolver struct {
	gql   Querier
	store Store
	cfg   ResolverConfig
	log   *slog.Logger
}

func NewResolver(gql Querier, store Store, cfg ResolverConfig, log *slog.Logger) *Resolver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Resolver{
		gql:   gql,
		store: store,
		cfg:   cfg,
		log:   logger.Component(log, "codehash"),
	}
}

// Resolve returns the code hash of every distinct non-empty address. Cached
// addresses are never re-queried; the rest are fetched in concurrent batches
// and written back to the store. Any failed batch fails the whole call.
func (r *Resolver) Resolve(ctx context.Context, addresses []string) (map[string]Hash, error) {
	distinct := lo.Uniq(lo.Compact(addresses))
	out := make(map[string]Hash, len(distinct))

	var uncached []string
	for _, addr := range distinct {
		if h, ok := r.store.Get(addr); ok {
			out[addr] = h
			continue
		}
		uncached = append(uncached, addr)
	}

	cached := len(out)
	metrics.CodeHashLookups.WithLabelValues("hit").Add(float64(cached))
	metrics.CodeHashLookups.WithLabelValues("miss").Add(float64(len(uncached)))

	if len(uncached) == 0 {
		return out, nil
	}

	batches := lo.Chunk(uncached, r.cfg.BatchSize)
	results := make([]map[string]Hash, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := r.fetchBatch(gctx, NewBatchQuery(i, batch))
			if err != nil {
				return fmt.Errorf("code hash batch %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		for addr, h := range res {
			out[addr] = h
		}
	}

	r.log.Debug("code hashes resolved",
		"cached", cached,
		"fetched", len(uncached),
		"batches", len(batches),
	)
	return out, nil
}

func (r *Resolver) fetchBatch(ctx context.Context, q BatchQuery) (map[string]Hash, error) {
	query, vars := q.Build()
	metrics.CodeHashBatches.Inc()

	var data map[string]json.RawMessage
	if err := r.gql.Execute(ctx, query, vars, &data); err != nil {
		return nil, err
	}

	res, err := q.Parse(data)
	if err != nil {
		return nil, err
	}
	for addr, h := range res {
		r.store.Set(addr, h)
	}
	return res, nil
}
