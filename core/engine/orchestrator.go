// Package engine - Batch orchestrator
// Groups a snapshot by item identity, searches each item's routes across a bounded
// worker pool and assembles one ranked result set.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crossmarket/core/determinism"
	"crossmarket/core/route"
	"crossmarket/core/types"
	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// RouteFinder selects the best route of one item
type RouteFinder interface {
	Best(itemID string, listings map[types.Market]types.Listing, params types.Params) (*types.Opportunity, route.Stats)
}

// Config controls batch partitioning
type Config struct {
	// Workers is the maximum number of chunks evaluated concurrently
	Workers int `json:"workers" yaml:"workers"`

	// ChunkSize is the number of item identities per chunk
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
}

// DefaultConfig returns 4 workers over chunks of 50 items
func DefaultConfig() Config {
	return Config{Workers: 4, ChunkSize: 50}
}

// Counters are the run-level totals exposed to presentation
type Counters struct {
	ItemsScanned         int `json:"items_scanned"`
	MultiMarketItems     int `json:"multi_market_items"`
	RoutesEvaluated      int `json:"routes_evaluated"`
	ItemsWithOpportunity int `json:"items_with_opportunity"`
	RowsWithoutItem      int `json:"rows_without_item"`
	Chunks               int `json:"chunks"`
	FailedChunks         int `json:"failed_chunks"`
	RouteFaults          int `json:"route_faults"`
}

// RunResult is the outcome of one batch run
type RunResult struct {
	RunID         string               `json:"run_id"`
	SnapshotID    string               `json:"snapshot_id"`
	Params        types.Params         `json:"params"`
	Opportunities []*types.Opportunity `json:"opportunities"`
	Counters      Counters             `json:"counters"`
	StartedAt     time.Time            `json:"started_at"`
	DurationMs    int64                `json:"duration_ms"`
	FromCache     bool                 `json:"from_cache"`
}

// Orchestrator runs route search over a whole snapshot
type Orchestrator struct {
	finder      RouteFinder
	config      Config
	logger      *zap.Logger
	cache       *Cache
	fingerprint string
}

// NewOrchestrator creates an orchestrator. Non-positive config values fall back to defaults.
func NewOrchestrator(finder RouteFinder, cfg Config, logger *zap.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	return &Orchestrator{finder: finder, config: cfg, logger: logging.OrNop(logger)}
}

// WithCache enables result caching. fingerprint identifies the market profiles
// and fee schedule the finder was built with.
func (o *Orchestrator) WithCache(cache *Cache, fingerprint string) *Orchestrator {
	o.cache = cache
	o.fingerprint = fingerprint
	return o
}

// Cache returns the configured cache, or nil
func (o *Orchestrator) Cache() *Cache {
	return o.cache
}

// Run evaluates every item of the snapshot.
// Invalid parameters yield an INPUT_ERROR; a non-empty snapshot without any item
// identity yields a STRUCTURAL_ERROR. A failing chunk contributes no rows.
func (o *Orchestrator) Run(ctx context.Context, snap *types.Snapshot, params types.Params) (*RunResult, error) {
	if snap == nil {
		return nil, errors.Input("snapshot is required")
	}
	if params.Scenario == "" {
		params.Scenario = types.ScenarioMedium
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if o.cache == nil {
		return o.run(ctx, snap, params)
	}

	key := CacheKey(snap.ID(), params, o.fingerprint)
	result, hit, err := o.cache.Do(key, func() (*RunResult, error) {
		return o.run(ctx, snap, params)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		o.logger.Debug("run served from cache", zap.String("key", key), zap.String("run_id", result.RunID))
		cached := *result
		cached.FromCache = true
		return &cached, nil
	}
	return result, nil
}

type chunkResult struct {
	opportunities []*types.Opportunity
	stats         route.Stats
	failed        bool
}

func (o *Orchestrator) run(ctx context.Context, snap *types.Snapshot, params types.Params) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID:      uuid.NewString(),
		SnapshotID: snap.ID(),
		Params:     params,
		StartedAt:  start.UTC(),
	}
	log := o.logger.With(zap.String("run_id", result.RunID), zap.String("snapshot", snap.ID()))

	index, missing := snap.GroupByItem()
	if snap.Len() > 0 && len(index) == 0 {
		return nil, errors.Structural("no listing row carries an item identity").
			WithContext("rows", snap.Len())
	}
	if missing > 0 {
		log.Warn("rows without item identity skipped", zap.Int("rows", missing))
	}

	keys := index.Keys()
	chunks := determinism.Chunk(keys, o.config.ChunkSize)
	results := make([]chunkResult, len(chunks))

	log.Info("starting scan",
		zap.Int("items", len(keys)),
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", o.config.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = o.runChunk(log, i, chunk, index, params)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "scan cancelled", err)
	}

	c := Counters{
		ItemsScanned:    len(keys),
		RowsWithoutItem: missing,
		Chunks:          len(chunks),
	}
	for _, k := range keys {
		if len(index[k]) >= 2 {
			c.MultiMarketItems++
		}
	}

	var opps []*types.Opportunity
	for _, r := range results {
		if r.failed {
			c.FailedChunks++
			continue
		}
		c.RoutesEvaluated += r.stats.Evaluated
		c.RouteFaults += r.stats.Faults
		opps = append(opps, r.opportunities...)
	}
	SortOpportunities(opps)
	if opps == nil {
		opps = []*types.Opportunity{}
	}
	c.ItemsWithOpportunity = len(opps)

	result.Opportunities = opps
	result.Counters = c
	result.DurationMs = time.Since(start).Milliseconds()

	log.Info("scan complete",
		zap.Int("opportunities", c.ItemsWithOpportunity),
		zap.Int("routes_evaluated", c.RoutesEvaluated),
		zap.Int("failed_chunks", c.FailedChunks),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// runChunk searches every item of a chunk; a panic discards the whole chunk
func (o *Orchestrator) runChunk(log *zap.Logger, n int, keys []string, index types.ItemIndex, params types.Params) (res chunkResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("chunk failed", zap.Int("chunk", n), zap.String("panic", fmt.Sprint(r)))
			res = chunkResult{failed: true}
		}
	}()

	for _, item := range keys {
		opp, stats := o.finder.Best(item, index[item], params)
		res.stats.Add(stats)
		if opp != nil {
			res.opportunities = append(res.opportunities, opp)
		}
	}
	return res
}

// SortOpportunities orders by descending score, then ascending item identity
func SortOpportunities(opps []*types.Opportunity) {
	determinism.SortSlice(opps, func(a, b *types.Opportunity) bool {
		if a.Scores.Opportunity != b.Scores.Opportunity {
			return a.Scores.Opportunity > b.Scores.Opportunity
		}
		return a.ItemID < b.ItemID
	})
}
