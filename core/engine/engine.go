// Package engine provides the batch scan engine.
// CLI and HTTP server are thin wrappers around it.
package engine

import (
	"go.uber.org/zap"

	"crossmarket/core/determinism"
	"crossmarket/core/fees"
	"crossmarket/core/pricing"
	"crossmarket/core/profit"
	"crossmarket/core/route"
)

// Options configures a fully wired orchestrator
type Options struct {
	Profiles *pricing.Profiles
	Fees     fees.Schedule
	Batch    Config

	// CacheEnabled memoizes runs per snapshot and parameter tuple
	CacheEnabled bool
	CachePolicy  CachePolicy

	Logger *zap.Logger
}

// DefaultOptions returns default profiles, fees and batching with caching enabled
func DefaultOptions() Options {
	return Options{
		Profiles:     pricing.DefaultProfiles(),
		Fees:         fees.DefaultSchedule(),
		Batch:        DefaultConfig(),
		CacheEnabled: true,
		CachePolicy:  DefaultCachePolicy(),
	}
}

// New wires evaluator, searcher and orchestrator from options
func New(opts Options) *Orchestrator {
	if opts.Profiles == nil {
		opts.Profiles = pricing.DefaultProfiles()
	}
	evaluator := profit.NewEvaluator(opts.Profiles, fees.NewCalculator(opts.Fees))
	searcher := route.NewSearcher(evaluator, opts.Logger)
	o := NewOrchestrator(searcher, opts.Batch, opts.Logger)
	if opts.CacheEnabled {
		o.WithCache(NewCache(opts.CachePolicy), Fingerprint(opts.Profiles, opts.Fees))
	}
	return o
}

// Fingerprint identifies a profile table and fee schedule for cache keys
func Fingerprint(profiles *pricing.Profiles, schedule fees.Schedule) string {
	h := determinism.NewHasher().Add(profiles.Fingerprint(),
		schedule.CommissionRate, schedule.ManagedFee.String(), schedule.HeavyFee.String(),
		schedule.InternationalSurcharge.String(), schedule.DirectPlatformRate, schedule.DirectCrossBorder.String())
	for _, b := range schedule.Bands {
		h.Add(b.MaxKg, b.Fee.String())
	}
	return h.Sum().Short()
}
