// Package route searches the source→destination market pairs of one item for the best opportunity.
package route

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crossmarket/core/pricing"
	"crossmarket/core/profit"
	"crossmarket/core/scoring"
	"crossmarket/core/types"
	"crossmarket/internal/logging"
)

// Stats counts what happened during one item's search
type Stats struct {
	// Evaluated is the number of pairs that reached profit evaluation
	Evaluated int `json:"evaluated"`

	// NoHeadroom counts pairs whose target did not exceed the source price
	NoHeadroom int `json:"no_headroom"`

	// BelowThreshold counts pairs rejected by the minimum ROI or margin
	BelowThreshold int `json:"below_threshold"`

	// Faults counts pairs whose evaluation panicked
	Faults int `json:"faults"`
}

// Add accumulates other into s
func (s *Stats) Add(other Stats) {
	s.Evaluated += other.Evaluated
	s.NoHeadroom += other.NoHeadroom
	s.BelowThreshold += other.BelowThreshold
	s.Faults += other.Faults
}

// Evaluator computes the metrics of one market pair
type Evaluator interface {
	RouteMetrics(l *types.Listing, source, destination types.Market, params types.Params, customTarget *decimal.Decimal) types.Metrics
	Profiles() *pricing.Profiles
}

// Searcher finds the best route of an item across markets
type Searcher struct {
	evaluator Evaluator
	logger    *zap.Logger
}

// NewSearcher creates a searcher. A nil evaluator uses the default profiles and fees;
// a nil logger discards output.
func NewSearcher(evaluator Evaluator, logger *zap.Logger) *Searcher {
	if evaluator == nil {
		evaluator = profit.NewEvaluator(nil, nil)
	}
	return &Searcher{evaluator: evaluator, logger: logging.OrNop(logger)}
}

// validMarkets counts listings keyed by a supported market code
func validMarkets(listings map[types.Market]types.Listing) int {
	n := 0
	for m := range listings {
		if m.IsValid() {
			n++
		}
	}
	return n
}

type candidate struct {
	route   types.Route
	listing types.Listing
}

// Best evaluates every ordered market pair of an item and returns the winning route,
// or nil when the item is listed in fewer than two markets or no pair qualifies.
//
// Markets are visited in fixed order. A pair replaces the current best only with a
// strictly higher score; on an exact tie the higher margin wins, then the earlier pair.
func (s *Searcher) Best(itemID string, listings map[types.Market]types.Listing, params types.Params) (*types.Opportunity, Stats) {
	var stats Stats
	if validMarkets(listings) < 2 {
		return nil, stats
	}
	profiles := s.evaluator.Profiles()

	var best *candidate
	bestScore := 0.0

	for _, src := range types.Markets() {
		srcListing, ok := listings[src]
		if !ok {
			continue
		}
		srcPrice := pricing.Resolve(&srcListing, params.Strategy)
		if srcPrice <= 0 {
			continue
		}

		for _, dst := range types.Markets() {
			if dst == src {
				continue
			}

			var target float64
			observed := false
			if dstListing, listed := listings[dst]; listed {
				target = pricing.Resolve(&dstListing, params.Strategy)
				observed = true
			} else {
				target = srcPrice * profiles.Markup(dst)
			}
			if target <= srcPrice {
				stats.NoHeadroom++
				continue
			}

			r, err := s.evaluate(itemID, &srcListing, src, dst, target, observed, params)
			if err != nil {
				stats.Faults++
				s.logger.Warn("route evaluation failed",
					zap.String("item", itemID),
					zap.String("route", src.Upper()+"->"+dst.Upper()),
					zap.Error(err))
				continue
			}
			stats.Evaluated++

			m := r.Metrics
			if !m.Viable || m.ROIPct < params.MinROI || m.MarginPct < params.MinMargin {
				stats.BelowThreshold++
				continue
			}

			score := r.Scores.Opportunity
			switch {
			case score > bestScore:
			case best != nil && score == bestScore && m.MarginPct > best.route.Metrics.MarginPct:
			default:
				continue
			}
			bestScore = score
			best = &candidate{route: r, listing: srcListing}
		}
	}

	if best == nil || best.route.Source == best.route.Destination || best.route.Metrics.ROIPct <= 0 {
		return nil, stats
	}
	return types.NewOpportunity(best.route, best.listing), stats
}

// evaluate computes metrics and scores for one pair, converting a panic into an error
func (s *Searcher) evaluate(itemID string, l *types.Listing, src, dst types.Market, target float64, observed bool, params types.Params) (r types.Route, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic evaluating %s: %v", itemID, rec)
		}
	}()

	t := decimal.NewFromFloat(target)
	m := s.evaluator.RouteMetrics(l, src, dst, params, &t)
	r = types.Route{
		ItemID:         itemID,
		Title:          l.Title,
		Source:         src,
		Destination:    dst,
		TargetObserved: observed,
		Metrics:        m,
		Scores:         scoring.Score(l, m, params.Weights),
	}
	return r, nil
}
