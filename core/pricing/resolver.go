// Package pricing resolves listing prices and turns gross prices into net acquisition cost.
package pricing

import (
	"crossmarket/core/types"
)

// firstOrder is the field order used when any usable price will do
var firstOrder = []types.Strategy{
	types.StrategyBuyBox,
	types.StrategyAmazon,
	types.StrategyNewFBA,
	types.StrategyNewFBM,
}

// Resolve returns the listing price selected by strategy.
// It returns exactly 0 for an unknown strategy or a missing, non-finite or non-positive value.
func Resolve(l *types.Listing, strategy types.Strategy) float64 {
	if l == nil {
		return 0
	}
	v, ok := l.PriceFor(strategy)
	if !ok || !types.Known(v) {
		return 0
	}
	return v
}

// ResolveFirst returns the first usable price in buy box, amazon, new FBA, new FBM order
func ResolveFirst(l *types.Listing) float64 {
	for _, s := range firstOrder {
		if v := Resolve(l, s); v > 0 {
			return v
		}
	}
	return 0
}
