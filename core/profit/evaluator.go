// Package profit turns a listing and a route into per-channel profit, margin and ROI.
package profit

import (
	"github.com/shopspring/decimal"

	"crossmarket/core/fees"
	"crossmarket/core/pricing"
	"crossmarket/core/types"
)

var hundred = decimal.NewFromInt(100)

// Evaluator computes route metrics against fixed profiles and fees
type Evaluator struct {
	profiles *pricing.Profiles
	fees     *fees.Calculator
}

// NewEvaluator creates an evaluator. Nil arguments select the defaults.
func NewEvaluator(profiles *pricing.Profiles, calc *fees.Calculator) *Evaluator {
	if profiles == nil {
		profiles = pricing.DefaultProfiles()
	}
	if calc == nil {
		calc = fees.NewCalculator(fees.DefaultSchedule())
	}
	return &Evaluator{profiles: profiles, fees: calc}
}

// Profiles returns the evaluator's market profiles
func (e *Evaluator) Profiles() *pricing.Profiles {
	return e.profiles
}

// RouteMetrics evaluates buying l in source and selling in destination.
// customTarget overrides the scenario-adjusted observed price when non-nil.
// A non-positive purchase or target price yields ZeroMetrics.
func (e *Evaluator) RouteMetrics(l *types.Listing, source, destination types.Market, params types.Params, customTarget *decimal.Decimal) types.Metrics {
	purchase := pricing.Resolve(l, params.Strategy)
	if purchase <= 0 {
		return types.ZeroMetrics()
	}
	net := pricing.NetCost(purchase, source, params.Discount, e.profiles)

	var target decimal.Decimal
	if customTarget != nil {
		target = *customTarget
	} else {
		target = decimal.NewFromFloat(pricing.ResolveFirst(l) * params.Scenario.Multiplier())
	}
	if !target.IsPositive() {
		return types.ZeroMetrics()
	}

	c := params.Costs
	costs := types.NewCostBreakdown(
		net,
		c.InboundFreight,
		target.Mul(decimal.NewFromFloat(c.ReturnsPct)),
		target.Mul(decimal.NewFromFloat(c.StoragePct)),
		c.Misc,
	)
	investment := costs.Investment()

	mkt := channelResult(e.fees.Fees(l, target, destination, types.ChannelMarketplace, params.Mode), target, costs, investment)
	direct := channelResult(e.fees.Fees(l, target, destination, types.ChannelDirect, params.Mode), target, costs, investment)

	m := types.Metrics{
		Viable:        true,
		PurchasePrice: decimal.NewFromFloat(purchase),
		TargetPrice:   target,
		Costs:         costs,
		Marketplace:   mkt,
		Direct:        direct,
	}
	if direct.Profit.GreaterThan(mkt.Profit) {
		m.BestChannel = types.ChannelDirect
		m.ChannelDelta = direct.Profit.Sub(mkt.Profit)
	} else {
		m.BestChannel = types.ChannelMarketplace
		m.ChannelDelta = mkt.Profit.Sub(direct.Profit)
	}

	best := m.Best()
	m.Profit = best.Profit
	m.MarginPct = best.MarginPct
	m.ROIPct = best.ROIPct
	return m
}

func channelResult(f types.FeeBreakdown, target decimal.Decimal, costs types.CostBreakdown, investment decimal.Decimal) types.ChannelResult {
	profit := target.Sub(costs.Total.Add(f.Total))

	r := types.ChannelResult{Fees: f, Profit: profit}
	r.MarginPct = percent(profit, target)
	r.ROIPct = percent(profit, investment)
	return r
}

// percent returns num/den*100, or 0 when den is not positive
func percent(num, den decimal.Decimal) float64 {
	if !den.IsPositive() {
		return 0
	}
	v, _ := num.Div(den).Mul(hundred).Float64()
	return v
}
