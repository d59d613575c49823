// Package types - Run parameters
package types

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"crossmarket/internal/errors"
)

// ScoreWeights are the named weights of the opportunity score.
// Momentum, Risk and Ops are reserved slots that do not enter the combination.
type ScoreWeights struct {
	Profit      float64 `json:"profit" yaml:"profit"`
	Velocity    float64 `json:"velocity" yaml:"velocity"`
	Competition float64 `json:"competition" yaml:"competition"`
	Momentum    float64 `json:"momentum" yaml:"momentum"`
	Risk        float64 `json:"risk" yaml:"risk"`
	Ops         float64 `json:"ops" yaml:"ops"`
}

// DefaultWeights returns the standard weight table
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Profit:      0.40,
		Velocity:    0.25,
		Competition: 0.10,
		Momentum:    0.10,
		Risk:        0.10,
		Ops:         0.05,
	}
}

// CostProvisions are recurring per-unit costs added to every route
type CostProvisions struct {
	InboundFreight decimal.Decimal `json:"inbound_freight" yaml:"inbound_freight"`
	ReturnsPct     float64         `json:"returns_pct" yaml:"returns_pct"`
	StoragePct     float64         `json:"storage_pct" yaml:"storage_pct"`
	Misc           decimal.Decimal `json:"misc" yaml:"misc"`
}

// DefaultProvisions returns inbound 2.00, returns 2%, storage 0.8%, misc 1.00
func DefaultProvisions() CostProvisions {
	return CostProvisions{
		InboundFreight: decimal.NewFromFloat(2.00),
		ReturnsPct:     0.02,
		StoragePct:     0.008,
		Misc:           decimal.NewFromFloat(1.00),
	}
}

// Params is the full parameter tuple of a run
type Params struct {
	Strategy  Strategy        `json:"strategy"`
	Scenario  Scenario        `json:"scenario"`
	Discount  float64         `json:"discount"`
	MinROI    float64         `json:"min_roi"`
	MinMargin float64         `json:"min_margin"`
	Weights   ScoreWeights    `json:"weights"`
	Mode      FulfillmentMode `json:"mode"`
	Costs     CostProvisions  `json:"costs"`
}

// DefaultParams returns the standard run parameters
func DefaultParams() Params {
	return Params{
		Strategy:  StrategyBuyBox,
		Scenario:  ScenarioMedium,
		Discount:  0.21,
		MinROI:    10,
		MinMargin: 15,
		Weights:   DefaultWeights(),
		Mode:      FulfillmentManaged,
		Costs:     DefaultProvisions(),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the parameters at the run boundary
func (p Params) Validate() error {
	if !p.Strategy.IsValid() {
		return errors.Newf(errors.TypeInput, "unknown price strategy %q", p.Strategy).
			WithContext("strategy", p.Strategy)
	}
	switch p.Scenario {
	case "", ScenarioShort, ScenarioMedium, ScenarioLong:
	default:
		return errors.Newf(errors.TypeInput, "unknown scenario %q", p.Scenario)
	}
	if !finite(p.Discount) || p.Discount < 0 || p.Discount >= 1 {
		return errors.Newf(errors.TypeInput, "discount must be in [0,1), got %v", p.Discount).
			WithContext("discount", p.Discount)
	}
	if !finite(p.MinROI) || !finite(p.MinMargin) {
		return errors.Input("minimum ROI and margin must be finite")
	}
	switch p.Mode {
	case FulfillmentManaged, FulfillmentSelf:
	default:
		return errors.Newf(errors.TypeInput, "unknown fulfillment mode %q", p.Mode)
	}
	w := p.Weights
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"profit", w.Profit}, {"velocity", w.Velocity}, {"competition", w.Competition},
		{"momentum", w.Momentum}, {"risk", w.Risk}, {"ops", w.Ops},
	} {
		if !finite(f.value) || f.value < 0 {
			return errors.Newf(errors.TypeInput, "weight %s must be a non-negative number, got %v", f.name, f.value)
		}
	}
	c := p.Costs
	if c.InboundFreight.IsNegative() || c.Misc.IsNegative() {
		return errors.Input("cost provisions must not be negative")
	}
	if !finite(c.ReturnsPct) || !finite(c.StoragePct) || c.ReturnsPct < 0 || c.StoragePct < 0 {
		return errors.Input("returns and storage provisions must be non-negative fractions")
	}
	return nil
}

// Canonical returns a stable text form of every parameter, used in cache keys
func (p Params) Canonical() string {
	w := p.Weights
	c := p.Costs
	return fmt.Sprintf("strategy=%s;scenario=%s;discount=%g;min_roi=%g;min_margin=%g;mode=%s;"+
		"w=%g,%g,%g,%g,%g,%g;inbound=%s;returns=%g;storage=%g;misc=%s",
		p.Strategy, p.Scenario, p.Discount, p.MinROI, p.MinMargin, p.Mode,
		w.Profit, w.Velocity, w.Competition, w.Momentum, w.Risk, w.Ops,
		c.InboundFreight.String(), c.ReturnsPct, c.StoragePct, c.Misc.String())
}
