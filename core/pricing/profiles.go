package pricing

import (
	"fmt"
	"math"

	"crossmarket/core/determinism"
	"crossmarket/core/types"
	"crossmarket/internal/errors"
)

// Fallbacks for markets missing from a profile table
const (
	FallbackTaxRate = 0.19
	FallbackMarkup  = 1.05
)

// Profiles is the immutable per-market tax and markup configuration
type Profiles struct {
	home   types.Market
	tax    map[types.Market]float64
	markup map[types.Market]float64
}

// DefaultProfiles returns the built-in VAT and cross-market markup tables
func DefaultProfiles() *Profiles {
	return &Profiles{
		home: types.HomeMarket,
		tax: map[types.Market]float64{
			types.MarketIT: 0.22,
			types.MarketDE: 0.19,
			types.MarketFR: 0.20,
			types.MarketES: 0.21,
		},
		markup: map[types.Market]float64{
			types.MarketIT: 1.00,
			types.MarketDE: 1.05,
			types.MarketFR: 1.08,
			types.MarketES: 1.03,
		},
	}
}

// NewProfiles copies the given tables into a validated Profiles value
func NewProfiles(home types.Market, tax, markup map[types.Market]float64) (*Profiles, error) {
	p := &Profiles{
		home:   home,
		tax:    make(map[types.Market]float64, len(tax)),
		markup: make(map[types.Market]float64, len(markup)),
	}
	for m, v := range tax {
		p.tax[m] = v
	}
	for m, v := range markup {
		p.markup[m] = v
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Home returns the home market
func (p *Profiles) Home() types.Market {
	return p.home
}

// TaxRate returns the VAT rate of a market as a fraction
func (p *Profiles) TaxRate(m types.Market) float64 {
	if v, ok := p.tax[m]; ok {
		return v
	}
	return FallbackTaxRate
}

// Markup returns the multiplier used to estimate a price in a market the item is not listed in
func (p *Profiles) Markup(m types.Market) float64 {
	if v, ok := p.markup[m]; ok {
		return v
	}
	return FallbackMarkup
}

// Validate checks home market and rate bounds
func (p *Profiles) Validate() error {
	if !p.home.IsValid() {
		return errors.Newf(errors.TypeConfig, "unknown home market %q", p.home)
	}
	for _, m := range determinism.SortedKeys(p.tax) {
		v := p.tax[m]
		if !m.IsValid() {
			return errors.Newf(errors.TypeConfig, "tax rate for unknown market %q", m)
		}
		if math.IsNaN(v) || v < 0 || v >= 1 {
			return errors.Newf(errors.TypeConfig, "tax rate for %s must be in [0,1), got %v", m, v)
		}
	}
	for _, m := range determinism.SortedKeys(p.markup) {
		v := p.markup[m]
		if !m.IsValid() {
			return errors.Newf(errors.TypeConfig, "markup for unknown market %q", m)
		}
		if !types.Known(v) {
			return errors.Newf(errors.TypeConfig, "markup for %s must be positive, got %v", m, v)
		}
	}
	return nil
}

// Fingerprint returns a stable hash of the tables, used in cache keys
func (p *Profiles) Fingerprint() string {
	h := determinism.NewHasher().Add("home", p.home)
	for _, m := range types.Markets() {
		h.Add(m, fmt.Sprintf("%g", p.TaxRate(m)), fmt.Sprintf("%g", p.Markup(m)))
	}
	return h.Sum().Short()
}
