package pricing

import (
	"github.com/shopspring/decimal"

	"crossmarket/core/types"
)

var one = decimal.NewFromInt(1)

// NetCost converts a tax-included gross price into net acquisition cost.
//
// In the home market the discount applies to the tax-included price before tax
// is removed:  gross/(1+tax) - gross*discount.
// Elsewhere tax is removed first and the discount applies to the net amount:
// gross/(1+tax) * (1-discount).
//
// A non-positive gross yields zero and the result never goes below zero.
func NetCost(gross float64, market types.Market, discount float64, profiles *Profiles) decimal.Decimal {
	if !types.Known(gross) {
		return decimal.Zero
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}

	g := decimal.NewFromFloat(gross)
	d := decimal.NewFromFloat(discount)
	exTax := g.Div(one.Add(decimal.NewFromFloat(profiles.TaxRate(market))))

	var net decimal.Decimal
	if market == profiles.Home() {
		net = exTax.Sub(g.Mul(d))
	} else {
		net = exTax.Mul(one.Sub(d))
	}

	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
