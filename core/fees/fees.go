// Package fees computes per-channel selling fees.
package fees

import (
	"github.com/shopspring/decimal"

	"crossmarket/core/types"
)

// WeightBand is a shipping tier for parcels lighter than MaxKg
type WeightBand struct {
	MaxKg float64         `json:"max_kg" yaml:"max_kg"`
	Fee   decimal.Decimal `json:"fee" yaml:"fee"`
}

// Schedule is the fee table for both channels
type Schedule struct {
	// CommissionRate is the marketplace referral rate used when the listing has none
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`

	// ManagedFee is the per-unit managed fulfillment fee used when the listing has none
	ManagedFee decimal.Decimal `json:"managed_fee" yaml:"managed_fee"`

	// Bands are ordered ascending by MaxKg; heavier parcels pay HeavyFee
	Bands    []WeightBand    `json:"bands" yaml:"bands"`
	HeavyFee decimal.Decimal `json:"heavy_fee" yaml:"heavy_fee"`

	// InternationalSurcharge applies to self-fulfilled marketplace orders shipped abroad
	InternationalSurcharge decimal.Decimal `json:"international_surcharge" yaml:"international_surcharge"`

	// DirectPlatformRate is the platform cut on direct sales
	DirectPlatformRate float64 `json:"direct_platform_rate" yaml:"direct_platform_rate"`

	// DirectCrossBorder is the flat shipping fee for any direct sale shipped abroad
	DirectCrossBorder decimal.Decimal `json:"direct_cross_border" yaml:"direct_cross_border"`
}

// DefaultSchedule returns the standard fee table
func DefaultSchedule() Schedule {
	return Schedule{
		CommissionRate: types.DefaultCommissionRate,
		ManagedFee:     decimal.NewFromFloat(types.DefaultFulfillmentFee),
		Bands: []WeightBand{
			{MaxKg: 1, Fee: decimal.NewFromFloat(4.50)},
			{MaxKg: 3, Fee: decimal.NewFromFloat(6.50)},
		},
		HeavyFee:               decimal.NewFromFloat(9.50),
		InternationalSurcharge: decimal.NewFromFloat(3.00),
		DirectPlatformRate:     0.05,
		DirectCrossBorder:      decimal.NewFromFloat(11.00),
	}
}

// Calculator computes fee breakdowns against a schedule
type Calculator struct {
	schedule Schedule
}

// NewCalculator creates a calculator
func NewCalculator(schedule Schedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// Schedule returns the calculator's fee table
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// Fees returns the fees of selling one unit at salePrice in destination through channel.
// Cross-border means destination differs from the listing's own market.
// A non-positive sale price yields an all-zero breakdown.
func (c *Calculator) Fees(l *types.Listing, salePrice decimal.Decimal, destination types.Market, channel types.Channel, mode types.FulfillmentMode) types.FeeBreakdown {
	if l == nil || !salePrice.IsPositive() {
		return types.ZeroFees(channel)
	}
	crossBorder := destination != l.Market

	var commission, fulfillment decimal.Decimal
	switch channel {
	case types.ChannelDirect:
		commission = salePrice.Mul(decimal.NewFromFloat(c.schedule.DirectPlatformRate))
		if crossBorder {
			fulfillment = c.schedule.DirectCrossBorder
		} else {
			fulfillment = c.shipping(l.WeightOr())
		}
	default:
		channel = types.ChannelMarketplace
		commission = salePrice.Mul(decimal.NewFromFloat(c.commissionRate(l)))
		if mode == types.FulfillmentSelf {
			fulfillment = c.shipping(l.WeightOr())
			if crossBorder {
				fulfillment = fulfillment.Add(c.schedule.InternationalSurcharge)
			}
		} else {
			fulfillment = c.managedFee(l)
		}
	}

	return types.FeeBreakdown{
		Channel:     channel,
		Commission:  commission,
		Fulfillment: fulfillment,
		Total:       commission.Add(fulfillment),
	}
}

func (c *Calculator) commissionRate(l *types.Listing) float64 {
	if types.Known(l.CommissionRate) {
		return l.CommissionRateOr()
	}
	return c.schedule.CommissionRate
}

func (c *Calculator) managedFee(l *types.Listing) decimal.Decimal {
	if types.Known(l.FulfillmentFee) {
		return decimal.NewFromFloat(l.FulfillmentFee)
	}
	return c.schedule.ManagedFee
}

// shipping returns the weight-banded parcel fee
func (c *Calculator) shipping(weightKg float64) decimal.Decimal {
	for _, b := range c.schedule.Bands {
		if weightKg < b.MaxKg {
			return b.Fee
		}
	}
	return c.schedule.HeavyFee
}
