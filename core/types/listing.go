// Package types - Listing rows and their field defaults
package types

import "math"

// Field defaults applied when a listing value is unknown
const (
	DefaultSalesRank       = 999999
	DefaultRating          = 0.0
	DefaultBoughtPastMonth = 0.0
	DefaultDominantShare   = 50.0
	DefaultSellerCount     = 5.0
	DefaultOutOfStockPct   = 0.0
	DefaultCommissionRate  = 0.15
	DefaultFulfillmentFee  = 3.00
	DefaultWeightKg        = 0.5
)

// Listing is one row per (item identity, market).
// Zero, negative, NaN or Inf numeric values mean "unknown".
type Listing struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title,omitempty"`
	Market Market `json:"market"`

	// Strategy prices
	BuyBoxPrice float64 `json:"buy_box_price,omitempty"`
	AmazonPrice float64 `json:"amazon_price,omitempty"`
	NewFBAPrice float64 `json:"new_fba_price,omitempty"`
	NewFBMPrice float64 `json:"new_fbm_price,omitempty"`

	// Historical aggregates
	BuyBoxAvg30     float64 `json:"buy_box_avg_30,omitempty"`
	BuyBoxAvg90     float64 `json:"buy_box_avg_90,omitempty"`
	BuyBoxAvg365    float64 `json:"buy_box_avg_365,omitempty"`
	BuyBoxStdDev30  float64 `json:"buy_box_stddev_30,omitempty"`
	BuyBoxStdDev90  float64 `json:"buy_box_stddev_90,omitempty"`
	BuyBoxStdDev365 float64 `json:"buy_box_stddev_365,omitempty"`
	SalesRankAvg30  float64 `json:"sales_rank_avg_30,omitempty"`

	// Demand signals
	SalesRank       float64 `json:"sales_rank,omitempty"`
	Rating          float64 `json:"rating,omitempty"`
	ReviewCount     float64 `json:"review_count,omitempty"`
	BoughtPastMonth float64 `json:"bought_past_month,omitempty"`

	// Competitive signals (percentages are 0-100)
	DominantSellerShare float64 `json:"dominant_seller_share,omitempty"`
	SellerCount         float64 `json:"seller_count,omitempty"`
	OutOfStockPct       float64 `json:"out_of_stock_pct,omitempty"`

	// Fee inputs
	CommissionRate float64 `json:"commission_rate,omitempty"`
	FulfillmentFee float64 `json:"fulfillment_fee,omitempty"`
	WeightKg       float64 `json:"weight_kg,omitempty"`
}

// Known reports whether v is a usable positive finite number
func Known(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func or(v, def float64) float64 {
	if Known(v) {
		return v
	}
	return def
}

// SalesRankOr returns the sales rank or 999999
func (l *Listing) SalesRankOr() float64 {
	return or(l.SalesRank, DefaultSalesRank)
}

// RatingOr returns the star rating or 0
func (l *Listing) RatingOr() float64 {
	return or(l.Rating, DefaultRating)
}

// BoughtPastMonthOr returns recent unit sales or 0
func (l *Listing) BoughtPastMonthOr() float64 {
	return or(l.BoughtPastMonth, DefaultBoughtPastMonth)
}

// DominantShareOr returns the dominant seller's buy box share in percent or 50
func (l *Listing) DominantShareOr() float64 {
	return or(l.DominantSellerShare, DefaultDominantShare)
}

// SellerCountOr returns the offer count or 5
func (l *Listing) SellerCountOr() float64 {
	return or(l.SellerCount, DefaultSellerCount)
}

// OutOfStockOr returns the 90 day out-of-stock ratio in percent or 0
func (l *Listing) OutOfStockOr() float64 {
	return or(l.OutOfStockPct, DefaultOutOfStockPct)
}

// CommissionRateOr returns the referral rate as a fraction or 0.15.
// Values above 1 are read as percentages.
func (l *Listing) CommissionRateOr() float64 {
	if !Known(l.CommissionRate) {
		return DefaultCommissionRate
	}
	rate := l.CommissionRate
	if rate > 1 {
		rate /= 100
	}
	if rate >= 1 {
		return DefaultCommissionRate
	}
	return rate
}

// FulfillmentFeeOr returns the managed fulfillment fee per unit or 3.00
func (l *Listing) FulfillmentFeeOr() float64 {
	return or(l.FulfillmentFee, DefaultFulfillmentFee)
}

// WeightOr returns the package weight in kg or 0.5
func (l *Listing) WeightOr() float64 {
	return or(l.WeightKg, DefaultWeightKg)
}

// PriceFor returns the raw price field for a strategy
func (l *Listing) PriceFor(s Strategy) (float64, bool) {
	switch s {
	case StrategyBuyBox:
		return l.BuyBoxPrice, true
	case StrategyAmazon:
		return l.AmazonPrice, true
	case StrategyNewFBA:
		return l.NewFBAPrice, true
	case StrategyNewFBM:
		return l.NewFBMPrice, true
	default:
		return 0, false
	}
}
