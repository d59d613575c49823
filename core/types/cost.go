// Package types - Cost, fee and route result types
package types

import "github.com/shopspring/decimal"

// CostBreakdown is the acquisition cost of one unit plus its recurring provisions
type CostBreakdown struct {
	NetCost        decimal.Decimal `json:"net_cost"`
	InboundFreight decimal.Decimal `json:"inbound_freight"`
	ReturnsLoss    decimal.Decimal `json:"returns_loss"`
	Storage        decimal.Decimal `json:"storage"`
	Misc           decimal.Decimal `json:"misc"`
	Total          decimal.Decimal `json:"total"`
}

// NewCostBreakdown builds a breakdown and derives its total
func NewCostBreakdown(net, inbound, returns, storage, misc decimal.Decimal) CostBreakdown {
	return CostBreakdown{
		NetCost:        net,
		InboundFreight: inbound,
		ReturnsLoss:    returns,
		Storage:        storage,
		Misc:           misc,
		Total:          decimal.Sum(net, inbound, returns, storage, misc),
	}
}

// Investment is the capital tied up per unit (net cost plus inbound freight)
func (c CostBreakdown) Investment() decimal.Decimal {
	return c.NetCost.Add(c.InboundFreight)
}

// FeeBreakdown itemizes the fees of one sales channel
type FeeBreakdown struct {
	Channel     Channel         `json:"channel"`
	Commission  decimal.Decimal `json:"commission"`
	Fulfillment decimal.Decimal `json:"fulfillment"`
	Total       decimal.Decimal `json:"total"`
}

// ZeroFees returns an all-zero breakdown for a channel
func ZeroFees(ch Channel) FeeBreakdown {
	return FeeBreakdown{Channel: ch, Commission: decimal.Zero, Fulfillment: decimal.Zero, Total: decimal.Zero}
}

// ChannelResult is the outcome of selling through one channel
type ChannelResult struct {
	Fees      FeeBreakdown    `json:"fees"`
	Profit    decimal.Decimal `json:"profit"`
	MarginPct float64         `json:"margin_pct"`
	ROIPct    float64         `json:"roi_pct"`
}

// Metrics is the profit evaluation of one source→destination pair
type Metrics struct {
	Viable        bool            `json:"viable"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	Costs         CostBreakdown   `json:"costs"`
	Marketplace   ChannelResult   `json:"marketplace"`
	Direct        ChannelResult   `json:"direct"`
	BestChannel   Channel         `json:"best_channel"`
	ChannelDelta  decimal.Decimal `json:"channel_delta"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPct     float64         `json:"margin_pct"`
	ROIPct        float64         `json:"roi_pct"`
}

// Best returns the result of the chosen channel
func (m Metrics) Best() ChannelResult {
	if m.BestChannel == ChannelDirect {
		return m.Direct
	}
	return m.Marketplace
}

// ZeroMetrics returns the non-viable all-zero metrics
func ZeroMetrics() Metrics {
	zero := ChannelResult{Profit: decimal.Zero}
	mkt := zero
	mkt.Fees = ZeroFees(ChannelMarketplace)
	direct := zero
	direct.Fees = ZeroFees(ChannelDirect)
	return Metrics{
		Viable:        false,
		PurchasePrice: decimal.Zero,
		TargetPrice:   decimal.Zero,
		Costs:         NewCostBreakdown(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero),
		Marketplace:   mkt,
		Direct:        direct,
		BestChannel:   ChannelMarketplace,
		ChannelDelta:  decimal.Zero,
		Profit:        decimal.Zero,
	}
}

// Scores holds the sub-scores and the combined opportunity score, all in [0,100]
type Scores struct {
	Profit      float64 `json:"profit"`
	Velocity    float64 `json:"velocity"`
	Competition float64 `json:"competition"`
	Opportunity float64 `json:"opportunity"`
}

// Route is one evaluated source→destination pair for an item
type Route struct {
	ItemID         string  `json:"item_id"`
	Title          string  `json:"title,omitempty"`
	Source         Market  `json:"source"`
	Destination    Market  `json:"destination"`
	TargetObserved bool    `json:"target_observed"`
	Metrics        Metrics `json:"metrics"`
	Scores         Scores  `json:"scores"`
}

// Label returns the route in display form, e.g. "IT->DE"
func (r Route) Label() string {
	return r.Source.Upper() + "->" + r.Destination.Upper()
}

// Opportunity is the single winning route for an item in one run
type Opportunity struct {
	Route

	// Label is the display form of the route
	Label string `json:"label"`

	// Listing is the source listing the route was evaluated from
	Listing Listing `json:"-"`
}

// NewOpportunity wraps a winning route
func NewOpportunity(r Route, source Listing) *Opportunity {
	return &Opportunity{Route: r, Label: r.Label(), Listing: source}
}
