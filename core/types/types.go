// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and their defaults.
package types

import "strings"

// Market is a national marketplace code
type Market string

const (
	MarketIT Market = "it"
	MarketDE Market = "de"
	MarketFR Market = "fr"
	MarketES Market = "es"
)

// HomeMarket is the market whose tax order-of-operations differs
const HomeMarket = MarketIT

var marketOrder = []Market{MarketIT, MarketDE, MarketFR, MarketES}

var marketAliases = map[string]Market{
	"it":          MarketIT,
	"ita":         MarketIT,
	"italy":       MarketIT,
	"italia":      MarketIT,
	"de":          MarketDE,
	"deu":         MarketDE,
	"germany":     MarketDE,
	"deutschland": MarketDE,
	"fr":          MarketFR,
	"fra":         MarketFR,
	"france":      MarketFR,
	"es":          MarketES,
	"esp":         MarketES,
	"spain":       MarketES,
	"españa":      MarketES,
	"espana":      MarketES,
}

// Markets returns all supported markets in their fixed iteration order
func Markets() []Market {
	out := make([]Market, len(marketOrder))
	copy(out, marketOrder)
	return out
}

// ParseMarket normalizes a market code or country name
func ParseMarket(s string) (Market, bool) {
	m, ok := marketAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// String returns the string representation of the market
func (m Market) String() string {
	return string(m)
}

// Upper returns the display form of the market code (e.g. "IT")
func (m Market) Upper() string {
	return strings.ToUpper(string(m))
}

// IsValid checks if the market is a supported market
func (m Market) IsValid() bool {
	return m.Index() >= 0
}

// Index returns the position in the fixed market order, or -1
func (m Market) Index() int {
	for i, known := range marketOrder {
		if known == m {
			return i
		}
	}
	return -1
}

// Strategy names the listing price field used as the purchase price
type Strategy string

const (
	StrategyBuyBox Strategy = "buy_box"
	StrategyAmazon Strategy = "amazon"
	StrategyNewFBA Strategy = "new_fba"
	StrategyNewFBM Strategy = "new_fbm"
)

// Strategies returns the known strategies
func Strategies() []Strategy {
	return []Strategy{StrategyBuyBox, StrategyAmazon, StrategyNewFBA, StrategyNewFBM}
}

// IsValid checks if the strategy is known
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyBuyBox, StrategyAmazon, StrategyNewFBA, StrategyNewFBM:
		return true
	default:
		return false
	}
}

// Scenario is the holding horizon used to adjust an observed target price
type Scenario string

const (
	ScenarioShort  Scenario = "short"
	ScenarioMedium Scenario = "medium"
	ScenarioLong   Scenario = "long"
)

// Multiplier returns the price multiplier for the scenario (unknown ⇒ 1.00)
func (s Scenario) Multiplier() float64 {
	switch s {
	case ScenarioShort:
		return 0.95
	case ScenarioLong:
		return 1.05
	default:
		return 1.00
	}
}

// Channel is the sales path used to realize a sale
type Channel string

const (
	// ChannelMarketplace sells through the destination marketplace
	ChannelMarketplace Channel = "marketplace"

	// ChannelDirect sells direct-to-consumer with a platform cut and own shipping
	ChannelDirect Channel = "direct"
)

// FulfillmentMode selects how marketplace orders are shipped
type FulfillmentMode string

const (
	// FulfillmentManaged uses the marketplace's fulfillment service (FBA)
	FulfillmentManaged FulfillmentMode = "managed"

	// FulfillmentSelf ships orders from own stock (FBM)
	FulfillmentSelf FulfillmentMode = "self"
)

// ParseFulfillmentMode accepts managed/self and the FBA/FBM shorthands
func ParseFulfillmentMode(s string) (FulfillmentMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "managed", "fba":
		return FulfillmentManaged, true
	case "self", "fbm":
		return FulfillmentSelf, true
	default:
		return "", false
	}
}
