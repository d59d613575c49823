// Package analysis derives run-level insights from ranked opportunities.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"crossmarket/core/types"
)

// TopRoutesLimit caps the number of routes reported in a summary
const TopRoutesLimit = 10

// RouteStat aggregates the opportunities that share a route label
type RouteStat struct {
	Label     string  `json:"label"`
	Count     int     `json:"count"`
	AvgScore  float64 `json:"avg_score"`
	AvgROI    float64 `json:"avg_roi"`
	AvgMargin float64 `json:"avg_margin"`
}

// Summary describes a whole run
type Summary struct {
	TotalItems        int            `json:"total_items"`
	ProfitableItems   int            `json:"profitable_items"`
	ProfitableRate    float64        `json:"profitable_rate"`
	AvgScore          float64        `json:"avg_score"`
	AvgROI            float64        `json:"avg_roi"`
	AvgMargin         float64        `json:"avg_margin"`
	RouteDistribution map[string]int `json:"route_distribution"`
	TopRoutes         []RouteStat    `json:"top_routes"`
	BestRoute         string         `json:"best_route,omitempty"`
	Text              string         `json:"text"`
}

// Summarize aggregates opportunities against the number of items scanned
func Summarize(opps []*types.Opportunity, totalItems int) Summary {
	s := Summary{
		TotalItems:        totalItems,
		ProfitableItems:   len(opps),
		RouteDistribution: make(map[string]int),
		TopRoutes:         []RouteStat{},
	}
	if len(opps) == 0 {
		s.Text = "No profitable routes found"
		return s
	}

	byRoute := make(map[string]*RouteStat)
	for _, o := range opps {
		s.AvgScore += o.Scores.Opportunity
		s.AvgROI += o.Metrics.ROIPct
		s.AvgMargin += o.Metrics.MarginPct

		rs, ok := byRoute[o.Label]
		if !ok {
			rs = &RouteStat{Label: o.Label}
			byRoute[o.Label] = rs
		}
		rs.Count++
		rs.AvgScore += o.Scores.Opportunity
		rs.AvgROI += o.Metrics.ROIPct
		rs.AvgMargin += o.Metrics.MarginPct
	}
	n := float64(len(opps))
	s.AvgScore /= n
	s.AvgROI /= n
	s.AvgMargin /= n
	if totalItems > 0 {
		s.ProfitableRate = n / float64(totalItems) * 100
	}

	for label, rs := range byRoute {
		c := float64(rs.Count)
		rs.AvgScore /= c
		rs.AvgROI /= c
		rs.AvgMargin /= c
		s.RouteDistribution[label] = rs.Count
		s.TopRoutes = append(s.TopRoutes, *rs)
	}

	// most frequent route; ties by label
	routes := make([]RouteStat, len(s.TopRoutes))
	copy(routes, s.TopRoutes)
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Count != routes[j].Count {
			return routes[i].Count > routes[j].Count
		}
		return routes[i].Label < routes[j].Label
	})
	s.BestRoute = routes[0].Label

	sort.Slice(s.TopRoutes, func(i, j int) bool {
		a, b := s.TopRoutes[i], s.TopRoutes[j]
		if a.AvgScore != b.AvgScore {
			return a.AvgScore > b.AvgScore
		}
		return a.Label < b.Label
	})
	if len(s.TopRoutes) > TopRoutesLimit {
		s.TopRoutes = s.TopRoutes[:TopRoutesLimit]
	}

	s.Text = fmt.Sprintf("Found %d profitable items out of %d (%.1f%%). Best route: %s with %d items.",
		s.ProfitableItems, s.TotalItems, s.ProfitableRate, s.BestRoute, routes[0].Count)
	return s
}

// PriceVolatilityIndex scores price stability from the buy box history, 0 meaning
// maximum volatility. It blends the coefficients of variation over 30, 90 and 365
// days with weights 0.5, 0.3 and 0.2.
func PriceVolatilityIndex(l *types.Listing) float64 {
	cv := func(std, avg float64) float64 {
		if !types.Known(avg) || !types.Known(std) {
			return 0
		}
		return std / avg
	}
	weighted := cv(l.BuyBoxStdDev30, l.BuyBoxAvg30)*0.5 +
		cv(l.BuyBoxStdDev90, l.BuyBoxAvg90)*0.3 +
		cv(l.BuyBoxStdDev365, l.BuyBoxAvg365)*0.2
	return math.Max(0, 100-weighted*200)
}
