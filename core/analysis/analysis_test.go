package analysis

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"crossmarket/core/types"
)

func opp(item string, src, dst types.Market, score, roi, margin float64) *types.Opportunity {
	r := types.Route{ItemID: item, Source: src, Destination: dst, Scores: types.Scores{Opportunity: score}}
	r.Metrics.ROIPct = roi
	r.Metrics.MarginPct = margin
	return types.NewOpportunity(r, types.Listing{ItemID: item, Market: src})
}

func TestSummarize(t *testing.T) {
	opps := []*types.Opportunity{
		opp("A", types.MarketIT, types.MarketDE, 80, 40, 30),
		opp("B", types.MarketIT, types.MarketDE, 60, 20, 20),
		opp("C", types.MarketES, types.MarketFR, 90, 50, 35),
	}

	s := Summarize(opps, 10)
	if s.ProfitableItems != 3 || s.TotalItems != 10 {
		t.Fatalf("counts = %d/%d", s.ProfitableItems, s.TotalItems)
	}
	if math.Abs(s.ProfitableRate-30) > 1e-9 {
		t.Errorf("rate = %v, want 30", s.ProfitableRate)
	}
	if math.Abs(s.AvgScore-230.0/3) > 1e-9 {
		t.Errorf("avg score = %v", s.AvgScore)
	}
	if s.RouteDistribution["IT->DE"] != 2 || s.RouteDistribution["ES->FR"] != 1 {
		t.Errorf("distribution = %v", s.RouteDistribution)
	}
	if s.BestRoute != "IT->DE" {
		t.Errorf("best route = %s, want IT->DE", s.BestRoute)
	}
	if len(s.TopRoutes) != 2 || s.TopRoutes[0].Label != "ES->FR" {
		t.Errorf("top routes = %+v", s.TopRoutes)
	}
	if s.TopRoutes[1].AvgScore != 70 {
		t.Errorf("IT->DE avg score = %v, want 70", s.TopRoutes[1].AvgScore)
	}
	t.Log(s.Text)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 5)
	if s.ProfitableItems != 0 || s.Text == "" || s.TopRoutes == nil {
		t.Errorf("unexpected empty summary %+v", s)
	}
}

func TestPriceVolatilityIndex(t *testing.T) {
	tests := []struct {
		name string
		l    types.Listing
		want float64
	}{
		{"no history", types.Listing{}, 100},
		{"stable", types.Listing{BuyBoxAvg30: 100, BuyBoxStdDev30: 5, BuyBoxAvg90: 100, BuyBoxStdDev90: 5, BuyBoxAvg365: 100, BuyBoxStdDev365: 5}, 90},
		{"volatile", types.Listing{BuyBoxAvg30: 100, BuyBoxStdDev30: 100, BuyBoxAvg90: 100, BuyBoxStdDev90: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PriceVolatilityIndex(&tt.l); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PriceVolatilityIndex = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssessSustainability(t *testing.T) {
	good := opp("A", types.MarketIT, types.MarketDE, 70, 35, 25)
	good.Metrics.Profit = decimal.NewFromFloat(25)
	good.Metrics.TargetPrice = decimal.NewFromFloat(80)
	good.Listing.SalesRank = 1200
	good.Listing.DominantSellerShare = 20

	s := AssessSustainability(good)
	if s.Level != LevelExcellent || !s.Sustainable || s.Confidence != 100 {
		t.Errorf("expected excellent, got %+v", s)
	}

	poor := opp("B", types.MarketIT, types.MarketDE, 40, 120, 50)
	poor.Metrics.Profit = decimal.NewFromFloat(3)
	poor.Metrics.TargetPrice = decimal.NewFromFloat(12)

	s = AssessSustainability(poor)
	// ROI, sales rank (unknown), profit and price checks fail
	if len(s.Warnings) != 4 {
		t.Fatalf("warnings = %v", s.Warnings)
	}
	if s.Level != LevelPoor || s.Sustainable {
		t.Errorf("expected poor, got %s", s.Level)
	}
	if s.Confidence != 40 || s.ChecksPassed != 2 {
		t.Errorf("confidence = %v, passed = %d", s.Confidence, s.ChecksPassed)
	}
}
