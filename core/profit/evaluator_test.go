package profit

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"crossmarket/core/types"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestRouteMetricsObservedTarget(t *testing.T) {
	e := NewEvaluator(nil, nil)
	params := types.DefaultParams()
	l := &types.Listing{ItemID: "B01", Market: types.MarketIT, BuyBoxPrice: 460}
	target := decimal.NewFromFloat(468)

	m := e.RouteMetrics(l, types.MarketIT, types.MarketDE, params, &target)
	if !m.Viable {
		t.Fatal("expected viable metrics")
	}

	// net = 460/1.22 - 460*0.21 = 280.45
	net, _ := m.Costs.NetCost.Float64()
	if !near(net, 280.45, 0.01) {
		t.Errorf("net cost = %.4f, want 280.45", net)
	}
	// 2.00 + 2% + 0.8% of 468 + 1.00
	provisions, _ := m.Costs.Total.Sub(m.Costs.NetCost).Float64()
	if !near(provisions, 16.104, 0.001) {
		t.Errorf("provisions = %.4f, want 16.104", provisions)
	}

	// marketplace: 15% commission + 3.00 managed fee
	mktFees, _ := m.Marketplace.Fees.Total.Float64()
	if !near(mktFees, 73.2, 1e-9) {
		t.Errorf("marketplace fees = %v, want 73.2", mktFees)
	}
	// direct: 5% platform + 11.00 cross-border
	directFees, _ := m.Direct.Fees.Total.Float64()
	if !near(directFees, 34.4, 1e-9) {
		t.Errorf("direct fees = %v, want 34.4", directFees)
	}

	if m.BestChannel != types.ChannelDirect {
		t.Errorf("best channel = %s, want direct", m.BestChannel)
	}
	delta := m.Direct.Profit.Sub(m.Marketplace.Profit)
	if !m.ChannelDelta.Equal(delta) {
		t.Errorf("delta = %s, want %s", m.ChannelDelta, delta)
	}

	profit, _ := m.Profit.Float64()
	wantROI := profit / (net + 2) * 100
	if !near(m.ROIPct, wantROI, 0.01) {
		t.Errorf("ROI = %.4f, want %.4f", m.ROIPct, wantROI)
	}
	if !near(m.MarginPct, profit/468*100, 0.01) {
		t.Errorf("margin = %.4f", m.MarginPct)
	}
	t.Logf("profit=%.2f roi=%.2f%% margin=%.2f%%", profit, m.ROIPct, m.MarginPct)
}

func TestRouteMetricsScenarioTarget(t *testing.T) {
	e := NewEvaluator(nil, nil)
	l := &types.Listing{Market: types.MarketDE, BuyBoxPrice: 100}

	for _, tt := range []struct {
		scenario types.Scenario
		want     float64
	}{
		{types.ScenarioShort, 95},
		{types.ScenarioMedium, 100},
		{types.ScenarioLong, 105},
		{"", 100},
	} {
		t.Run(string(tt.scenario), func(t *testing.T) {
			p := types.DefaultParams()
			p.Scenario = tt.scenario
			m := e.RouteMetrics(l, types.MarketDE, types.MarketFR, p, nil)
			got, _ := m.TargetPrice.Float64()
			if !near(got, tt.want, 1e-9) {
				t.Errorf("target = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouteMetricsNonViable(t *testing.T) {
	e := NewEvaluator(nil, nil)
	params := types.DefaultParams()
	zero := decimal.Zero

	tests := []struct {
		name    string
		listing *types.Listing
		target  *decimal.Decimal
	}{
		{"no purchase price", &types.Listing{Market: types.MarketIT, AmazonPrice: 50}, nil},
		{"zero custom target", &types.Listing{Market: types.MarketIT, BuyBoxPrice: 50}, &zero},
		{"nil listing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := e.RouteMetrics(tt.listing, types.MarketIT, types.MarketDE, params, tt.target)
			if m.Viable {
				t.Fatal("expected non-viable metrics")
			}
			if !m.Profit.IsZero() || m.ROIPct != 0 || m.MarginPct != 0 || !m.Costs.Total.IsZero() {
				t.Errorf("expected all-zero metrics, got %+v", m)
			}
		})
	}
}

func TestChannelTiePrefersMarketplace(t *testing.T) {
	e := NewEvaluator(nil, nil)
	params := types.DefaultParams()
	// direct domestic: 5% + 4.50; marketplace: 1% listing commission + 8.50 listing fee
	l := &types.Listing{Market: types.MarketFR, BuyBoxPrice: 100, CommissionRate: 0.01, FulfillmentFee: 8.5}
	target := decimal.NewFromFloat(100)

	m := e.RouteMetrics(l, types.MarketFR, types.MarketFR, params, &target)
	if !m.Marketplace.Fees.Total.Equal(m.Direct.Fees.Total) {
		t.Fatalf("fixture should tie: %s vs %s", m.Marketplace.Fees.Total, m.Direct.Fees.Total)
	}
	if m.BestChannel != types.ChannelMarketplace {
		t.Errorf("tie should prefer marketplace, got %s", m.BestChannel)
	}
	if !m.ChannelDelta.IsZero() {
		t.Errorf("delta = %s, want 0", m.ChannelDelta)
	}
}

func TestDiscountNeverDecreasesProfit(t *testing.T) {
	e := NewEvaluator(nil, nil)
	target := decimal.NewFromFloat(180)
	for _, m := range types.Markets() {
		l := &types.Listing{Market: m, BuyBoxPrice: 120}
		var prev *decimal.Decimal
		for d := 0.0; d < 0.95; d += 0.05 {
			p := types.DefaultParams()
			p.Discount = d
			got := e.RouteMetrics(l, m, types.MarketDE, p, &target)
			if prev != nil && got.Profit.LessThan(*prev) {
				t.Fatalf("%s: profit fell from %s to %s at discount %.2f", m, prev, got.Profit, d)
			}
			profit := got.Profit
			prev = &profit
		}
	}
}
