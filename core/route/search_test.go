package route

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"crossmarket/core/pricing"
	"crossmarket/core/profit"
	"crossmarket/core/types"
)

func listing(item string, m types.Market, price float64) types.Listing {
	return types.Listing{ItemID: item, Market: m, BuyBoxPrice: price}
}

func TestSingleMarketYieldsNothing(t *testing.T) {
	tests := []struct {
		name     string
		listings map[types.Market]types.Listing
	}{
		{"one market", map[types.Market]types.Listing{
			types.MarketIT: listing("B01", types.MarketIT, 100),
		}},
		{"unknown second market", map[types.Market]types.Listing{
			types.MarketIT:     listing("B01", types.MarketIT, 100),
			types.Market("uk"): listing("B01", types.Market("uk"), 100),
		}},
	}
	s := NewSearcher(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp, stats := s.Best("B01", tt.listings, types.DefaultParams())
			if opp != nil {
				t.Fatalf("expected no opportunity, got %s", opp.Label)
			}
			if stats.Evaluated != 0 {
				t.Errorf("expected no evaluations, got %d", stats.Evaluated)
			}
		})
	}
}

func TestObservedPriceGapProposesCheapSource(t *testing.T) {
	// only the observed DE price offers headroom
	profiles, err := pricing.NewProfiles(types.MarketIT,
		map[types.Market]float64{types.MarketIT: 0.22, types.MarketDE: 0.19, types.MarketFR: 0.20, types.MarketES: 0.21},
		map[types.Market]float64{types.MarketIT: 1.00, types.MarketDE: 1.05, types.MarketFR: 1.00, types.MarketES: 1.00})
	if err != nil {
		t.Fatalf("NewProfiles: %v", err)
	}
	s := NewSearcher(profit.NewEvaluator(profiles, nil), nil)

	opp, stats := s.Best("B01", map[types.Market]types.Listing{
		types.MarketIT: listing("B01", types.MarketIT, 460),
		types.MarketDE: listing("B01", types.MarketDE, 468),
	}, types.DefaultParams())

	if opp == nil {
		t.Fatalf("expected an opportunity, stats %+v", stats)
	}
	if opp.Source != types.MarketIT || opp.Destination != types.MarketDE {
		t.Fatalf("route = %s, want IT->DE", opp.Label)
	}
	if !opp.TargetObserved {
		t.Error("target should be the observed DE price")
	}
	if opp.Label != "IT->DE" {
		t.Errorf("label = %q", opp.Label)
	}
	t.Logf("%s score=%.1f roi=%.1f%% margin=%.1f%% channel=%s",
		opp.Label, opp.Scores.Opportunity, opp.Metrics.ROIPct, opp.Metrics.MarginPct, opp.Metrics.BestChannel)
}

func TestExpensiveSourceNeverWinsAgainstCheaperObservedPrice(t *testing.T) {
	s := NewSearcher(nil, nil)
	opp, _ := s.Best("B01", map[types.Market]types.Listing{
		types.MarketIT: listing("B01", types.MarketIT, 460),
		types.MarketDE: listing("B01", types.MarketDE, 468),
	}, types.DefaultParams())

	if opp != nil && opp.Source == types.MarketDE && opp.Destination == types.MarketIT {
		t.Fatal("DE->IT has no headroom and must never be proposed")
	}
}

func TestRouteInvariants(t *testing.T) {
	s := NewSearcher(nil, nil)
	params := types.DefaultParams()
	params.MinROI = -1000
	params.MinMargin = -1000

	prices := []float64{5, 12.5, 40, 99, 250, 600}
	n := 0
	for _, a := range prices {
		for _, b := range prices {
			for _, c := range prices {
				item := fmt.Sprintf("I%03d", n)
				n++
				opp, _ := s.Best(item, map[types.Market]types.Listing{
					types.MarketIT: listing(item, types.MarketIT, a),
					types.MarketDE: listing(item, types.MarketDE, b),
					types.MarketES: listing(item, types.MarketES, c),
				}, params)
				if opp == nil {
					continue
				}
				if opp.Source == opp.Destination {
					t.Fatalf("%s: source equals destination", item)
				}
				if opp.Metrics.ROIPct <= 0 {
					t.Fatalf("%s: emitted ROI %.2f", item, opp.Metrics.ROIPct)
				}
				if opp.Scores.Opportunity < 0 || opp.Scores.Opportunity > 100 {
					t.Fatalf("%s: score %.2f out of bounds", item, opp.Scores.Opportunity)
				}
			}
		}
	}
}

func TestThresholdsFilterRoutes(t *testing.T) {
	s := NewSearcher(nil, nil)
	params := types.DefaultParams()
	params.MinROI = 10000

	opp, stats := s.Best("B01", map[types.Market]types.Listing{
		types.MarketIT: listing("B01", types.MarketIT, 100),
		types.MarketDE: listing("B01", types.MarketDE, 300),
	}, params)
	if opp != nil {
		t.Fatalf("expected thresholds to reject every route, got %s", opp.Label)
	}
	if stats.BelowThreshold == 0 {
		t.Errorf("expected below-threshold pairs, stats %+v", stats)
	}
}

func TestIdempotent(t *testing.T) {
	s := NewSearcher(nil, nil)
	group := map[types.Market]types.Listing{
		types.MarketIT: listing("B01", types.MarketIT, 80),
		types.MarketFR: listing("B01", types.MarketFR, 140),
	}
	first, _ := s.Best("B01", group, types.DefaultParams())
	for i := 0; i < 5; i++ {
		again, _ := s.Best("B01", group, types.DefaultParams())
		if (first == nil) != (again == nil) {
			t.Fatal("result presence changed between runs")
		}
		if first != nil && (first.Label != again.Label || first.Scores != again.Scores || !first.Metrics.Profit.Equal(again.Metrics.Profit)) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first.Route, again.Route)
		}
	}
}

// stubEvaluator returns canned metrics per pair and panics for listed destinations
type stubEvaluator struct {
	metrics map[string]types.Metrics
	panicOn types.Market
}

func (s *stubEvaluator) Profiles() *pricing.Profiles { return pricing.DefaultProfiles() }

func (s *stubEvaluator) RouteMetrics(l *types.Listing, src, dst types.Market, _ types.Params, _ *decimal.Decimal) types.Metrics {
	if dst == s.panicOn {
		panic("malformed row")
	}
	if m, ok := s.metrics[string(src)+dst.String()]; ok {
		return m
	}
	return types.ZeroMetrics()
}

func viable(roi, margin float64) types.Metrics {
	m := types.ZeroMetrics()
	m.Viable = true
	m.ROIPct = roi
	m.MarginPct = margin
	m.Profit = decimal.NewFromFloat(10)
	return m
}

func TestPanickingPairIsContained(t *testing.T) {
	stub := &stubEvaluator{
		metrics: map[string]types.Metrics{"itfr": viable(40, 30)},
		panicOn: types.MarketES,
	}
	s := NewSearcher(stub, nil)

	opp, stats := s.Best("B01", map[types.Market]types.Listing{
		types.MarketIT: listing("B01", types.MarketIT, 100),
		types.MarketDE: listing("B01", types.MarketDE, 90),
	}, types.DefaultParams())

	if stats.Faults == 0 {
		t.Fatalf("expected recovered faults, stats %+v", stats)
	}
	if opp == nil || opp.Label != "IT->FR" {
		t.Fatalf("expected IT->FR to survive the fault, got %v", opp)
	}
}

func TestExactScoreTiePrefersHigherMargin(t *testing.T) {
	group := map[types.Market]types.Listing{
		types.MarketIT: listing("B01", types.MarketIT, 100),
		types.MarketDE: listing("B01", types.MarketDE, 95),
	}

	tests := []struct {
		name string
		fr   types.Metrics
		es   types.Metrics
		want string
	}{
		// both saturate the profit score, so the opportunity scores tie exactly
		{"higher margin wins", viable(100, 40), viable(100, 50), "IT->ES"},
		{"equal margin keeps earlier pair", viable(100, 40), viable(100, 40), "IT->FR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubEvaluator{metrics: map[string]types.Metrics{"itfr": tt.fr, "ites": tt.es}}
			opp, _ := NewSearcher(stub, nil).Best("B01", group, types.DefaultParams())
			if opp == nil {
				t.Fatal("expected an opportunity")
			}
			if opp.Label != tt.want {
				t.Errorf("route = %s, want %s", opp.Label, tt.want)
			}
		})
	}
}
