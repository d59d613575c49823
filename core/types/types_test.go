package types

import (
	"math"
	"testing"

	"crossmarket/internal/errors"
)

func TestParseMarket(t *testing.T) {
	tests := []struct {
		in   string
		want Market
		ok   bool
	}{
		{"it", MarketIT, true},
		{" DE ", MarketDE, true},
		{"Germany", MarketDE, true},
		{"france", MarketFR, true},
		{"España", MarketES, true},
		{"uk", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMarket(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseMarket(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMarketOrderIsFixed(t *testing.T) {
	want := []Market{MarketIT, MarketDE, MarketFR, MarketES}
	got := Markets()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Markets() = %v, want %v", got, want)
		}
		if got[i].Index() != i {
			t.Errorf("%s.Index() = %d, want %d", got[i], got[i].Index(), i)
		}
	}

	got[0] = "xx"
	if Markets()[0] != MarketIT {
		t.Error("Markets() must return a copy")
	}
}

func TestListingAccessorDefaults(t *testing.T) {
	var empty Listing
	nan := Listing{SalesRank: math.NaN(), SellerCount: math.Inf(1), WeightKg: -2}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"sales rank", empty.SalesRankOr(), 999999},
		{"sales rank NaN", nan.SalesRankOr(), 999999},
		{"rating", empty.RatingOr(), 0},
		{"bought", empty.BoughtPastMonthOr(), 0},
		{"dominant share", empty.DominantShareOr(), 50},
		{"seller count Inf", nan.SellerCountOr(), 5},
		{"oos", empty.OutOfStockOr(), 0},
		{"commission", empty.CommissionRateOr(), 0.15},
		{"fulfillment fee", empty.FulfillmentFeeOr(), 3.00},
		{"weight negative", nan.WeightOr(), 0.5},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCommissionRateReadsPercent(t *testing.T) {
	l := Listing{CommissionRate: 8}
	if got := l.CommissionRateOr(); math.Abs(got-0.08) > 1e-12 {
		t.Errorf("8 should be read as 8%%, got %v", got)
	}
	l.CommissionRate = 0.07
	if got := l.CommissionRateOr(); got != 0.07 {
		t.Errorf("fractional rate should pass through, got %v", got)
	}
	l.CommissionRate = 250
	if got := l.CommissionRateOr(); got != DefaultCommissionRate {
		t.Errorf("rate above 100%% should fall back to default, got %v", got)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"zero discount", func(p *Params) { p.Discount = 0 }, false},
		{"negative discount", func(p *Params) { p.Discount = -0.1 }, true},
		{"discount of one", func(p *Params) { p.Discount = 1 }, true},
		{"NaN discount", func(p *Params) { p.Discount = math.NaN() }, true},
		{"unknown strategy", func(p *Params) { p.Strategy = "lowest" }, true},
		{"unknown scenario", func(p *Params) { p.Scenario = "forever" }, true},
		{"empty scenario", func(p *Params) { p.Scenario = "" }, false},
		{"unknown mode", func(p *Params) { p.Mode = "drone" }, true},
		{"negative weight", func(p *Params) { p.Weights.Velocity = -1 }, true},
		{"negative storage", func(p *Params) { p.Costs.StoragePct = -0.01 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsType(err, errors.TypeInput) {
				t.Errorf("expected INPUT_ERROR, got %v", err)
			}
		})
	}
}

func TestParamsCanonicalCoversEveryField(t *testing.T) {
	base := DefaultParams()
	variants := []func(p *Params){
		func(p *Params) { p.Strategy = StrategyAmazon },
		func(p *Params) { p.Scenario = ScenarioLong },
		func(p *Params) { p.Discount = 0.1 },
		func(p *Params) { p.MinROI = 11 },
		func(p *Params) { p.MinMargin = 16 },
		func(p *Params) { p.Mode = FulfillmentSelf },
		func(p *Params) { p.Weights.Competition = 0.2 },
		func(p *Params) { p.Weights.Ops = 0.2 },
		func(p *Params) { p.Costs.ReturnsPct = 0.03 },
	}
	for i, mutate := range variants {
		p := DefaultParams()
		mutate(&p)
		if p.Canonical() == base.Canonical() {
			t.Errorf("variant %d did not change the canonical form", i)
		}
	}
}

func TestSnapshotIDIsContentAddressed(t *testing.T) {
	rows := []Listing{
		{ItemID: "B01", Market: MarketIT, BuyBoxPrice: 10},
		{ItemID: "B01", Market: MarketDE, BuyBoxPrice: math.NaN()},
	}
	a := NewSnapshot(rows)
	b := NewSnapshot(rows)
	if a.ID() != b.ID() {
		t.Fatal("identical rows must produce identical snapshot IDs")
	}

	rows[0].BuyBoxPrice = 11
	c := NewSnapshot(rows)
	if c.ID() == a.ID() {
		t.Error("changed rows must change the snapshot ID")
	}
	if a.Listings()[0].BuyBoxPrice != 10 {
		t.Error("snapshot must not alias the caller's slice")
	}
}

func TestGroupByItem(t *testing.T) {
	snap := NewSnapshot([]Listing{
		{ItemID: "B02", Market: MarketFR},
		{ItemID: "B01", Market: MarketIT},
		{ItemID: "", Market: MarketDE},
		{ItemID: "B01", Market: MarketDE},
	})

	idx, missing := snap.GroupByItem()
	if missing != 1 {
		t.Errorf("missing = %d, want 1", missing)
	}
	keys := idx.Keys()
	if len(keys) != 2 || keys[0] != "B01" || keys[1] != "B02" {
		t.Fatalf("keys = %v", keys)
	}
	if len(idx["B01"]) != 2 {
		t.Errorf("B01 should be listed in 2 markets, got %d", len(idx["B01"]))
	}

	markets := snap.Markets()
	if len(markets) != 3 || markets[0] != MarketIT {
		t.Errorf("Markets() = %v", markets)
	}
}
