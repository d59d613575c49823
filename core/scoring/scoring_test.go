package scoring

import (
	"math"
	"strings"
	"testing"

	"crossmarket/core/types"
)

func TestProfitScore(t *testing.T) {
	tests := []struct {
		name   string
		margin float64
		roi    float64
		want   float64
	}{
		{"saturated roi high margin", 40, 120, 100},
		{"half target", 20, 30, 35},
		{"margin band 25-35", 30, 30, 50},
		{"negative roi", 10, -20, 0},
		{"zero", 0, 0, 0},
		{"NaN roi", 30, math.NaN(), NeutralProfit},
		{"Inf margin", math.Inf(1), 20, NeutralProfit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProfitScore(tt.margin, tt.roi); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ProfitScore(%v, %v) = %v, want %v", tt.margin, tt.roi, got, tt.want)
			}
		})
	}
}

func TestVelocityIndex(t *testing.T) {
	tests := []struct {
		name    string
		listing types.Listing
		want    float64
	}{
		{"unknown rank", types.Listing{}, 10},
		{"rank 1000", types.Listing{SalesRank: 1000}, 55},
		{"rank 1000 rated", types.Listing{SalesRank: 1000, Rating: 4.5}, 70},
		{"rank 100 best seller", types.Listing{SalesRank: 100, Rating: 5, BoughtPastMonth: 200}, 100},
		{"bought bonus", types.Listing{SalesRank: 600000, BoughtPastMonth: 10}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VelocityIndex(&tt.listing); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("VelocityIndex = %v, want %v", got, tt.want)
			}
		})
	}

	if got := VelocityIndex(nil); got != NeutralIndex {
		t.Errorf("nil listing = %v, want neutral", got)
	}
}

func TestCompetitionIndex(t *testing.T) {
	tests := []struct {
		name    string
		listing types.Listing
		want    float64
	}{
		{"defaults", types.Listing{}, 50},
		{"dominant seller", types.Listing{DominantSellerShare: 80, SellerCount: 2}, 20},
		{"crowded", types.Listing{DominantSellerShare: 60, SellerCount: 12}, 15},
		{"frequent stockouts", types.Listing{DominantSellerShare: 20, SellerCount: 3, OutOfStockPct: 30}, 60},
		{"bonus capped", types.Listing{DominantSellerShare: 20, SellerCount: 3, OutOfStockPct: 90}, 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompetitionIndex(&tt.listing); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CompetitionIndex = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpportunityScore(t *testing.T) {
	w := types.DefaultWeights()

	// only profit, velocity and competition participate: (0.4*80 + 0.25*60 + 0.1*40) / 0.75
	want := (0.4*80 + 0.25*60 + 0.1*40) / 0.75
	if got := OpportunityScore(80, 60, 40, w); math.Abs(got-want) > 1e-9 {
		t.Errorf("OpportunityScore = %v, want %v", got, want)
	}

	reserved := w
	reserved.Momentum, reserved.Risk, reserved.Ops = 5, 5, 5
	if OpportunityScore(80, 60, 40, reserved) != OpportunityScore(80, 60, 40, w) {
		t.Error("reserved weights must not affect the score")
	}

	if got := OpportunityScore(80, 60, 40, types.ScoreWeights{}); got != 0 {
		t.Errorf("zero weights = %v, want 0", got)
	}
	if got := OpportunityScore(math.NaN(), 60, 40, w); got != NeutralIndex {
		t.Errorf("NaN input = %v, want neutral", got)
	}
}

func TestScoresStayInBounds(t *testing.T) {
	values := []float64{-1e9, -100, -1, 0, 0.5, 1, 3.5, 10, 50, 99, 1e3, 1e6, 1e12}
	for _, a := range values {
		for _, b := range values {
			if s := ProfitScore(a, b); s < 0 || s > 100 {
				t.Fatalf("ProfitScore(%v, %v) = %v out of bounds", a, b, s)
			}
			l := types.Listing{SalesRank: a, Rating: b, BoughtPastMonth: a, DominantSellerShare: b, SellerCount: a, OutOfStockPct: b}
			if s := VelocityIndex(&l); s < 0 || s > 100 {
				t.Fatalf("VelocityIndex(%+v) = %v out of bounds", l, s)
			}
			if s := CompetitionIndex(&l); s < 0 || s > 100 {
				t.Fatalf("CompetitionIndex(%+v) = %v out of bounds", l, s)
			}
			if s := OpportunityScore(a, b, a, types.DefaultWeights()); s < 0 || s > 100 {
				t.Fatalf("OpportunityScore(%v, %v, %v) = %v out of bounds", a, b, a, s)
			}
		}
	}
}

func TestExplain(t *testing.T) {
	text := Explain(types.Scores{Profit: 85, Velocity: 45, Competition: 20, Opportunity: 62})
	for _, want := range []string{"62.0/100", "excellent, very high ROI", "moderate liquidity", "very high competition", "good opportunity"} {
		if !strings.Contains(text, want) {
			t.Errorf("explanation missing %q:\n%s", want, text)
		}
	}
}
