// Package scoring computes the 0-100 sub-scores of a route and their weighted combination.
// Every function here is total: faults degrade to a neutral value instead of propagating.
package scoring

import (
	"math"

	"crossmarket/core/types"
)

// Neutral fallbacks returned when an input or computation is unusable
const (
	NeutralProfit = 30.0
	NeutralIndex  = 50.0
)

// ROITarget is the ROI percentage at which the ROI component saturates
const ROITarget = 60.0

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// guard turns a panic or non-finite result into fallback
func guard(fallback float64, fn func() float64) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = fallback
		}
	}()
	score = fn()
	if !finite(score) {
		return fallback
	}
	return score
}

// ProfitScore scores profitability from margin and ROI, both in percent
func ProfitScore(marginPct, roiPct float64) float64 {
	if !finite(marginPct, roiPct) {
		return NeutralProfit
	}
	return guard(NeutralProfit, func() float64 {
		score := clamp(roiPct/ROITarget, 0, 1) * 70
		if roiPct < 0 {
			score -= 40
		}
		switch {
		case marginPct > 35:
			score += 30
		case marginPct > 25:
			score += 15
		}
		return clamp(score, 0, 100)
	})
}

// VelocityIndex scores how quickly the item sells
func VelocityIndex(l *types.Listing) float64 {
	if l == nil {
		return NeutralIndex
	}
	return guard(NeutralIndex, func() float64 {
		rank := l.SalesRankOr()
		var score float64
		if rank >= 500000 {
			score = 10
		} else {
			score = math.Max(10, 100-15*math.Log10(rank))
		}
		if rating := l.RatingOr(); rating > 3 {
			score += (rating - 3) * 10
		}
		score += math.Min(20, l.BoughtPastMonthOr()*0.5)
		return clamp(score, 0, 100)
	})
}

// CompetitionIndex scores how open the offer landscape is; higher means less competition
func CompetitionIndex(l *types.Listing) float64 {
	if l == nil {
		return NeutralIndex
	}
	return guard(NeutralIndex, func() float64 {
		score := 50.0
		switch share := l.DominantShareOr(); {
		case share > 70:
			score -= 30
		case share > 50:
			score -= 15
		}
		switch sellers := l.SellerCountOr(); {
		case sellers > 10:
			score -= 20
		case sellers > 5:
			score -= 10
		}
		if oos := l.OutOfStockOr(); oos > 10 {
			score += math.Min(15, (oos-10)*0.5)
		}
		return clamp(score, 0, 100)
	})
}

// OpportunityScore combines the sub-scores using the in-use weights normalized to sum 1.
// Reserved weight slots do not participate. A non-positive weight sum yields 0.
func OpportunityScore(profit, velocity, competition float64, w types.ScoreWeights) float64 {
	if !finite(profit, velocity, competition, w.Profit, w.Velocity, w.Competition) {
		return NeutralIndex
	}
	return guard(NeutralIndex, func() float64 {
		total := w.Profit + w.Velocity + w.Competition
		if total <= 0 {
			return 0
		}
		score := (w.Profit*profit + w.Velocity*velocity + w.Competition*competition) / total
		return clamp(score, 0, 100)
	})
}

// Score computes all sub-scores of a route for listing l
func Score(l *types.Listing, m types.Metrics, w types.ScoreWeights) types.Scores {
	s := types.Scores{
		Profit:      ProfitScore(m.MarginPct, m.ROIPct),
		Velocity:    VelocityIndex(l),
		Competition: CompetitionIndex(l),
	}
	s.Opportunity = OpportunityScore(s.Profit, s.Velocity, s.Competition, w)
	return s
}
