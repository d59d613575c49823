package analysis

import (
	"crossmarket/core/types"
)

// Level is a coarse sustainability label
type Level string

const (
	LevelExcellent Level = "EXCELLENT"
	LevelGood      Level = "GOOD"
	LevelModerate  Level = "MODERATE"
	LevelPoor      Level = "POOR"
)

// Thresholds of the sustainability checks
const (
	suspiciousROI      = 80.0
	unstableVolatility = 40.0
	slowSalesRank      = 50000.0
	thinProfit         = 5.0
	lowTargetPrice     = 15.0
	dominantShare      = 70.0
	checksPerformed    = 6
)

// Sustainability reports whether an opportunity's margin is likely to hold
type Sustainability struct {
	Sustainable    bool     `json:"sustainable"`
	Level          Level    `json:"level"`
	Confidence     float64  `json:"confidence"`
	Warnings       []string `json:"warnings"`
	ChecksPassed   int      `json:"checks_passed"`
	Recommendation string   `json:"recommendation"`
}

var recommendations = map[Level]string{
	LevelExcellent: "Margins look very sustainable.",
	LevelGood:      "Margins look sustainable; standard monitoring.",
	LevelModerate:  "Margins are moderately sustainable; monitor frequently.",
	LevelPoor:      "Margins are fragile; weigh the risks carefully.",
}

// AssessSustainability runs the margin sustainability checks on an opportunity
func AssessSustainability(o *types.Opportunity) Sustainability {
	var warnings []string
	l := &o.Listing

	if o.Metrics.ROIPct > suspiciousROI {
		warnings = append(warnings, "ROI above 80%: verify the input data")
	}
	if PriceVolatilityIndex(l) < unstableVolatility {
		warnings = append(warnings, "high price volatility: unstable margins")
	}
	if l.DominantShareOr() > dominantShare {
		warnings = append(warnings, "dominant seller holds the buy box: price war risk")
	}
	if l.SalesRankOr() > slowSalesRank {
		warnings = append(warnings, "high sales rank: slow sell-through")
	}
	if profit, _ := o.Metrics.Profit.Float64(); profit < thinProfit {
		warnings = append(warnings, "absolute profit below 5: exposed to extra fees")
	}
	if target, _ := o.Metrics.TargetPrice.Float64(); target < lowTargetPrice {
		warnings = append(warnings, "sale price below 15: fees dominate the margin")
	}

	var level Level
	switch n := len(warnings); {
	case n == 0:
		level = LevelExcellent
	case n == 1:
		level = LevelGood
	case n == 2:
		level = LevelModerate
	default:
		level = LevelPoor
	}

	confidence := 100 - 15*float64(len(warnings))
	if confidence < 0 {
		confidence = 0
	}
	if warnings == nil {
		warnings = []string{}
	}
	return Sustainability{
		Sustainable:    len(warnings) <= 1,
		Level:          level,
		Confidence:     confidence,
		Warnings:       warnings,
		ChecksPassed:   checksPerformed - len(warnings),
		Recommendation: recommendations[level],
	}
}
